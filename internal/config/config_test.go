package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

// isolate points the user config dir at a temp directory and resets viper.
func isolate(t *testing.T) string {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmpDir, ".config"))
	return tmpDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	origDir, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(origDir); err != nil {
			t.Logf("failed to restore dir: %v", err)
		}
	})
}

func TestInit_CreatesConfigIfMissing(t *testing.T) {
	tmpDir := isolate(t)
	chdir(t, tmpDir)

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	configPath := filepath.Join(tmpDir, ".config", AppName, "config.yaml")
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Errorf("Init() did not create config file at %s", configPath)
	}
	if got := viper.ConfigFileUsed(); got != configPath {
		t.Errorf("ConfigFileUsed() = %q, want %q", got, configPath)
	}
}

func TestGet_DefaultsMatchReferenceTiming(t *testing.T) {
	tmpDir := isolate(t)
	chdir(t, tmpDir)

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if s.DecoderTiming() != morse.DefaultDecoderTiming() {
		t.Errorf("DecoderTiming() = %+v, want %+v", s.DecoderTiming(), morse.DefaultDecoderTiming())
	}
	enc, err := s.EncoderTiming()
	if err != nil {
		t.Fatalf("EncoderTiming() error = %v", err)
	}
	if enc != morse.DefaultEncoderTiming() {
		t.Errorf("EncoderTiming() = %+v, want %+v", enc, morse.DefaultEncoderTiming())
	}

	tests := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"line_capacity", s.Encoder.LineCapacity, 99},
		{"input", s.Decoder.Input, InputAudio},
		{"pattern_capacity", s.Decoder.PatternCapacity, 9},
		{"poll_interval", s.Decoder.PollInterval, time.Millisecond},
		{"device_index", s.Audio.DeviceIndex, -1},
		{"sample_rate", s.Audio.SampleRate, 48000.0},
		{"tone_frequency", s.Audio.ToneFrequency, 600.0},
		{"block_size", s.Audio.BlockSize, 480},
		{"threshold", s.Audio.Threshold, 0.4},
		{"sidetone.enabled", s.Sidetone.Enabled, false},
		{"sidetone.ramp", s.Sidetone.Ramp, 5 * time.Millisecond},
		{"mqtt.broker", s.MQTT.Broker, ""},
		{"metrics.addr", s.Metrics.Addr, ""},
		{"debug", s.Debug, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestInit_ReadsLocalConfigFirst(t *testing.T) {
	tmpDir := isolate(t)
	writeFile(t, filepath.Join(tmpDir, ".config", AppName, "config.yaml"), "encoder:\n  unit: 100ms\n")
	writeFile(t, filepath.Join(tmpDir, "work", "config.yaml"), "encoder:\n  unit: 60ms\n")
	chdir(t, filepath.Join(tmpDir, "work"))

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := viper.GetDuration("encoder.unit"); got != 60*time.Millisecond {
		t.Errorf("encoder.unit = %v, want 60ms (local config)", got)
	}
}

func TestInit_HiddenConfigPreferred(t *testing.T) {
	tmpDir := isolate(t)
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "decoder:\n  pattern_capacity: 5\n")
	writeFile(t, filepath.Join(tmpDir, ".config.yaml"), "decoder:\n  pattern_capacity: 7\n")
	chdir(t, tmpDir)

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if got := viper.GetInt("decoder.pattern_capacity"); got != 7 {
		t.Errorf("decoder.pattern_capacity = %d, want 7", got)
	}
}

func TestInit_ExplicitFile(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "station.yaml")
	writeFile(t, path, "decoder:\n  dot_threshold: 250ms\n  debounce: 20ms\n")

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Decoder.DotThreshold != 250*time.Millisecond || s.Decoder.Debounce != 20*time.Millisecond {
		t.Errorf("decoder = %+v", s.Decoder)
	}
	// Untouched keys keep their defaults.
	if s.Decoder.WordTimeout != morse.DefaultWordTimeout {
		t.Errorf("word_timeout = %v, want default", s.Decoder.WordTimeout)
	}
}

func TestInit_ExplicitFileMissing(t *testing.T) {
	tmpDir := isolate(t)
	if err := Init(filepath.Join(tmpDir, "nope.yaml")); err == nil {
		t.Error("Init() with a missing explicit file should fail")
	}
}

func TestInit_InvalidConfigFile(t *testing.T) {
	tmpDir := isolate(t)
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "encoder: [unit\n")
	chdir(t, tmpDir)

	if err := Init(""); err == nil {
		t.Error("Init() with invalid YAML should fail")
	}
}

func TestInit_EnvironmentOverrides(t *testing.T) {
	tmpDir := isolate(t)
	chdir(t, tmpDir)
	t.Setenv("MORSEKEY_ENCODER_UNIT", "120ms")
	t.Setenv("MORSEKEY_MQTT_BROKER", "mqtt://localhost:1883/shack")

	if err := Init(""); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	s, err := Get()
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if s.Encoder.Unit != 120*time.Millisecond {
		t.Errorf("encoder.unit = %v, want 120ms", s.Encoder.Unit)
	}
	if s.MQTT.Broker != "mqtt://localhost:1883/shack" {
		t.Errorf("mqtt.broker = %q", s.MQTT.Broker)
	}
}

func TestGet_RejectsInvalidTiming(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "bad.yaml")
	writeFile(t, path, "decoder:\n  letter_timeout: 5s\n  word_timeout: 4s\n")

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	_, err := Get()
	if !errors.Is(err, morse.ErrInvalidWordTimeout) {
		t.Errorf("Get() error = %v, want %v", err, morse.ErrInvalidWordTimeout)
	}
}

func validSettings() Settings {
	return Settings{
		Encoder: EncoderSettings{Unit: 200 * time.Millisecond, LineCapacity: 99},
		Decoder: DecoderSettings{
			Input:           InputAudio,
			Debounce:        50 * time.Millisecond,
			DotThreshold:    400 * time.Millisecond,
			LetterTimeout:   2 * time.Second,
			WordTimeout:     4 * time.Second,
			PatternCapacity: 9,
			PollInterval:    time.Millisecond,
		},
		Audio: AudioSettings{
			DeviceIndex: -1, SampleRate: 48000, Channels: 1, BufferSize: 512,
			ToneFrequency: 600, BlockSize: 480, Threshold: 0.4, Hysteresis: 2,
			AGCEnabled: true, AGCDecay: 0.995,
		},
		Sidetone: SidetoneSettings{DeviceIndex: -1, Frequency: 700, Volume: 0.3, Ramp: 5 * time.Millisecond},
	}
}

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"zero unit", func(s *Settings) { s.Encoder.Unit = 0 }, "encoder.unit"},
		{"line capacity", func(s *Settings) { s.Encoder.LineCapacity = 0 }, "encoder.line_capacity"},
		{"input", func(s *Settings) { s.Decoder.Input = "serial" }, "decoder.input"},
		{"debounce above threshold", func(s *Settings) { s.Decoder.Debounce = time.Second }, "debounce"},
		{"pattern capacity", func(s *Settings) { s.Decoder.PatternCapacity = 17 }, "decoder.pattern_capacity"},
		{"poll interval", func(s *Settings) { s.Decoder.PollInterval = 0 }, "decoder.poll_interval"},
		{"sample rate", func(s *Settings) { s.Audio.SampleRate = 4000 }, "audio.sample_rate"},
		{"channels", func(s *Settings) { s.Audio.Channels = 3 }, "audio.channels"},
		{"buffer size", func(s *Settings) { s.Audio.BufferSize = 10 }, "audio.buffer_size"},
		{"tone frequency", func(s *Settings) { s.Audio.ToneFrequency = 50 }, "audio.tone_frequency"},
		{"nyquist", func(s *Settings) { s.Audio.SampleRate = 4000; s.Audio.ToneFrequency = 2500 }, "Nyquist"},
		{"block size", func(s *Settings) { s.Audio.BlockSize = 8 }, "audio.block_size"},
		{"threshold", func(s *Settings) { s.Audio.Threshold = 2 }, "audio.threshold"},
		{"hysteresis", func(s *Settings) { s.Audio.Hysteresis = 0 }, "audio.hysteresis"},
		{"agc decay", func(s *Settings) { s.Audio.AGCDecay = 0.5 }, "audio.agc_decay"},
		{"agc decay ignored", func(s *Settings) { s.Audio.AGCEnabled = false; s.Audio.AGCDecay = 0 }, ""},
		{"sidetone volume", func(s *Settings) { s.Sidetone.Volume = -1 }, "sidetone.volume"},
		{"sidetone frequency", func(s *Settings) { s.Sidetone.Frequency = 5000 }, "sidetone.frequency"},
		{"sidetone ramp", func(s *Settings) { s.Sidetone.Ramp = time.Second }, "sidetone.ramp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.modify(&s)
			err := s.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSettings_ValidateJoinsErrors(t *testing.T) {
	s := validSettings()
	s.Encoder.Unit = 0
	s.Audio.Channels = 0
	s.Sidetone.Volume = 2
	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() = nil")
	}
	if n := len(strings.Split(err.Error(), "\n")); n != 3 {
		t.Errorf("joined %d errors, want 3: %v", n, err)
	}
}

func TestSettings_DeviceConfigs(t *testing.T) {
	s := validSettings()
	s.Audio.Channels = 2
	s.Sidetone.DeviceIndex = 3

	c := s.CaptureConfig()
	if c.SampleRate != 48000 || c.Channels != 2 || c.BufferSize != 512 || c.DeviceIndex != -1 {
		t.Errorf("CaptureConfig() = %+v", c)
	}
	p := s.PlaybackConfig()
	if p.Channels != 1 || p.DeviceIndex != 3 || p.SampleRate != 48000 {
		t.Errorf("PlaybackConfig() = %+v", p)
	}
	k := s.KeyConfig()
	if k.Threshold != 0.4 || k.Hysteresis != 2 || !k.AGCEnabled || k.AGCDecay != 0.995 {
		t.Errorf("KeyConfig() = %+v", k)
	}
}

func TestEnsureConfigExists_DoesNotOverwrite(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	writeFile(t, configFile, "custom: true\n")

	if err := ensureConfigExists(tmpDir); err != nil {
		t.Fatalf("ensureConfigExists() error = %v", err)
	}
	data, _ := os.ReadFile(configFile)
	if string(data) != "custom: true\n" {
		t.Errorf("config overwritten: %q", data)
	}
}

func TestDefaultConfig_ParsesAndValidates(t *testing.T) {
	tmpDir := isolate(t)
	path := filepath.Join(tmpDir, "default.yaml")
	writeFile(t, path, DefaultConfig)

	if err := Init(path); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if _, err := Get(); err != nil {
		t.Errorf("DefaultConfig does not validate: %v", err)
	}
	for _, key := range []string{"encoder.unit", "decoder.word_timeout", "audio.tone_frequency", "sidetone.volume", "mqtt.broker", "metrics.addr"} {
		if !viper.InConfig(key) {
			t.Errorf("DefaultConfig missing %q", key)
		}
	}
}
