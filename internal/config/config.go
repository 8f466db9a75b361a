// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsekey/internal/audio"
	"github.com/ColonelBlimp/morsekey/internal/decoder"
	"github.com/ColonelBlimp/morsekey/internal/dsp"
	"github.com/ColonelBlimp/morsekey/internal/encoder"
	"github.com/ColonelBlimp/morsekey/internal/morse"
)

const (
	AppName       = "morsekey"
	ConfigType    = "yaml"
	EnvPrefix     = "MORSEKEY"
	DefaultConfig = `# Morse key configuration

# Encoder: text -> key timeline
encoder:
  unit: 200ms           # one dot; dash = 3 units, letter gap = 3, word gap = 7
  line_capacity: 99     # characters per input line, extra input is dropped

# Decoder: key holds -> text
decoder:
  input: audio          # audio (tone on the capture device) or replay
  replay: ""            # replay script for input=replay
  debounce: 50ms        # press must still be down after this to count
  dot_threshold: 400ms  # holds shorter than this are dots
  letter_timeout: 2s    # key-up time that ends a letter
  word_timeout: 4s      # key-up time that emits a word space
  pattern_capacity: 9   # symbols kept per letter (1-16)
  poll_interval: 1ms    # key sampling period

# Audio tone key (decoder input=audio)
audio:
  device_index: -1      # -1 for default device
  sample_rate: 48000    # Audio sample rate in Hz
  channels: 1           # Number of channels (1=mono)
  buffer_size: 512      # frames per callback
  tone_frequency: 600   # key tone in Hz
  block_size: 480       # Goertzel block size (10ms at 48kHz)
  threshold: 0.4        # normalized magnitude for key down (0.0-1.0)
  hysteresis: 2         # consecutive blocks to confirm a key change
  agc_enabled: true     # normalize input level by a decaying peak
  agc_decay: 0.995      # per-block peak decay

# Sidetone: audible key on the playback device
sidetone:
  enabled: false
  device_index: -1
  frequency: 700
  volume: 0.3
  ramp: 5ms             # attack/release, avoids key clicks

# Text sink mirror, e.g. mqtt://localhost:1883/morsekey
mqtt:
  broker: ""

# Prometheus exposition, e.g. :9100
metrics:
  addr: ""

# Output
debug: false            # Enable debug output
`
)

// Settings holds all application configuration
type Settings struct {
	Encoder  EncoderSettings  `mapstructure:"encoder"`
	Decoder  DecoderSettings  `mapstructure:"decoder"`
	Audio    AudioSettings    `mapstructure:"audio"`
	Sidetone SidetoneSettings `mapstructure:"sidetone"`
	MQTT     MQTTSettings     `mapstructure:"mqtt"`
	Metrics  MetricsSettings  `mapstructure:"metrics"`

	Debug bool `mapstructure:"debug"`
}

// EncoderSettings configures the text to key side
type EncoderSettings struct {
	Unit         time.Duration `mapstructure:"unit"`
	LineCapacity int           `mapstructure:"line_capacity"`
}

// DecoderSettings configures the key to text side
type DecoderSettings struct {
	Input           string        `mapstructure:"input"`
	Replay          string        `mapstructure:"replay"`
	Debounce        time.Duration `mapstructure:"debounce"`
	DotThreshold    time.Duration `mapstructure:"dot_threshold"`
	LetterTimeout   time.Duration `mapstructure:"letter_timeout"`
	WordTimeout     time.Duration `mapstructure:"word_timeout"`
	PatternCapacity int           `mapstructure:"pattern_capacity"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
}

// AudioSettings configures the capture device and tone detection
type AudioSettings struct {
	DeviceIndex   int     `mapstructure:"device_index"`
	SampleRate    float64 `mapstructure:"sample_rate"`
	Channels      int     `mapstructure:"channels"`
	BufferSize    int     `mapstructure:"buffer_size"`
	ToneFrequency float64 `mapstructure:"tone_frequency"`
	BlockSize     int     `mapstructure:"block_size"`
	Threshold     float64 `mapstructure:"threshold"`
	Hysteresis    int     `mapstructure:"hysteresis"`
	AGCEnabled    bool    `mapstructure:"agc_enabled"`
	AGCDecay      float64 `mapstructure:"agc_decay"`
}

// SidetoneSettings configures the playback oscillator
type SidetoneSettings struct {
	Enabled     bool          `mapstructure:"enabled"`
	DeviceIndex int           `mapstructure:"device_index"`
	Frequency   float64       `mapstructure:"frequency"`
	Volume      float64       `mapstructure:"volume"`
	Ramp        time.Duration `mapstructure:"ramp"`
}

// MQTTSettings configures the text sink mirror
type MQTTSettings struct {
	Broker string `mapstructure:"broker"`
}

// MetricsSettings configures Prometheus exposition
type MetricsSettings struct {
	Addr string `mapstructure:"addr"`
}

// Decoder inputs
const (
	InputAudio  = "audio"
	InputReplay = "replay"
)

func setDefaults() {
	enc := morse.DefaultEncoderTiming()
	dec := morse.DefaultDecoderTiming()
	key := dsp.DefaultKeyConfig()
	dev := audio.DefaultConfig()

	viper.SetDefault("encoder.unit", enc.Unit)
	viper.SetDefault("encoder.line_capacity", encoder.DefaultLineCapacity)

	viper.SetDefault("decoder.input", InputAudio)
	viper.SetDefault("decoder.replay", "")
	viper.SetDefault("decoder.debounce", dec.Debounce)
	viper.SetDefault("decoder.dot_threshold", dec.DotThreshold)
	viper.SetDefault("decoder.letter_timeout", dec.LetterTimeout)
	viper.SetDefault("decoder.word_timeout", dec.WordTimeout)
	viper.SetDefault("decoder.pattern_capacity", decoder.DefaultPatternCapacity)
	viper.SetDefault("decoder.poll_interval", decoder.DefaultPollInterval)

	viper.SetDefault("audio.device_index", dev.DeviceIndex)
	viper.SetDefault("audio.sample_rate", dev.SampleRate)
	viper.SetDefault("audio.channels", dev.Channels)
	viper.SetDefault("audio.buffer_size", dev.BufferSize)
	viper.SetDefault("audio.tone_frequency", 600)
	viper.SetDefault("audio.block_size", 480)
	viper.SetDefault("audio.threshold", key.Threshold)
	viper.SetDefault("audio.hysteresis", key.Hysteresis)
	viper.SetDefault("audio.agc_enabled", key.AGCEnabled)
	viper.SetDefault("audio.agc_decay", key.AGCDecay)

	viper.SetDefault("sidetone.enabled", false)
	viper.SetDefault("sidetone.device_index", -1)
	viper.SetDefault("sidetone.frequency", 700)
	viper.SetDefault("sidetone.volume", 0.3)
	viper.SetDefault("sidetone.ramp", dsp.DefaultRamp)

	viper.SetDefault("mqtt.broker", "")
	viper.SetDefault("metrics.addr", "")
	viper.SetDefault("debug", false)
}

// Init initializes Viper with defaults, environment and config file.
// An explicit configFile is read as is. Otherwise the search order is the
// current directory, then ~/.config/morsekey/, and a default file is written
// to the latter when nothing is found.
func Init(configFile string) error {
	setDefaults()

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigType(ConfigType)

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", configFile, err)
		}
		return nil
	}

	// Priority order: current directory first, then XDG config
	viper.AddConfigPath(".")

	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	viper.AddConfigPath(filepath.Join(configDir, AppName))

	// Try .config.yaml first (hidden file), then config.yaml
	viper.SetConfigName(".config")
	if err = viper.ReadInConfig(); err != nil {
		viper.SetConfigName("config")
		err = viper.ReadInConfig()
	}

	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("read config: %w", err)
		}
		if err = ensureConfigExists(filepath.Join(configDir, AppName)); err != nil {
			return err
		}
		if err = viper.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	return nil
}

func ensureConfigExists(configPath string) error {
	configFile := filepath.Join(configPath, "config.yaml")

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err = os.MkdirAll(configPath, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
		if err = os.WriteFile(configFile, []byte(DefaultConfig), 0644); err != nil {
			return fmt.Errorf("write default config: %w", err)
		}
	}
	return nil
}

// Get returns the current settings
func Get() (*Settings, error) {
	var s Settings
	if err := viper.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &s, nil
}

// Validate checks that all settings are within acceptable ranges
func (s *Settings) Validate() error {
	var errs []error

	// Encoder
	if s.Encoder.Unit <= 0 {
		errs = append(errs, fmt.Errorf("encoder.unit must be positive, got %v", s.Encoder.Unit))
	}
	if s.Encoder.LineCapacity < 1 || s.Encoder.LineCapacity > 4096 {
		errs = append(errs, fmt.Errorf("encoder.line_capacity must be between 1 and 4096, got %d", s.Encoder.LineCapacity))
	}

	// Decoder
	if s.Decoder.Input != InputAudio && s.Decoder.Input != InputReplay {
		errs = append(errs, fmt.Errorf("decoder.input must be %q or %q, got %q", InputAudio, InputReplay, s.Decoder.Input))
	}
	if err := s.DecoderTiming().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("decoder timing: %w", err))
	}
	if s.Decoder.PatternCapacity < 1 || s.Decoder.PatternCapacity > decoder.MaxPatternCapacity {
		errs = append(errs, fmt.Errorf("decoder.pattern_capacity must be between 1 and %d, got %d", decoder.MaxPatternCapacity, s.Decoder.PatternCapacity))
	}
	if s.Decoder.PollInterval <= 0 || s.Decoder.PollInterval > s.Decoder.Debounce {
		errs = append(errs, fmt.Errorf("decoder.poll_interval must be positive and at most the debounce, got %v", s.Decoder.PollInterval))
	}

	// Audio device settings
	if s.Audio.SampleRate < 8000 || s.Audio.SampleRate > 192000 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be between 8000 and 192000 Hz, got %v", s.Audio.SampleRate))
	}
	if s.Audio.Channels < 1 || s.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels must be 1 or 2, got %d", s.Audio.Channels))
	}
	if s.Audio.BufferSize < 64 || s.Audio.BufferSize > 8192 {
		errs = append(errs, fmt.Errorf("audio.buffer_size must be between 64 and 8192, got %d", s.Audio.BufferSize))
	}

	// Tone detection
	if s.Audio.ToneFrequency < 100 || s.Audio.ToneFrequency > 3000 {
		errs = append(errs, fmt.Errorf("audio.tone_frequency must be between 100 and 3000 Hz, got %v", s.Audio.ToneFrequency))
	}
	if s.Audio.BlockSize < 32 || s.Audio.BlockSize > 4096 {
		errs = append(errs, fmt.Errorf("audio.block_size must be between 32 and 4096, got %d", s.Audio.BlockSize))
	}
	if s.Audio.Threshold < 0.0 || s.Audio.Threshold > 1.0 {
		errs = append(errs, fmt.Errorf("audio.threshold must be between 0.0 and 1.0, got %v", s.Audio.Threshold))
	}
	if s.Audio.Hysteresis < 1 || s.Audio.Hysteresis > 50 {
		errs = append(errs, fmt.Errorf("audio.hysteresis must be between 1 and 50, got %d", s.Audio.Hysteresis))
	}
	if s.Audio.AGCEnabled && (s.Audio.AGCDecay < 0.9 || s.Audio.AGCDecay > 0.99999) {
		errs = append(errs, fmt.Errorf("audio.agc_decay must be between 0.9 and 0.99999, got %v", s.Audio.AGCDecay))
	}
	// Nyquist check: tone frequency must be less than half the sample rate
	if s.Audio.ToneFrequency >= s.Audio.SampleRate/2 {
		errs = append(errs, fmt.Errorf("audio.tone_frequency (%v Hz) must be less than Nyquist frequency (%v Hz)", s.Audio.ToneFrequency, s.Audio.SampleRate/2))
	}

	// Sidetone
	if s.Sidetone.Frequency < 100 || s.Sidetone.Frequency > 3000 {
		errs = append(errs, fmt.Errorf("sidetone.frequency must be between 100 and 3000 Hz, got %v", s.Sidetone.Frequency))
	}
	if s.Sidetone.Volume < 0 || s.Sidetone.Volume > 1 {
		errs = append(errs, fmt.Errorf("sidetone.volume must be between 0.0 and 1.0, got %v", s.Sidetone.Volume))
	}
	if s.Sidetone.Ramp < 0 || s.Sidetone.Ramp > 50*time.Millisecond {
		errs = append(errs, fmt.Errorf("sidetone.ramp must be between 0 and 50ms, got %v", s.Sidetone.Ramp))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EncoderTiming derives the encoder timing from the unit
func (s *Settings) EncoderTiming() (morse.EncoderTiming, error) {
	return morse.NewEncoderTiming(s.Encoder.Unit)
}

// DecoderTiming collects the decoder thresholds
func (s *Settings) DecoderTiming() morse.DecoderTiming {
	return morse.DecoderTiming{
		Debounce:      s.Decoder.Debounce,
		DotThreshold:  s.Decoder.DotThreshold,
		LetterTimeout: s.Decoder.LetterTimeout,
		WordTimeout:   s.Decoder.WordTimeout,
	}
}

// KeyConfig returns the tone key detection settings
func (s *Settings) KeyConfig() dsp.KeyConfig {
	return dsp.KeyConfig{
		Threshold:  s.Audio.Threshold,
		Hysteresis: s.Audio.Hysteresis,
		AGCEnabled: s.Audio.AGCEnabled,
		AGCDecay:   s.Audio.AGCDecay,
	}
}

// CaptureConfig returns the capture device settings
func (s *Settings) CaptureConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.Audio.DeviceIndex,
		SampleRate:  uint32(s.Audio.SampleRate),
		Channels:    uint32(s.Audio.Channels),
		BufferSize:  uint32(s.Audio.BufferSize),
	}
}

// PlaybackConfig returns the sidetone device settings
func (s *Settings) PlaybackConfig() audio.Config {
	return audio.Config{
		DeviceIndex: s.Sidetone.DeviceIndex,
		SampleRate:  uint32(s.Audio.SampleRate),
		Channels:    1,
		BufferSize:  uint32(s.Audio.BufferSize),
	}
}
