// cmd/decode.go
package cmd

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsekey/internal/audio"
	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/decoder"
	"github.com/ColonelBlimp/morsekey/internal/device"
	"github.com/ColonelBlimp/morsekey/internal/dsp"
)

// localFlagKeys maps subcommand flags to config keys
var localFlagKeys = map[string]string{
	"input":  "decoder.input",
	"replay": "decoder.replay",
}

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode key presses into text",
	Long: `Decodes timed key presses into letters and word spaces.

The key is either a tone on the audio capture device (--input audio) or a
replay script of press/release durations (--input replay --replay FILE),
for example "+180ms -300ms +600ms -5s".`,
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringP("input", "i", config.InputAudio, "key source: audio or replay")
	decodeCmd.Flags().StringP("replay", "r", "", "replay script for --input replay")
}

func runDecode(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	s, err := config.Get()
	if err != nil {
		return err
	}

	seg, err := decoder.NewSegmenter(s.DecoderTiming(), s.Decoder.PatternCapacity)
	if err != nil {
		return err
	}

	p, err := openPeripherals(ctx, s, "decoder", cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer p.Close()

	clock := device.SystemClock{}
	input, err := openKeyInput(cmd, s, p, clock)
	if err != nil {
		return err
	}

	poller, err := decoder.NewPoller(seg, clock, input, p.actuator)
	if err != nil {
		return err
	}
	if err := poller.SetPollInterval(s.Decoder.PollInterval); err != nil {
		return err
	}

	session, err := decoder.NewSession(poller, p.text)
	if err != nil {
		return err
	}
	session.AddObserver(logOutput)
	if p.metrics != nil {
		session.AddObserver(p.metrics.Decoded)
		poller.OnNoise = p.metrics.Noise
	}

	err = session.Run(ctx)
	_, _ = fmt.Fprint(p.console, "\r\n")
	return ignoreStop(err)
}

// openKeyInput returns the configured key source
func openKeyInput(cmd *cobra.Command, s *config.Settings, p *peripherals, clock device.Clock) (device.Input, error) {
	switch s.Decoder.Input {
	case config.InputReplay:
		if s.Decoder.Replay == "" {
			return nil, fmt.Errorf("--input replay needs --replay FILE")
		}
		f, err := os.Open(s.Decoder.Replay)
		if err != nil {
			return nil, fmt.Errorf("open replay: %w", err)
		}
		defer f.Close()
		steps, err := device.ParseScript(f)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", s.Decoder.Replay, err)
		}
		glog.Infof("replaying %d steps from %s", len(steps), s.Decoder.Replay)
		return device.NewScriptedInput(clock, steps), nil

	default:
		g, err := dsp.NewGoertzel(s.Audio.ToneFrequency, s.Audio.SampleRate, s.Audio.BlockSize)
		if err != nil {
			return nil, fmt.Errorf("tone detector: %w", err)
		}
		key, err := dsp.NewToneKey(s.KeyConfig(), g)
		if err != nil {
			return nil, fmt.Errorf("tone key: %w", err)
		}
		backend, err := p.audioBackend()
		if err != nil {
			return nil, err
		}
		capture, err := audio.NewCapture(backend, s.CaptureConfig())
		if err != nil {
			return nil, err
		}
		capture.SetCallback(key.Process)
		if err := capture.Start(cmd.Context()); err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() { _ = capture.Stop() })
		return key, nil
	}
}

func logOutput(o decoder.Output) {
	if !glog.V(1) {
		return
	}
	switch o.Kind {
	case decoder.OutputSymbol:
		glog.Infof("symbol %s hold=%v stored=%v", o.Symbol, o.Hold, o.Stored)
	case decoder.OutputLetter:
		glog.Infof("letter %c pattern=%s matched=%v", o.Character, o.Pattern, o.Matched)
	case decoder.OutputWordGap:
		glog.Info("word gap")
	}
}
