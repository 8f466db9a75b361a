// cmd/stack.go
package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/golang/glog"

	"github.com/ColonelBlimp/morsekey/internal/audio"
	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/device"
	"github.com/ColonelBlimp/morsekey/internal/dsp"
	"github.com/ColonelBlimp/morsekey/internal/metrics"
	"github.com/ColonelBlimp/morsekey/internal/mqtt"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
)

// peripherals holds everything around a codec session: the text sink, the
// key actuator and the optional audio backend and metrics.
type peripherals struct {
	settings *config.Settings

	// text receives trace or decoded text; console is stdout only
	text    io.Writer
	console io.Writer

	actuator device.Actuator
	metrics  *metrics.Metrics

	backend *audio.Context
	closers []func()
}

// openPeripherals wires the sinks configured in s for role ("encoder" or "decoder").
func openPeripherals(ctx context.Context, s *config.Settings, role string, stdout io.Writer) (_ *peripherals, err error) {
	p := &peripherals{
		settings: s,
		text:     stdout,
		console:  stdout,
		actuator: device.Nop,
	}
	defer func() {
		if err != nil {
			p.Close()
		}
	}()

	if s.MQTT.Broker != "" {
		sink, err := mqtt.Dial(s.MQTT.Broker, role)
		if err != nil {
			return nil, err
		}
		glog.Infof("mqtt: publishing %s text to %s", role, sink.Topic())
		p.text = io.MultiWriter(stdout, sink)
		p.closers = append(p.closers, func() { _ = sink.Close() })
	}

	if s.Metrics.Addr != "" {
		p.metrics = metrics.New()
		m := p.metrics
		recovery.Go(func() {
			if err := m.Serve(ctx, s.Metrics.Addr); err != nil {
				glog.Errorf("metrics: %v", err)
			}
		}, nil)
	}

	if s.Sidetone.Enabled {
		if err := p.startSidetone(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// audioBackend opens the shared audio context on first use
func (p *peripherals) audioBackend() (*audio.Context, error) {
	if p.backend != nil {
		return p.backend, nil
	}
	backend, err := audio.Open()
	if err != nil {
		return nil, err
	}
	p.backend = backend
	return backend, nil
}

func (p *peripherals) startSidetone(ctx context.Context) error {
	s := p.settings
	tone, err := dsp.NewSidetone(s.Sidetone.Frequency, s.Audio.SampleRate, s.Sidetone.Volume, s.Sidetone.Ramp)
	if err != nil {
		return fmt.Errorf("sidetone: %w", err)
	}
	backend, err := p.audioBackend()
	if err != nil {
		return err
	}
	playback, err := audio.NewPlayback(backend, s.PlaybackConfig(), tone)
	if err != nil {
		return fmt.Errorf("sidetone: %w", err)
	}
	if err := playback.Start(ctx); err != nil {
		return err
	}
	p.closers = append(p.closers, func() { _ = playback.Stop() })
	p.actuator = tone
	return nil
}

// Close releases resources in reverse order of acquisition
func (p *peripherals) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
	if p.backend != nil {
		if err := p.backend.Close(); err != nil {
			glog.Warningf("audio: %v", err)
		}
		p.backend = nil
	}
}
