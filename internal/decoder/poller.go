// internal/decoder/poller.go
package decoder

import (
	"context"
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/ColonelBlimp/morsekey/internal/device"
)

// DefaultPollInterval is the pause between input samples
const DefaultPollInterval = time.Millisecond

var (
	// ErrSegmenterRequired indicates a poller needs a segmenter to drive
	ErrSegmenterRequired = errors.New("segmenter is required")
	// ErrClockRequired indicates a poller needs a clock
	ErrClockRequired = errors.New("clock is required")
	// ErrInputRequired indicates a poller needs a key input
	ErrInputRequired = errors.New("input is required")
	// ErrInvalidPollInterval indicates the poll interval must be positive
	ErrInvalidPollInterval = errors.New("poll interval must be positive")
)

// Poller samples the key input and drives a Segmenter.
//
// A press is confirmed by sampling again after the debounce delay. A
// confirmed press is then measured synchronously: Step does not return, and
// no timeout is evaluated, until the key is released. A hold longer than the
// letter or word timeout therefore never triggers them.
type Poller struct {
	seg      *Segmenter
	clock    device.Clock
	input    device.Input
	actuator device.Actuator
	interval time.Duration

	// OnNoise, when set, is called for every press that did not survive debounce
	OnNoise func(at time.Time)
}

// NewPoller creates a poller. The actuator mirrors the measured press; nil means none.
func NewPoller(seg *Segmenter, clock device.Clock, input device.Input, actuator device.Actuator) (*Poller, error) {
	if seg == nil {
		return nil, ErrSegmenterRequired
	}
	if clock == nil {
		return nil, ErrClockRequired
	}
	if input == nil {
		return nil, ErrInputRequired
	}
	if actuator == nil {
		actuator = device.Nop
	}
	return &Poller{
		seg:      seg,
		clock:    clock,
		input:    input,
		actuator: actuator,
		interval: DefaultPollInterval,
	}, nil
}

// SetPollInterval changes the pause between samples
func (p *Poller) SetPollInterval(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidPollInterval
	}
	p.interval = d
	return nil
}

// Run resets the segmenter and polls until ctx is cancelled. If the input is
// device.Finite, Run returns nil once it has finished.
func (p *Poller) Run(ctx context.Context) error {
	p.seg.Reset(p.clock.Now())
	finite, _ := p.input.(device.Finite)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if finite != nil && finite.Finished() {
			return nil
		}
		if err := p.Step(ctx); err != nil {
			return err
		}
		p.clock.Sleep(p.interval)
	}
}

// Step performs one polling iteration.
func (p *Poller) Step(ctx context.Context) error {
	now := p.clock.Now()
	if !p.input.Pressed() {
		p.seg.Tick(now)
		return nil
	}

	p.clock.Sleep(p.seg.timing.Debounce)
	if !p.input.Pressed() {
		glog.V(2).Infof("press at %v rejected as noise", now.Format("15:04:05.000"))
		if p.OnNoise != nil {
			p.OnNoise(now)
		}
		return nil
	}

	p.seg.Press(p.clock.Now())
	p.actuator.Set(true)
	err := p.waitRelease(ctx)
	p.actuator.Set(false)
	if err != nil {
		p.seg.abandon()
		return err
	}
	p.seg.Release(p.clock.Now())
	return nil
}

// waitRelease blocks until the key is released or ctx is cancelled.
func (p *Poller) waitRelease(ctx context.Context) error {
	for p.input.Pressed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.clock.Sleep(p.interval)
	}
	return nil
}
