// internal/encoder/player.go
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/golang/glog"

	"github.com/ColonelBlimp/morsekey/internal/device"
)

var (
	// ErrClockRequired indicates a player needs a clock to time events
	ErrClockRequired = errors.New("clock is required")
	// ErrActuatorRequired indicates a player needs something to key
	ErrActuatorRequired = errors.New("actuator is required")
)

// Player realizes a timeline: traces go to the trace writer, tones key the
// actuator and gaps leave it released. Every tone and gap blocks the caller
// for its full duration; the context is only checked between events.
type Player struct {
	clock    device.Clock
	actuator device.Actuator
	trace    io.Writer
}

// NewPlayer creates a player. A nil trace writer discards traces.
func NewPlayer(clock device.Clock, actuator device.Actuator, trace io.Writer) (*Player, error) {
	if clock == nil {
		return nil, ErrClockRequired
	}
	if actuator == nil {
		return nil, ErrActuatorRequired
	}
	if trace == nil {
		trace = io.Discard
	}
	return &Player{clock: clock, actuator: actuator, trace: trace}, nil
}

// Play consumes events in order. The actuator is released when Play returns,
// including on cancellation or a trace write error.
func (p *Player) Play(ctx context.Context, events iter.Seq[Event]) (err error) {
	defer p.actuator.Set(false)

	for e := range events {
		if err = ctx.Err(); err != nil {
			return err
		}
		switch e.Kind {
		case EventTrace:
			if _, err = io.WriteString(p.trace, e.Text); err != nil {
				return fmt.Errorf("write trace: %w", err)
			}
		case EventTone:
			if glog.V(2) {
				glog.Infof("tone %v (%c)", e.Duration, e.Char)
			}
			p.actuator.Set(true)
			p.clock.Sleep(e.Duration)
			p.actuator.Set(false)
		case EventGap:
			p.clock.Sleep(e.Duration)
		}
	}
	return nil
}
