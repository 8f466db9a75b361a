package encoder

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/device"
	"github.com/ColonelBlimp/morsekey/internal/morse"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestPlayer(t *testing.T) (*Player, *device.ManualClock, *device.RecordingActuator, *bytes.Buffer) {
	t.Helper()
	clock := device.NewManualClock(epoch)
	act := &device.RecordingActuator{Clock: clock}
	var trace bytes.Buffer
	p, err := NewPlayer(clock, act, &trace)
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	return p, clock, act, &trace
}

func TestNewPlayer_Validation(t *testing.T) {
	clock := device.NewManualClock(epoch)
	if _, err := NewPlayer(nil, device.Nop, nil); err != ErrClockRequired {
		t.Errorf("NewPlayer(nil clock) error = %v, want %v", err, ErrClockRequired)
	}
	if _, err := NewPlayer(clock, nil, nil); err != ErrActuatorRequired {
		t.Errorf("NewPlayer(nil actuator) error = %v, want %v", err, ErrActuatorRequired)
	}
	if p, err := NewPlayer(clock, device.Nop, nil); err != nil || p == nil {
		t.Errorf("NewPlayer(nil trace) = %v, %v", p, err)
	}
}

func TestPlayer_PlaySOS(t *testing.T) {
	p, clock, act, trace := newTestPlayer(t)
	tm := morse.DefaultEncoderTiming()

	if err := p.Play(context.Background(), Encode("SOS ", tm)); err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	if trace.String() != "... --- ... [SPACE] " {
		t.Errorf("trace = %q", trace.String())
	}
	if elapsed := clock.Now().Sub(epoch); elapsed != 8*time.Second {
		t.Errorf("playback took %v, want 8s", elapsed)
	}

	d, D := tm.Dot, tm.Dash
	want := []time.Duration{d, d, d, D, D, D, d, d, d}
	if got := act.OnDurations(); !slices.Equal(got, want) {
		t.Errorf("tones = %v, want %v", got, want)
	}
	if act.On() {
		t.Error("actuator left on after playback")
	}
}

func TestPlayer_GapBetweenTones(t *testing.T) {
	p, _, act, _ := newTestPlayer(t)
	tm := morse.DefaultEncoderTiming()

	if err := p.Play(context.Background(), Encode("EE", tm)); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	tr := act.Transitions()
	// on, off, on, off (+ final release)
	if len(tr) < 4 {
		t.Fatalf("transitions = %v", tr)
	}
	gap := tr[2].At.Sub(tr[1].At)
	if want := tm.IntraSymbolGap + tm.InterLetterGap; gap != want {
		t.Errorf("gap between letters = %v, want %v", gap, want)
	}
}

func TestPlayer_CancelledBetweenEvents(t *testing.T) {
	p, clock, act, trace := newTestPlayer(t)
	ctx, cancel := context.WithCancel(context.Background())

	events := func(yield func(Event) bool) {
		if !yield(Tone(100 * time.Millisecond)) {
			return
		}
		cancel()
		if !yield(Tone(100 * time.Millisecond)) {
			return
		}
		yield(Trace("never"))
	}

	err := p.Play(ctx, events)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Play() error = %v, want context.Canceled", err)
	}
	if len(act.OnDurations()) != 1 {
		t.Errorf("played %d tones, want 1", len(act.OnDurations()))
	}
	if clock.Now().Sub(epoch) != 100*time.Millisecond {
		t.Errorf("elapsed = %v, want 100ms", clock.Now().Sub(epoch))
	}
	if trace.Len() != 0 || act.On() {
		t.Errorf("trace=%q on=%v", trace.String(), act.On())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("sink closed") }

func TestPlayer_TraceWriteError(t *testing.T) {
	clock := device.NewManualClock(epoch)
	p, err := NewPlayer(clock, device.Nop, failingWriter{})
	if err != nil {
		t.Fatalf("NewPlayer() error = %v", err)
	}
	if err := p.Play(context.Background(), Encode("E", morse.DefaultEncoderTiming())); err == nil {
		t.Error("Play() error = nil, want write error")
	}
}
