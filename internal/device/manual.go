// internal/device/manual.go
package device

import (
	"sync"
	"time"
)

// ManualClock is a Clock whose time only moves when Sleep or Advance is called.
// It lets the encoder and decoder run at simulated speed.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a clock starting at start
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the simulated time
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the simulated time by d without blocking
func (c *ManualClock) Sleep(d time.Duration) {
	c.Advance(d)
}

// Advance moves the simulated time forward by d. Negative values are ignored.
func (c *ManualClock) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Transition is one actuator level change seen by a RecordingActuator.
type Transition struct {
	On bool
	At time.Time
}

// RecordingActuator remembers every Set call with the clock time it happened at.
type RecordingActuator struct {
	Clock Clock

	mu          sync.Mutex
	transitions []Transition
	on          bool
}

// Set records the level change
func (r *RecordingActuator) Set(on bool) {
	var at time.Time
	if r.Clock != nil {
		at = r.Clock.Now()
	}
	r.mu.Lock()
	r.transitions = append(r.transitions, Transition{On: on, At: at})
	r.on = on
	r.mu.Unlock()
}

// On reports the last level set
func (r *RecordingActuator) On() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// Transitions returns a copy of the recorded changes
func (r *RecordingActuator) Transitions() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

// OnDurations returns how long each on-period lasted, in order.
// An on-period still open at the end is not included.
func (r *RecordingActuator) OnDurations() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	var start time.Time
	on := false
	for _, tr := range r.transitions {
		switch {
		case tr.On && !on:
			start, on = tr.At, true
		case !tr.On && on:
			out = append(out, tr.At.Sub(start))
			on = false
		}
	}
	return out
}
