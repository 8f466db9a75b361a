// internal/device/device.go
// Package device defines the collaborators the codec core talks to: a clock,
// a key input level and an output actuator.
package device

import (
	"time"
)

// Clock is a monotonic time source that can also block the caller.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// Input is a single binary key level.
type Input interface {
	// Pressed reports whether the key is currently down
	Pressed() bool
}

// Finite is implemented by inputs that run out, such as replay scripts.
type Finite interface {
	Finished() bool
}

// Actuator is a binary output (LED, sidetone, relay).
type Actuator interface {
	Set(on bool)
}

// SystemClock is the wall clock. time.Now carries a monotonic reading, so
// differences between two Now calls are not affected by clock steps.
type SystemClock struct{}

// Now returns the current time
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep pauses the calling goroutine for d
func (SystemClock) Sleep(d time.Duration) { time.Sleep(d) }

// ActuatorFunc adapts a function to Actuator.
type ActuatorFunc func(on bool)

// Set calls f(on)
func (f ActuatorFunc) Set(on bool) { f(on) }

// Nop is an actuator that does nothing
var Nop Actuator = ActuatorFunc(func(bool) {})

// Multi fans a level out to several actuators in order.
type Multi []Actuator

// Set forwards on to every actuator
func (m Multi) Set(on bool) {
	for _, a := range m {
		a.Set(on)
	}
}
