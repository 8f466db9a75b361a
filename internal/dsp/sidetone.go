// internal/dsp/sidetone.go
package dsp

import (
	"errors"
	"math"
	"sync/atomic"
	"time"
)

// DefaultRamp is the attack/release time that keeps the sidetone free of key clicks
const DefaultRamp = 5 * time.Millisecond

// ErrInvalidVolume indicates volume must be between 0 and 1
var ErrInvalidVolume = errors.New("volume must be between 0.0 and 1.0")

// Sidetone is a keyed sine oscillator. Set may be called from any goroutine;
// Fill runs on the audio thread.
type Sidetone struct {
	step   float64 // phase increment per sample
	volume float64
	ramp   float64 // envelope change per sample

	phase    float64
	envelope float64
	keyed    atomic.Bool
}

// NewSidetone creates an oscillator at frequency for the given sample rate
func NewSidetone(frequency, sampleRate, volume float64, ramp time.Duration) (*Sidetone, error) {
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}
	if volume < 0 || volume > 1 {
		return nil, ErrInvalidVolume
	}
	rampSamples := ramp.Seconds() * sampleRate
	rampStep := 1.0
	if rampSamples >= 1 {
		rampStep = 1 / rampSamples
	}
	return &Sidetone{
		step:   2 * math.Pi * frequency / sampleRate,
		volume: volume,
		ramp:   rampStep,
	}, nil
}

// Set keys (true) or releases (false) the tone
func (s *Sidetone) Set(on bool) {
	s.keyed.Store(on)
}

// Keyed reports the current key state
func (s *Sidetone) Keyed() bool {
	return s.keyed.Load()
}

// Fill writes the next len(out) mono samples.
func (s *Sidetone) Fill(out []float32) {
	target := 0.0
	if s.keyed.Load() {
		target = 1.0
	}
	for i := range out {
		switch {
		case s.envelope < target:
			s.envelope = min(s.envelope+s.ramp, target)
		case s.envelope > target:
			s.envelope = max(s.envelope-s.ramp, target)
		}
		out[i] = float32(math.Sin(s.phase) * s.envelope * s.volume)
		s.phase += s.step
		if s.phase >= 2*math.Pi {
			s.phase -= 2 * math.Pi
		}
	}
}
