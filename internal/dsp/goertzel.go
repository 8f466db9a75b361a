// internal/dsp/goertzel.go
// Package dsp turns audio into a key level and a key level into a sidetone.
package dsp

import (
	"errors"
	"math"
)

var (
	// ErrInvalidBlockSize indicates block size must be positive
	ErrInvalidBlockSize = errors.New("block size must be positive")
	// ErrInvalidSampleRate indicates sample rate must be positive
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
	// ErrInvalidFrequency indicates frequency must be positive and below Nyquist
	ErrInvalidFrequency = errors.New("frequency must be positive and less than the Nyquist frequency")
)

// Goertzel measures the magnitude of a single frequency bin over a block of
// samples. It is cheaper than an FFT when only the key tone matters.
type Goertzel struct {
	frequency  float64
	sampleRate float64
	blockSize  int
	coeff      float64 // 2*cos(2*pi*f/fs)
	normalizer float64 // 2/N, so a full-scale sine reads ~1.0
}

// NewGoertzel creates a detector for frequency at sampleRate over blockSize samples
func NewGoertzel(frequency, sampleRate float64, blockSize int) (*Goertzel, error) {
	if blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if sampleRate <= 0 {
		return nil, ErrInvalidSampleRate
	}
	if frequency <= 0 || frequency >= sampleRate/2 {
		return nil, ErrInvalidFrequency
	}
	omega := 2 * math.Pi * frequency / sampleRate
	return &Goertzel{
		frequency:  frequency,
		sampleRate: sampleRate,
		blockSize:  blockSize,
		coeff:      2 * math.Cos(omega),
		normalizer: 2 / float64(blockSize),
	}, nil
}

// BlockSize returns the number of samples Magnitude consumes
func (g *Goertzel) BlockSize() int { return g.blockSize }

// Frequency returns the target frequency in Hz
func (g *Goertzel) Frequency() float64 { return g.frequency }

// Magnitude returns the normalized magnitude of the target frequency in the
// first BlockSize samples. Short blocks are zero padded.
func (g *Goertzel) Magnitude(samples []float32) float64 {
	var s1, s2 float64
	n := min(len(samples), g.blockSize)
	for i := 0; i < n; i++ {
		s0 := float64(samples[i]) + g.coeff*s1 - s2
		s2, s1 = s1, s0
	}
	for i := n; i < g.blockSize; i++ {
		s0 := g.coeff*s1 - s2
		s2, s1 = s1, s0
	}
	power := s1*s1 + s2*s2 - g.coeff*s1*s2
	if power < 0 {
		power = 0
	}
	return math.Sqrt(power) * g.normalizer
}
