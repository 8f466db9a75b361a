// internal/dsp/detector.go
package dsp

import (
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidThreshold indicates threshold must be between 0 and 1
	ErrInvalidThreshold = errors.New("threshold must be between 0.0 and 1.0")
	// ErrInvalidHysteresis indicates hysteresis must be at least one block
	ErrInvalidHysteresis = errors.New("hysteresis must be at least 1")
	// ErrInvalidAGCDecay indicates AGC decay must be between 0 and 1
	ErrInvalidAGCDecay = errors.New("agc decay must be between 0.0 and 1.0")
	// ErrGoertzelRequired indicates a Goertzel instance is required
	ErrGoertzelRequired = errors.New("goertzel instance is required")
)

// agcFloor keeps the AGC reference above silence so noise does not normalize to full scale.
const agcFloor = 0.01

// KeyConfig holds the tone key detection settings.
type KeyConfig struct {
	// Threshold is the normalized magnitude above which the key counts as down (from config: audio.threshold)
	Threshold float64
	// Hysteresis is the number of consecutive blocks needed to change the key level (from config: audio.hysteresis)
	Hysteresis int
	// AGCEnabled normalizes the magnitude by a decaying peak (from config: audio.agc)
	AGCEnabled bool
	// AGCDecay is the per-block peak decay factor (from config: audio.agc_decay)
	AGCDecay float64
}

// DefaultKeyConfig returns settings that work for a keyed sidetone picked up by a microphone
func DefaultKeyConfig() KeyConfig {
	return KeyConfig{
		Threshold:  0.4,
		Hysteresis: 2,
		AGCEnabled: true,
		AGCDecay:   0.995,
	}
}

// ToneKey converts audio into a key level: the key is down while the target
// tone is present. Process runs on the audio thread; Pressed may be called
// from any goroutine.
type ToneKey struct {
	cfg      KeyConfig
	goertzel *Goertzel

	mu       sync.Mutex
	pending  []float32
	peak     float64
	state    bool
	streak   int
	lastMag  float64
	keyLevel atomic.Bool
}

// NewToneKey creates a tone key using g for magnitude measurement
func NewToneKey(cfg KeyConfig, g *Goertzel) (*ToneKey, error) {
	if g == nil {
		return nil, ErrGoertzelRequired
	}
	if cfg.Threshold < 0 || cfg.Threshold > 1 {
		return nil, ErrInvalidThreshold
	}
	if cfg.Hysteresis < 1 {
		return nil, ErrInvalidHysteresis
	}
	if cfg.AGCEnabled && (cfg.AGCDecay <= 0 || cfg.AGCDecay > 1) {
		return nil, ErrInvalidAGCDecay
	}
	return &ToneKey{
		cfg:      cfg,
		goertzel: g,
		pending:  make([]float32, 0, g.BlockSize()),
		peak:     agcFloor,
	}, nil
}

// Process consumes audio samples normalized to -1.0..1.0.
func (k *ToneKey) Process(samples []float32) {
	k.mu.Lock()
	defer k.mu.Unlock()

	block := k.goertzel.BlockSize()
	for len(samples) > 0 {
		n := min(block-len(k.pending), len(samples))
		k.pending = append(k.pending, samples[:n]...)
		samples = samples[n:]
		if len(k.pending) == block {
			k.processBlock(k.pending)
			k.pending = k.pending[:0]
		}
	}
}

func (k *ToneKey) processBlock(block []float32) {
	mag := k.goertzel.Magnitude(block)
	if k.cfg.AGCEnabled {
		if mag > k.peak {
			k.peak = mag
		} else {
			k.peak = max(k.peak*k.cfg.AGCDecay, agcFloor)
		}
		mag = min(mag/k.peak, 1)
	}
	k.lastMag = mag

	present := mag > k.cfg.Threshold
	if present == k.state {
		k.streak = 0
		return
	}
	k.streak++
	if k.streak >= k.cfg.Hysteresis {
		k.state = present
		k.streak = 0
		k.keyLevel.Store(present)
	}
}

// Pressed reports whether the tone is currently present
func (k *ToneKey) Pressed() bool {
	return k.keyLevel.Load()
}

// Magnitude returns the last (normalized) block magnitude, for level meters and debugging
func (k *ToneKey) Magnitude() float64 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.lastMag
}

// Reset forgets buffered audio and releases the key
func (k *ToneKey) Reset() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.pending = k.pending[:0]
	k.peak = agcFloor
	k.state = false
	k.streak = 0
	k.lastMag = 0
	k.keyLevel.Store(false)
}
