// internal/morse/timing.go
package morse

import (
	"errors"
	"time"
)

// Element and gap ratios in units (ITU)
const (
	DotUnits            = 1
	DashUnits           = 3
	IntraSymbolGapUnits = 1
	InterLetterGapUnits = 3
	InterWordGapUnits   = 7
)

// Reference timing values
const (
	DefaultUnit          = 200 * time.Millisecond
	DefaultDebounce      = 50 * time.Millisecond
	DefaultDotThreshold  = 400 * time.Millisecond
	DefaultLetterTimeout = 2000 * time.Millisecond
	DefaultWordTimeout   = 4000 * time.Millisecond
)

var (
	// ErrInvalidUnit indicates the encoder unit must be positive
	ErrInvalidUnit = errors.New("unit must be positive")
	// ErrInvalidDebounce indicates debounce must be positive and shorter than the dot threshold
	ErrInvalidDebounce = errors.New("debounce must be positive and shorter than the dot threshold")
	// ErrInvalidDotThreshold indicates the dot/dash threshold must be positive
	ErrInvalidDotThreshold = errors.New("dot threshold must be positive")
	// ErrInvalidLetterTimeout indicates the letter timeout must be positive
	ErrInvalidLetterTimeout = errors.New("letter timeout must be positive")
	// ErrInvalidWordTimeout indicates the word timeout must exceed the letter timeout
	ErrInvalidWordTimeout = errors.New("word timeout must be longer than the letter timeout")
)

// EncoderTiming holds the playback durations. Every value derives from Unit.
type EncoderTiming struct {
	Unit           time.Duration
	Dot            time.Duration
	Dash           time.Duration
	IntraSymbolGap time.Duration
	InterLetterGap time.Duration
	InterWordGap   time.Duration
}

// NewEncoderTiming derives all encoder durations from unit.
func NewEncoderTiming(unit time.Duration) (EncoderTiming, error) {
	if unit <= 0 {
		return EncoderTiming{}, ErrInvalidUnit
	}
	return EncoderTiming{
		Unit:           unit,
		Dot:            DotUnits * unit,
		Dash:           DashUnits * unit,
		IntraSymbolGap: IntraSymbolGapUnits * unit,
		InterLetterGap: InterLetterGapUnits * unit,
		InterWordGap:   InterWordGapUnits * unit,
	}, nil
}

// DefaultEncoderTiming returns the 200ms-unit reference timing
func DefaultEncoderTiming() EncoderTiming {
	t, _ := NewEncoderTiming(DefaultUnit)
	return t
}

// ToneFor returns the tone duration for s
func (t EncoderTiming) ToneFor(s Symbol) time.Duration {
	if s == Dash {
		return t.Dash
	}
	return t.Dot
}

// DecoderTiming holds the classification threshold and segmentation timeouts.
type DecoderTiming struct {
	// Debounce is how long a press must persist before it is measured
	Debounce time.Duration
	// DotThreshold: a hold strictly shorter than this is a dot, otherwise a dash
	DotThreshold time.Duration
	// LetterTimeout is the idle time after a release that finalizes the letter
	LetterTimeout time.Duration
	// WordTimeout is the idle time after a release that emits a word gap
	WordTimeout time.Duration
}

// DefaultDecoderTiming returns the reference decoder timing
func DefaultDecoderTiming() DecoderTiming {
	return DecoderTiming{
		Debounce:      DefaultDebounce,
		DotThreshold:  DefaultDotThreshold,
		LetterTimeout: DefaultLetterTimeout,
		WordTimeout:   DefaultWordTimeout,
	}
}

// Validate checks the ordering constraints between the decoder durations.
func (t DecoderTiming) Validate() error {
	if t.DotThreshold <= 0 {
		return ErrInvalidDotThreshold
	}
	if t.Debounce <= 0 || t.Debounce >= t.DotThreshold {
		return ErrInvalidDebounce
	}
	if t.LetterTimeout <= 0 {
		return ErrInvalidLetterTimeout
	}
	if t.WordTimeout <= t.LetterTimeout {
		return ErrInvalidWordTimeout
	}
	return nil
}

// Classify maps a hold duration to a symbol. The threshold itself is a dash.
func (t DecoderTiming) Classify(hold time.Duration) Symbol {
	if hold < t.DotThreshold {
		return Dot
	}
	return Dash
}
