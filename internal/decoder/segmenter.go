// internal/decoder/segmenter.go
// Package decoder turns key hold durations into symbols, letters and word gaps.
package decoder

import (
	"errors"
	"time"

	"github.com/golang/glog"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

// UnknownCharacter is emitted for a finalized pattern with no table entry
const UnknownCharacter = '?'

var (
	// ErrInvalidPatternCapacity indicates the pending pattern capacity is out of range
	ErrInvalidPatternCapacity = errors.New("pattern capacity must be between 1 and 16")
)

// State is the segmentation state between key edges.
type State uint8

const (
	// StateIdle is the state before the first symbol
	StateIdle State = iota
	// StateBuildingLetter means symbols have been keyed and the letter is open
	StateBuildingLetter
	// StateLetterReady means the letter was finalized and a word gap may follow
	StateLetterReady
	// StateWordGapEmitted means the word gap was emitted and nothing more will be until the next symbol
	StateWordGapEmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuildingLetter:
		return "building-letter"
	case StateLetterReady:
		return "letter-ready"
	case StateWordGapEmitted:
		return "word-gap-emitted"
	default:
		return "unknown"
	}
}

// OutputKind identifies a decoder output.
type OutputKind uint8

const (
	// OutputSymbol is the echo of one classified dot or dash
	OutputSymbol OutputKind = iota
	// OutputLetter is a finalized letter (or UnknownCharacter)
	OutputLetter
	// OutputWordGap is a single space after the word timeout
	OutputWordGap
)

func (k OutputKind) String() string {
	switch k {
	case OutputSymbol:
		return "symbol"
	case OutputLetter:
		return "letter"
	case OutputWordGap:
		return "word-gap"
	default:
		return "unknown"
	}
}

// Output is one piece of decoder output. Character is what goes to the text
// sink: '.' or '-' for a symbol, the letter or '?' for a letter, ' ' for a
// word gap.
type Output struct {
	Kind      OutputKind
	Character rune
	Timestamp time.Time

	// Symbol outputs
	Symbol morse.Symbol
	Hold   time.Duration
	Stored bool // false when the pending pattern was already full

	// Letter outputs
	Pattern morse.Pattern
	Matched bool
}

// DecodedCallback receives every output. It runs on the segmenter's goroutine
// and must not block for long: the hold measurement waits on it.
type DecodedCallback func(output Output)

// Segmenter is the decoder state machine. It is driven by Press/Release edges
// and by Tick while the key is up. A Segmenter is owned by one goroutine.
type Segmenter struct {
	timing  morse.DecoderTiming
	pattern *PendingPattern

	state       State
	pressed     bool
	pressStart  time.Time
	lastRelease time.Time

	callback DecodedCallback
}

// NewSegmenter creates a segmenter in the idle state
func NewSegmenter(timing morse.DecoderTiming, capacity int) (*Segmenter, error) {
	if err := timing.Validate(); err != nil {
		return nil, err
	}
	pattern, err := NewPendingPattern(capacity)
	if err != nil {
		return nil, err
	}
	return &Segmenter{timing: timing, pattern: pattern}, nil
}

// SetCallback sets the output callback
func (s *Segmenter) SetCallback(cb DecodedCallback) {
	s.callback = cb
}

// Reset returns to idle with an empty pattern and starts the idle clock at now.
func (s *Segmenter) Reset(now time.Time) {
	s.state = StateIdle
	s.pressed = false
	s.pressStart = time.Time{}
	s.lastRelease = now
	s.pattern.Clear()
}

// State returns the current state
func (s *Segmenter) State() State { return s.state }

// Pending returns a copy of the symbols of the open letter
func (s *Segmenter) Pending() morse.Pattern { return s.pattern.Seal() }

// Timing returns the decoder timing in use
func (s *Segmenter) Timing() morse.DecoderTiming { return s.timing }

// Press starts timing a confirmed (debounced) key press.
// A second Press before Release is ignored.
func (s *Segmenter) Press(now time.Time) {
	if s.pressed {
		return
	}
	s.pressed = true
	s.pressStart = now
}

// abandon forgets an unfinished press without classifying it
func (s *Segmenter) abandon() { s.pressed = false }

// Release ends the hold, classifies it and echoes the symbol. The symbol is
// echoed even when the pending pattern is full and it cannot be stored.
// It reports false if there was no press to release.
func (s *Segmenter) Release(now time.Time) (morse.Symbol, bool) {
	if !s.pressed {
		return morse.Dot, false
	}
	s.pressed = false

	hold := now.Sub(s.pressStart)
	sym := s.timing.Classify(hold)
	stored := s.pattern.Append(sym)
	if !stored {
		glog.V(1).Infof("pattern full at %d symbols, dropping %v", s.pattern.Len(), sym)
	}
	glog.V(2).Infof("release after %v: %v", hold, sym)

	s.emit(Output{
		Kind:      OutputSymbol,
		Character: sym.Rune(),
		Timestamp: now,
		Symbol:    sym,
		Hold:      hold,
		Stored:    stored,
	})

	s.lastRelease = now
	s.state = StateBuildingLetter
	return sym, true
}

// Tick evaluates the letter and word timeouts. It does nothing while the key
// is held.
func (s *Segmenter) Tick(now time.Time) {
	if s.pressed {
		return
	}
	idle := now.Sub(s.lastRelease)

	if s.state == StateBuildingLetter && idle > s.timing.LetterTimeout {
		s.finalize(now)
	}

	if s.pattern.Empty() && idle > s.timing.WordTimeout &&
		(s.state == StateLetterReady || s.state == StateIdle) {
		s.emit(Output{Kind: OutputWordGap, Character: ' ', Timestamp: now})
		s.state = StateWordGapEmitted
	}
}

func (s *Segmenter) finalize(now time.Time) {
	p := s.pattern.Seal()
	r, ok := morse.Decode(p)
	if !ok {
		r = UnknownCharacter
	}
	glog.V(1).Infof("letter %q from %q", r, p)

	s.pattern.Clear()
	s.state = StateLetterReady
	s.emit(Output{
		Kind:      OutputLetter,
		Character: r,
		Timestamp: now,
		Pattern:   p,
		Matched:   ok,
	})
}

func (s *Segmenter) emit(o Output) {
	if s.callback != nil {
		s.callback(o)
	}
}
