// internal/decoder/pattern.go
package decoder

import (
	"github.com/ColonelBlimp/morsekey/internal/morse"
)

// DefaultPatternCapacity is how many symbols one letter may accumulate
const DefaultPatternCapacity = 9

// MaxPatternCapacity bounds the configurable capacity
const MaxPatternCapacity = 16

// PendingPattern accumulates the symbols of the letter being keyed.
// Appends past the capacity are dropped; the stored pattern never grows
// beyond it.
type PendingPattern struct {
	symbols []morse.Symbol
}

// NewPendingPattern creates an empty pattern holding at most capacity symbols
func NewPendingPattern(capacity int) (*PendingPattern, error) {
	if capacity <= 0 || capacity > MaxPatternCapacity {
		return nil, ErrInvalidPatternCapacity
	}
	return &PendingPattern{symbols: make([]morse.Symbol, 0, capacity)}, nil
}

// Append stores s and reports whether there was room for it
func (p *PendingPattern) Append(s morse.Symbol) bool {
	if len(p.symbols) == cap(p.symbols) {
		return false
	}
	p.symbols = append(p.symbols, s)
	return true
}

// Len returns the number of stored symbols
func (p *PendingPattern) Len() int { return len(p.symbols) }

// Cap returns the capacity
func (p *PendingPattern) Cap() int { return cap(p.symbols) }

// Empty reports whether no symbol is stored
func (p *PendingPattern) Empty() bool { return len(p.symbols) == 0 }

// Seal returns a copy of the stored symbols for lookup
func (p *PendingPattern) Seal() morse.Pattern {
	return append(morse.Pattern(nil), p.symbols...)
}

// Clear drops all stored symbols
func (p *PendingPattern) Clear() { p.symbols = p.symbols[:0] }

func (p *PendingPattern) String() string {
	return morse.Pattern(p.symbols).String()
}
