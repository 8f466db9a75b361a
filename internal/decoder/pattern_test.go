package decoder

import (
	"testing"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

func TestPendingPattern_Capacity(t *testing.T) {
	p, err := NewPendingPattern(DefaultPatternCapacity)
	if err != nil {
		t.Fatalf("NewPendingPattern() error = %v", err)
	}
	if !p.Empty() || p.Cap() != 9 {
		t.Fatalf("new pattern: len=%d cap=%d", p.Len(), p.Cap())
	}

	for i := 0; i < 9; i++ {
		if !p.Append(morse.Dot) {
			t.Fatalf("Append() #%d = false", i+1)
		}
	}
	if p.Append(morse.Dash) {
		t.Error("10th Append() = true")
	}
	if p.Len() != 9 || p.String() != "........." {
		t.Errorf("pattern = %q (len %d)", p.String(), p.Len())
	}
}

func TestPendingPattern_SealIsCopy(t *testing.T) {
	p, _ := NewPendingPattern(4)
	p.Append(morse.Dash)
	sealed := p.Seal()
	p.Clear()
	p.Append(morse.Dot)

	if sealed.String() != "-" {
		t.Errorf("sealed pattern changed to %q", sealed)
	}
	if p.String() != "." {
		t.Errorf("pattern after Clear+Append = %q", p.String())
	}
}

func TestNewPendingPattern_InvalidCapacity(t *testing.T) {
	for _, c := range []int{0, -3, 17} {
		if _, err := NewPendingPattern(c); err != ErrInvalidPatternCapacity {
			t.Errorf("NewPendingPattern(%d) error = %v, want %v", c, err, ErrInvalidPatternCapacity)
		}
	}
}
