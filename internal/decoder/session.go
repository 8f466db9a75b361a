// internal/decoder/session.go
package decoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// ErrPollerRequired indicates a session needs a poller
var ErrPollerRequired = errors.New("poller is required")

// Session writes the decoder banner and then every output character to the
// text sink while the poller runs.
type Session struct {
	poller    *Poller
	out       io.Writer
	observers []DecodedCallback
}

// NewSession creates a session writing to out
func NewSession(poller *Poller, out io.Writer) (*Session, error) {
	if poller == nil {
		return nil, ErrPollerRequired
	}
	if out == nil {
		out = io.Discard
	}
	return &Session{poller: poller, out: out}, nil
}

// AddObserver registers cb to see every output after it was written
func (s *Session) AddObserver(cb DecodedCallback) {
	if cb != nil {
		s.observers = append(s.observers, cb)
	}
}

// Banner returns the start-up text for the configured timing
func (s *Session) Banner() string {
	t := s.poller.seg.Timing()
	return fmt.Sprintf("\r\n=== SYNCHRONIZED DECODER ===\r\n"+
		"1. Tap the key.\r\n"+
		"2. Wait %v to see the letter, %v for a space.\r\n"+
		"OUTPUT: ", t.LetterTimeout, t.WordTimeout)
}

// Run decodes until the poller stops.
func (s *Session) Run(ctx context.Context) error {
	if _, err := io.WriteString(s.out, s.Banner()); err != nil {
		return fmt.Errorf("write banner: %w", err)
	}

	buf := make([]byte, utf8.UTFMax)
	s.poller.seg.SetCallback(func(o Output) {
		n := utf8.EncodeRune(buf, o.Character)
		_, _ = s.out.Write(buf[:n])
		for _, obs := range s.observers {
			obs(o)
		}
	})
	defer s.poller.seg.SetCallback(nil)

	return s.poller.Run(ctx)
}
