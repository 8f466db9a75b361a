// internal/encoder/session.go
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

// Console text. Lines end in CRLF so they render on raw-mode terminals.
const (
	Banner       = "\r\n=== MORSE ENCODER READY ===\r\nType a word (e.g., SOS) and press Enter.\r\n"
	ReceivedText = "\r\nReceived: "
	EncodingText = "\r\nEncoding: "
	DoneText     = "\r\nDone.\r\n"
	PromptText   = "\r\nReady for next word: "
)

// ErrPlayerRequired indicates a session cannot run without a player
var ErrPlayerRequired = errors.New("player is required")

// Observer receives a summary of every encoded line.
type Observer interface {
	LineEncoded(counts CharacterCounts, playback time.Duration)
}

// Session is the encoder main loop: it waits for completed lines, traces and
// plays each one, then acknowledges it so the next line can be accepted.
type Session struct {
	player   *Player
	timing   morse.EncoderTiming
	out      io.Writer
	observer Observer
}

// NewSession creates a session writing console text to out
func NewSession(player *Player, timing morse.EncoderTiming, out io.Writer) (*Session, error) {
	if player == nil {
		return nil, ErrPlayerRequired
	}
	if timing.Unit <= 0 {
		return nil, morse.ErrInvalidUnit
	}
	if out == nil {
		out = io.Discard
	}
	return &Session{player: player, timing: timing, out: out}, nil
}

// SetObserver registers an observer for encoded lines
func (s *Session) SetObserver(o Observer) {
	s.observer = o
}

// Run prints the banner and serves lines from the assembler until its line
// channel closes or ctx is cancelled.
func (s *Session) Run(ctx context.Context, a *Assembler) error {
	s.print(Banner)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-a.Lines():
			if !ok {
				return nil
			}
			s.print(ReceivedText + line)
			err := s.EncodeLine(ctx, line)
			a.Ack()
			if err != nil {
				return err
			}
			s.print(PromptText)
		}
	}
}

// EncodeLine traces and plays a single line.
func (s *Session) EncodeLine(ctx context.Context, line string) error {
	counts := Count(line)
	timeline := Encode(line, s.timing)
	total := TotalDuration(timeline)
	glog.V(1).Infof("encoding %q: %d encoded, %d spaces, %d skipped, %v playback",
		line, counts.Encoded, counts.Spaces, counts.Skipped, total)

	s.print(EncodingText)
	if err := s.player.Play(ctx, timeline); err != nil {
		return fmt.Errorf("play %q: %w", line, err)
	}
	s.print(DoneText)

	if s.observer != nil {
		s.observer.LineEncoded(counts, total)
	}
	return nil
}

func (s *Session) print(text string) {
	_, _ = io.WriteString(s.out, text)
}
