// internal/encoder/line.go
package encoder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
)

// DefaultLineCapacity is the number of characters a line can hold
const DefaultLineCapacity = 99

// Control bytes that end interactive input in raw terminal mode
const (
	ctrlC = 0x03
	ctrlD = 0x04
)

var (
	// ErrInvalidCapacity indicates a buffer capacity must be positive
	ErrInvalidCapacity = errors.New("capacity must be positive")
	// ErrInterrupted is returned by ReadFrom when the user hits Ctrl-C or Ctrl-D
	ErrInterrupted = errors.New("input interrupted")
)

// LineBuffer is a fixed-capacity character accumulator. Capacity counts
// bytes, not runes: bytes past it are dropped, so a multibyte character at
// the limit may be cut and is then skipped by Encode as unsupported. The
// content already held is never disturbed.
type LineBuffer struct {
	buf []byte
}

// NewLineBuffer creates an empty buffer holding at most capacity bytes
func NewLineBuffer(capacity int) (*LineBuffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &LineBuffer{buf: make([]byte, 0, capacity)}, nil
}

// Append adds c and reports whether it fit
func (b *LineBuffer) Append(c byte) bool {
	if len(b.buf) == cap(b.buf) {
		return false
	}
	b.buf = append(b.buf, c)
	return true
}

// Len returns the number of buffered bytes
func (b *LineBuffer) Len() int { return len(b.buf) }

// Cap returns the buffer capacity
func (b *LineBuffer) Cap() int { return cap(b.buf) }

// String returns the buffered text
func (b *LineBuffer) String() string { return string(b.buf) }

// Reset empties the buffer
func (b *LineBuffer) Reset() { b.buf = b.buf[:0] }

// DropReason says why the assembler discarded an input byte.
type DropReason string

const (
	// DropOverflow means the line buffer was full
	DropOverflow DropReason = "overflow"
	// DropBusy means the previous line had not been acknowledged yet
	DropBusy DropReason = "busy"
)

// Assembler collects bytes into lines and hands each completed line to a
// single consumer through a one-slot channel.
//
// Feed is the producer side and must only be called from one goroutine.
// The ready flag is set by the producer when it hands a line over and
// cleared by the consumer through Ack once the line has been processed.
// While it is set no new line can be handed over.
type Assembler struct {
	buf   *LineBuffer
	echo  io.Writer
	lines chan string
	acked chan struct{}
	ready atomic.Bool

	// Wait makes ReadFrom hold off reading while a line is pending instead
	// of discarding what arrives. Used for piped input.
	Wait bool

	// OnDrop, when set, is called for every discarded byte
	OnDrop func(b byte, reason DropReason)
}

// NewAssembler creates an assembler with a line buffer of the given capacity.
// Accepted characters are echoed to echo; nil disables echo.
func NewAssembler(capacity int, echo io.Writer) (*Assembler, error) {
	buf, err := NewLineBuffer(capacity)
	if err != nil {
		return nil, err
	}
	if echo == nil {
		echo = io.Discard
	}
	return &Assembler{
		buf:   buf,
		echo:  echo,
		lines: make(chan string, 1),
		acked: make(chan struct{}, 1),
	}, nil
}

// Lines is the consumer side. It is closed when ReadFrom returns.
func (a *Assembler) Lines() <-chan string {
	return a.lines
}

// Ready reports whether a line has been handed over and not yet acknowledged
func (a *Assembler) Ready() bool {
	return a.ready.Load()
}

// Ack tells the producer the last line has been processed.
func (a *Assembler) Ack() {
	a.ready.Store(false)
	select {
	case a.acked <- struct{}{}:
	default:
	}
}

// Feed processes one received byte. CR or LF completes the line; empty lines
// are ignored.
func (a *Assembler) Feed(c byte) {
	if c == '\r' || c == '\n' {
		if a.ready.Load() || a.buf.Len() == 0 {
			return
		}
		line := a.buf.String()
		a.buf.Reset()
		a.ready.Store(true)
		// Cannot block: the slot is only refilled after Ack cleared ready.
		a.lines <- line
		return
	}

	if a.ready.Load() {
		a.drop(c, DropBusy)
		return
	}
	if !a.buf.Append(c) {
		a.drop(c, DropOverflow)
		return
	}
	_, _ = a.echo.Write([]byte{c})
}

func (a *Assembler) drop(c byte, reason DropReason) {
	if a.OnDrop != nil {
		a.OnDrop(c, reason)
	}
}

// ReadFrom feeds every byte read from r until EOF, Ctrl-C/Ctrl-D or
// cancellation. A final unterminated line is handed over on EOF. Lines is
// closed on return.
func (a *Assembler) ReadFrom(ctx context.Context, r io.Reader) error {
	defer close(a.lines)

	p := make([]byte, 64)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(p)
		for _, c := range p[:n] {
			if c == ctrlC || c == ctrlD {
				return ErrInterrupted
			}
			if a.Wait {
				if werr := a.waitAck(ctx); werr != nil {
					return werr
				}
			}
			a.Feed(c)
		}
		if errors.Is(err, io.EOF) {
			if a.Wait {
				if werr := a.waitAck(ctx); werr != nil {
					return werr
				}
			}
			a.Feed('\n')
			return nil
		}
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
	}
}

func (a *Assembler) waitAck(ctx context.Context) error {
	for a.ready.Load() {
		select {
		case <-a.acked:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
