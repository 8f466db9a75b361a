package encoder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

func TestLineBuffer_Capacity(t *testing.T) {
	if _, err := NewLineBuffer(0); err != ErrInvalidCapacity {
		t.Errorf("NewLineBuffer(0) error = %v, want %v", err, ErrInvalidCapacity)
	}

	b, err := NewLineBuffer(3)
	if err != nil {
		t.Fatalf("NewLineBuffer() error = %v", err)
	}
	for _, c := range []byte("ABCD") {
		b.Append(c)
	}
	if b.String() != "ABC" || b.Len() != 3 || b.Cap() != 3 {
		t.Errorf("buffer = %q len=%d cap=%d", b.String(), b.Len(), b.Cap())
	}
	if b.Append('E') {
		t.Error("Append() on full buffer = true")
	}
	b.Reset()
	if b.Len() != 0 || !b.Append('Z') {
		t.Error("Reset() did not empty the buffer")
	}
}

func TestLineBuffer_CutRuneIsSkipped(t *testing.T) {
	b, _ := NewLineBuffer(2)
	for _, c := range []byte("Eé") {
		b.Append(c)
	}
	if b.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", b.Len())
	}
	got := TraceText(Encode(b.String(), morse.DefaultEncoderTiming()))
	if got != ". " {
		t.Errorf("trace of cut line = %q, want %q", got, ". ")
	}
}

func feed(a *Assembler, s string) {
	for i := 0; i < len(s); i++ {
		a.Feed(s[i])
	}
}

func TestAssembler_HandsOverLine(t *testing.T) {
	var echo bytes.Buffer
	a, err := NewAssembler(DefaultLineCapacity, &echo)
	if err != nil {
		t.Fatalf("NewAssembler() error = %v", err)
	}

	feed(a, "sos\r")
	if !a.Ready() {
		t.Fatal("Ready() = false after terminator")
	}
	select {
	case line := <-a.Lines():
		if line != "sos" {
			t.Errorf("line = %q, want sos", line)
		}
	default:
		t.Fatal("no line handed over")
	}
	if echo.String() != "sos" {
		t.Errorf("echo = %q, want sos", echo.String())
	}

	a.Ack()
	if a.Ready() {
		t.Error("Ready() = true after Ack")
	}
	feed(a, "e\n")
	if line := <-a.Lines(); line != "e" {
		t.Errorf("second line = %q, want e", line)
	}
}

func TestAssembler_IgnoresEmptyLines(t *testing.T) {
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	feed(a, "\r\n\n\r")
	if a.Ready() {
		t.Error("empty lines were handed over")
	}
	feed(a, "A\r\n")
	if line := <-a.Lines(); line != "A" {
		t.Errorf("line = %q, want A", line)
	}
}

func TestAssembler_OverflowDropsSilently(t *testing.T) {
	var drops []DropReason
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	a.OnDrop = func(_ byte, r DropReason) { drops = append(drops, r) }

	feed(a, strings.Repeat("E", 120)+"\n")
	line := <-a.Lines()
	if len(line) != DefaultLineCapacity {
		t.Errorf("len(line) = %d, want %d", len(line), DefaultLineCapacity)
	}
	if len(drops) != 21 || drops[0] != DropOverflow {
		t.Errorf("drops = %d (%v), want 21 overflow", len(drops), drops)
	}
}

func TestAssembler_BusyDropsUntilAck(t *testing.T) {
	var busy int
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	a.OnDrop = func(_ byte, r DropReason) {
		if r == DropBusy {
			busy++
		}
	}

	feed(a, "SOS\n")
	feed(a, "TYPED DURING PLAYBACK\n")
	if busy != len("TYPED DURING PLAYBACK") {
		t.Errorf("busy drops = %d", busy)
	}
	if got := <-a.Lines(); got != "SOS" {
		t.Errorf("line = %q", got)
	}
	select {
	case extra := <-a.Lines():
		t.Fatalf("unexpected second line %q before Ack", extra)
	default:
	}

	a.Ack()
	feed(a, "OK\n")
	if got := <-a.Lines(); got != "OK" {
		t.Errorf("line after Ack = %q, want OK", got)
	}
}

func TestAssembler_ReadFrom_Interrupt(t *testing.T) {
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	err := a.ReadFrom(context.Background(), strings.NewReader("AB\x03CD\n"))
	if !errors.Is(err, ErrInterrupted) {
		t.Fatalf("ReadFrom() error = %v, want %v", err, ErrInterrupted)
	}
	if _, ok := <-a.Lines(); ok {
		t.Error("Lines() not closed after interrupt")
	}
}

func TestAssembler_ReadFrom_FlushesOnEOF(t *testing.T) {
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	if err := a.ReadFrom(context.Background(), strings.NewReader("CQ DE")); err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if line := <-a.Lines(); line != "CQ DE" {
		t.Errorf("line = %q, want %q", line, "CQ DE")
	}
	if _, ok := <-a.Lines(); ok {
		t.Error("Lines() not closed after EOF")
	}
}

func TestAssembler_ReadFrom_WaitKeepsEveryLine(t *testing.T) {
	a, _ := NewAssembler(DefaultLineCapacity, nil)
	a.Wait = true

	done := make(chan error, 1)
	go func() {
		done <- a.ReadFrom(context.Background(), strings.NewReader("ONE\nTWO\nTHREE"))
	}()

	var got []string
	for line := range a.Lines() {
		got = append(got, line)
		a.Ack()
	}
	if err := <-done; err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}
	if strings.Join(got, ",") != "ONE,TWO,THREE" {
		t.Errorf("lines = %v", got)
	}
}

type blockingReader struct{}

func (blockingReader) Read(p []byte) (int, error) {
	p[0] = 'X'
	return 1, nil
}

func TestAssembler_ReadFrom_Cancel(t *testing.T) {
	a, _ := NewAssembler(4, io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := a.ReadFrom(ctx, blockingReader{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ReadFrom() error = %v, want deadline exceeded", err)
	}
}
