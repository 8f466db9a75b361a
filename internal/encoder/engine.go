// internal/encoder/engine.go
// Package encoder turns text into a timed tone/gap timeline and plays it on an actuator.
package encoder

import (
	"iter"
	"strings"
	"time"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

// SpaceTrace is written to the trace sink for every space in the input
const SpaceTrace = "[SPACE] "

// EventKind identifies what a timeline event asks the player to do.
type EventKind uint8

const (
	// EventTrace carries text for the trace sink
	EventTrace EventKind = iota
	// EventTone keys the actuator for Duration
	EventTone
	// EventGap keeps the actuator released for Duration
	EventGap
)

func (k EventKind) String() string {
	switch k {
	case EventTrace:
		return "trace"
	case EventTone:
		return "tone"
	case EventGap:
		return "gap"
	default:
		return "unknown"
	}
}

// Event is one step of an encoded timeline.
type Event struct {
	Kind     EventKind
	Duration time.Duration // tone and gap only
	Text     string        // trace only
	Char     rune          // the input character the event belongs to
}

// Tone returns a tone event of duration d
func Tone(d time.Duration) Event { return Event{Kind: EventTone, Duration: d} }

// Gap returns a gap event of duration d
func Gap(d time.Duration) Event { return Event{Kind: EventGap, Duration: d} }

// Trace returns a trace event carrying text
func Trace(text string) Event { return Event{Kind: EventTrace, Text: text} }

// Encode returns the timeline for text. Events are produced lazily, in order.
//
// For a supported character the pattern trace comes first, then every symbol
// as a tone followed by an intra-symbol gap (the last symbol included), then
// one inter-letter gap. A space yields the space trace and an inter-word gap.
// Anything else yields nothing.
func Encode(text string, timing morse.EncoderTiming) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		for _, c := range text {
			c = morse.Upper(c)
			if pattern, ok := morse.Encode(c); ok {
				if !yield(Event{Kind: EventTrace, Text: pattern.String() + " ", Char: c}) {
					return
				}
				for _, s := range pattern {
					if !yield(Event{Kind: EventTone, Duration: timing.ToneFor(s), Char: c}) {
						return
					}
					if !yield(Event{Kind: EventGap, Duration: timing.IntraSymbolGap, Char: c}) {
						return
					}
				}
				if !yield(Event{Kind: EventGap, Duration: timing.InterLetterGap, Char: c}) {
					return
				}
				continue
			}
			if c == ' ' {
				if !yield(Event{Kind: EventTrace, Text: SpaceTrace, Char: c}) {
					return
				}
				if !yield(Event{Kind: EventGap, Duration: timing.InterWordGap, Char: c}) {
					return
				}
			}
		}
	}
}

// TotalDuration sums the tone and gap durations of a timeline.
func TotalDuration(events iter.Seq[Event]) time.Duration {
	var total time.Duration
	for e := range events {
		if e.Kind != EventTrace {
			total += e.Duration
		}
	}
	return total
}

// TraceText concatenates the trace events of a timeline.
func TraceText(events iter.Seq[Event]) string {
	var b strings.Builder
	for e := range events {
		if e.Kind == EventTrace {
			b.WriteString(e.Text)
		}
	}
	return b.String()
}

// CharacterCounts reports how a line splits into encodable characters,
// spaces and skipped (unsupported) characters.
type CharacterCounts struct {
	Encoded int
	Spaces  int
	Skipped int
}

// Count classifies every character of text the way Encode does
func Count(text string) CharacterCounts {
	var c CharacterCounts
	for _, r := range text {
		switch {
		case morse.Supported(r):
			c.Encoded++
		case r == ' ':
			c.Spaces++
		default:
			c.Skipped++
		}
	}
	return c
}
