// internal/device/replay.go
package device

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrEmptyScript indicates a replay script without any steps
	ErrEmptyScript = errors.New("replay script has no steps")
	// ErrInvalidStep indicates a token that is not +<duration> or -<duration>
	ErrInvalidStep = errors.New("replay step must be +<duration> or -<duration>")
)

// Step is one constant-level stretch of a key timeline.
type Step struct {
	Pressed  bool
	Duration time.Duration
}

func (s Step) String() string {
	if s.Pressed {
		return "+" + s.Duration.String()
	}
	return "-" + s.Duration.String()
}

// ParseScript reads a replay script: whitespace separated "+180ms" (key down)
// and "-2.5s" (key up) tokens. A '#' comments out the rest of the line.
func ParseScript(r io.Reader) ([]Step, error) {
	var steps []Step
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, tok := range strings.Fields(text) {
			step, err := parseStep(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			steps = append(steps, step)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	if len(steps) == 0 {
		return nil, ErrEmptyScript
	}
	return steps, nil
}

func parseStep(tok string) (Step, error) {
	if len(tok) < 2 || (tok[0] != '+' && tok[0] != '-') {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidStep, tok)
	}
	d, err := time.ParseDuration(tok[1:])
	if err != nil || d <= 0 {
		return Step{}, fmt.Errorf("%w: %q", ErrInvalidStep, tok)
	}
	return Step{Pressed: tok[0] == '+', Duration: d}, nil
}

// ScriptedInput replays a key timeline against a clock. The timeline starts
// at the clock time the input was created; after the last step the key stays up.
type ScriptedInput struct {
	clock Clock
	start time.Time
	steps []Step
	total time.Duration
}

// NewScriptedInput starts replaying steps from clock.Now()
func NewScriptedInput(clock Clock, steps []Step) *ScriptedInput {
	var total time.Duration
	for _, s := range steps {
		total += s.Duration
	}
	return &ScriptedInput{
		clock: clock,
		start: clock.Now(),
		steps: append([]Step(nil), steps...),
		total: total,
	}
}

// Pressed reports the scripted level at the current clock time
func (s *ScriptedInput) Pressed() bool {
	elapsed := s.clock.Now().Sub(s.start)
	for _, step := range s.steps {
		if elapsed < step.Duration {
			return step.Pressed
		}
		elapsed -= step.Duration
	}
	return false
}

// Finished reports whether the whole script has played
func (s *ScriptedInput) Finished() bool {
	return s.clock.Now().Sub(s.start) >= s.total
}

// Duration is the total script length
func (s *ScriptedInput) Duration() time.Duration {
	return s.total
}
