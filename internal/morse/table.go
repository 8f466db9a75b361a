// internal/morse/table.go
// Package morse holds the shared symbol table and timing for the encoder and decoder roles.
package morse

import (
	"errors"
	"fmt"
	"strings"
)

// MaxPatternLength is the longest pattern in the table (digits use five symbols)
const MaxPatternLength = 5

var (
	// ErrEmptyPattern indicates a pattern string with no symbols
	ErrEmptyPattern = errors.New("pattern is empty")
	// ErrInvalidSymbol indicates a pattern string containing something other than '.' or '-'
	ErrInvalidSymbol = errors.New("pattern may only contain '.' and '-'")
)

// Symbol is a single element of a Morse pattern.
type Symbol uint8

const (
	// Dot is the short element
	Dot Symbol = iota
	// Dash is the long element
	Dash
)

// Rune returns the printable form of the symbol
func (s Symbol) Rune() rune {
	if s == Dash {
		return '-'
	}
	return '.'
}

func (s Symbol) String() string {
	return string(s.Rune())
}

// Pattern is an ordered sequence of symbols representing one character.
type Pattern []Symbol

func (p Pattern) String() string {
	var b strings.Builder
	b.Grow(len(p))
	for _, s := range p {
		b.WriteRune(s.Rune())
	}
	return b.String()
}

// Equal reports whether both patterns hold the same symbols in the same order
func (p Pattern) Equal(o Pattern) bool {
	if len(p) != len(o) {
		return false
	}
	for i := range p {
		if p[i] != o[i] {
			return false
		}
	}
	return true
}

// ParsePattern parses a dot/dash string such as "...-".
func ParsePattern(s string) (Pattern, error) {
	if s == "" {
		return nil, ErrEmptyPattern
	}
	p := make(Pattern, 0, len(s))
	for i, r := range s {
		switch r {
		case '.':
			p = append(p, Dot)
		case '-':
			p = append(p, Dash)
		default:
			return nil, fmt.Errorf("%w: %q at offset %d", ErrInvalidSymbol, r, i)
		}
	}
	return p, nil
}

// CharacterCode pairs a supported character with its pattern.
type CharacterCode struct {
	Character rune
	Pattern   Pattern
}

// codes lists A-Z then 0-9. The order is also the order Table returns.
var codes = []struct {
	char    rune
	pattern string
}{
	{'A', ".-"}, {'B', "-..."}, {'C', "-.-."}, {'D', "-.."}, {'E', "."},
	{'F', "..-."}, {'G', "--."}, {'H', "...."}, {'I', ".."}, {'J', ".---"},
	{'K', "-.-"}, {'L', ".-.."}, {'M', "--"}, {'N', "-."}, {'O', "---"},
	{'P', ".--."}, {'Q', "--.-"}, {'R', ".-."}, {'S', "..."}, {'T', "-"},
	{'U', "..-"}, {'V', "...-"}, {'W', ".--"}, {'X', "-..-"}, {'Y', "-.--"},
	{'Z', "--.."},
	{'0', "-----"}, {'1', ".----"}, {'2', "..---"}, {'3', "...--"}, {'4', "....-"},
	{'5', "....."}, {'6', "-...."}, {'7', "--..."}, {'8', "---.."}, {'9', "----."},
}

var (
	table     []CharacterCode
	byChar    map[rune]Pattern
	byPattern map[string]rune
)

func init() {
	table = make([]CharacterCode, 0, len(codes))
	byChar = make(map[rune]Pattern, len(codes))
	byPattern = make(map[string]rune, len(codes))
	for _, c := range codes {
		p, err := ParsePattern(c.pattern)
		if err != nil {
			panic(fmt.Sprintf("morse: bad table entry %q: %v", c.char, err))
		}
		if _, dup := byPattern[c.pattern]; dup {
			panic(fmt.Sprintf("morse: duplicate pattern %q", c.pattern))
		}
		table = append(table, CharacterCode{Character: c.char, Pattern: p})
		byChar[c.char] = p
		byPattern[c.pattern] = c.char
	}
}

// Upper folds ASCII lower-case letters to upper case and returns every other
// rune unchanged, so no non-ASCII rune can alias a table entry.
func Upper(r rune) rune {
	if 'a' <= r && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

// Encode returns the pattern for r. ASCII letters are matched case-insensitively.
// The returned pattern is a copy and may be modified by the caller.
func Encode(r rune) (Pattern, bool) {
	p, ok := byChar[Upper(r)]
	if !ok {
		return nil, false
	}
	return append(Pattern(nil), p...), true
}

// Decode returns the character whose pattern exactly matches p.
// Empty and over-length patterns never match.
func Decode(p Pattern) (rune, bool) {
	if len(p) == 0 || len(p) > MaxPatternLength {
		return 0, false
	}
	r, ok := byPattern[p.String()]
	return r, ok
}

// Supported reports whether r has a table entry
func Supported(r rune) bool {
	_, ok := byChar[Upper(r)]
	return ok
}

// Table returns a copy of the symbol table, letters first, then digits.
func Table() []CharacterCode {
	out := make([]CharacterCode, len(table))
	for i, c := range table {
		out[i] = CharacterCode{Character: c.Character, Pattern: append(Pattern(nil), c.Pattern...)}
	}
	return out
}
