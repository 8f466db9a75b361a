// cmd/table.go
package cmd

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsekey/internal/morse"
)

var tableCmd = &cobra.Command{
	Use:   "table [pattern|char]",
	Short: "Show the Morse symbol table",
	Long: `Without arguments prints every supported character and its pattern.
With a character (S) prints its pattern; with a pattern (...) prints its character.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 0 {
			return printTable(out)
		}
		return lookup(out, args[0])
	},
}

func printTable(w io.Writer) error {
	const perRow = 4
	codes := morse.Table()
	var b strings.Builder
	for i, c := range codes {
		fmt.Fprintf(&b, "%c  %-6s", c.Character, c.Pattern)
		if (i+1)%perRow == 0 || i == len(codes)-1 {
			b.WriteString("\n")
		} else {
			b.WriteString("  ")
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func lookup(w io.Writer, arg string) error {
	if p, err := morse.ParsePattern(arg); err == nil {
		r, ok := morse.Decode(p)
		if !ok {
			return fmt.Errorf("no character for pattern %s", p)
		}
		_, err := fmt.Fprintf(w, "%s  %c\n", p, r)
		return err
	}
	if utf8.RuneCountInString(arg) != 1 {
		return fmt.Errorf("%q is neither a single character nor a pattern of . and -", arg)
	}
	r, _ := utf8.DecodeRuneInString(arg)
	p, ok := morse.Encode(r)
	if !ok {
		return fmt.Errorf("%q has no Morse pattern", arg)
	}
	_, err := fmt.Fprintf(w, "%c  %s\n", morse.Upper(r), p)
	return err
}
