// cmd/encode.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/device"
	"github.com/ColonelBlimp/morsekey/internal/encoder"
	"github.com/ColonelBlimp/morsekey/internal/recovery"
)

var encodeCmd = &cobra.Command{
	Use:   "encode [text...]",
	Short: "Encode text into key timing",
	Long: `Encodes text as Morse and keys the actuator with reference timing.

With arguments the joined text is encoded once. Without arguments an
interactive session reads lines from stdin; on a terminal every key is
echoed as typed and input is ignored while a line is playing.`,
	RunE: runEncode,
}

func runEncode(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := config.Get()
	if err != nil {
		return err
	}
	timing, err := s.EncoderTiming()
	if err != nil {
		return err
	}

	p, err := openPeripherals(ctx, s, "encoder", cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer p.Close()

	player, err := encoder.NewPlayer(device.SystemClock{}, p.actuator, p.text)
	if err != nil {
		return err
	}
	session, err := encoder.NewSession(player, timing, p.console)
	if err != nil {
		return err
	}
	if p.metrics != nil {
		session.SetObserver(p.metrics)
	}

	if len(args) > 0 {
		line := strings.Join(args, " ")
		_, _ = fmt.Fprint(p.console, encoder.ReceivedText+line)
		err := session.EncodeLine(ctx, line)
		_, _ = fmt.Fprint(p.console, "\r\n")
		return err
	}
	return runInteractive(cmd, s, session, p)
}

func runInteractive(cmd *cobra.Command, s *config.Settings, session *encoder.Session, p *peripherals) error {
	ctx := cmd.Context()
	assembler, err := encoder.NewAssembler(s.Encoder.LineCapacity, p.console)
	if err != nil {
		return err
	}
	assembler.OnDrop = func(b byte, reason encoder.DropReason) {
		glog.V(1).Infof("input %q dropped: %s", b, reason)
		if p.metrics != nil {
			p.metrics.InputDropped(b, reason)
		}
	}

	in := cmd.InOrStdin()
	restore := func() {}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return fmt.Errorf("raw terminal: %w", err)
		}
		restore = func() { _ = term.Restore(int(f.Fd()), state) }
		defer restore()
	} else {
		// Piped input: hold each line until the previous one was played.
		assembler.Wait = true
	}

	readErr := make(chan error, 1)
	recovery.Go(func() { readErr <- assembler.ReadFrom(ctx, in) }, restore)

	if err := session.Run(ctx, assembler); err != nil {
		return ignoreStop(err)
	}
	return ignoreStop(<-readErr)
}

// ignoreStop treats Ctrl-C, Ctrl-D and cancellation as a normal end of session
func ignoreStop(err error) error {
	switch {
	case err == nil, errors.Is(err, encoder.ErrInterrupted), errors.Is(err, context.Canceled):
		return nil
	default:
		return err
	}
}
