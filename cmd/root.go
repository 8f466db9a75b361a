// cmd/root.go
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ColonelBlimp/morsekey/internal/config"
	"github.com/ColonelBlimp/morsekey/internal/morse"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "morsekey",
	Short: "Morse code key encoder and decoder",
	Long: `Encodes typed text into timed key-down/key-up signals and decodes timed
key presses back into text, using fixed reference timing.`,
	SilenceUsage: true,
}

// flagKeys maps persistent flags to config keys
var flagKeys = map[string]string{
	"unit":           "encoder.unit",
	"debounce":       "decoder.debounce",
	"dot-threshold":  "decoder.dot_threshold",
	"letter-timeout": "decoder.letter_timeout",
	"word-timeout":   "decoder.word_timeout",
	"sidetone":       "sidetone.enabled",
	"mqtt":           "mqtt.broker",
	"metrics":        "metrics.addr",
	"debug":          "debug",
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (initConfig -> bindFlags -> rootCmd).
	rootCmd.PersistentPreRunE = initConfig

	// glog registers on the standard flag set; expose it through cobra and
	// log to stderr unless asked otherwise.
	_ = flag.Set("logtostderr", "true")
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)
	if f := rootCmd.PersistentFlags().Lookup("logtostderr"); f != nil {
		f.DefValue = "true"
	}

	// Global flags (override config file)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default ./config.yaml or ~/.config/morsekey/config.yaml)")
	flags.DurationP("unit", "u", morse.DefaultUnit, "encoder unit (dot length)")
	flags.Duration("debounce", morse.DefaultDebounce, "decoder debounce")
	flags.Duration("dot-threshold", morse.DefaultDotThreshold, "holds shorter than this decode as dots")
	flags.Duration("letter-timeout", morse.DefaultLetterTimeout, "key-up time that ends a letter")
	flags.Duration("word-timeout", morse.DefaultWordTimeout, "key-up time that emits a word space")
	flags.BoolP("sidetone", "s", false, "play the key as a tone on the playback device")
	flags.String("mqtt", "", "mirror text to an MQTT broker, e.g. mqtt://host:1883/topic")
	flags.String("metrics", "", "serve Prometheus metrics on this address, e.g. :9100")
	flags.BoolP("debug", "D", false, "enable debug output (glog -v=2)")

	rootCmd.AddCommand(encodeCmd, decodeCmd, tableCmd, devicesCmd)
}

func bindFlags(cmd *cobra.Command) error {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	for name, key := range localFlagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := viper.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind --%s: %w", name, err)
			}
		}
	}
	return nil
}

func initConfig(cmd *cobra.Command, _ []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}
	if err := config.Init(cfgFile); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if viper.GetBool("debug") {
		_ = flag.Set("v", "2")
	}
	glog.V(1).Infof("config: %s", viper.ConfigFileUsed())
	return nil
}
