// cmd/devices.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ColonelBlimp/morsekey/internal/audio"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture and playback devices",
	Long:  `Lists device indexes for audio.device_index (key input) and sidetone.device_index.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		backend, err := audio.Open()
		if err != nil {
			return err
		}
		defer backend.Close()

		out := cmd.OutOrStdout()
		for _, kind := range []audio.DeviceKind{audio.CaptureDevice, audio.PlaybackDevice} {
			devices, err := backend.Devices(kind)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s devices:\n", kind)
			if len(devices) == 0 {
				fmt.Fprintln(out, "  (none)")
			}
			for _, d := range devices {
				fmt.Fprintf(out, "  [%d] %s\n", d.Index, d.Name)
			}
		}
		return nil
	},
}
