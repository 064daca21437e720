package commands

import (
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List capture devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listDevices == nil {
			return errNoAudioBackend
		}
		devices, err := listDevices()
		if err != nil {
			return err
		}
		return outputResult(devices)
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
