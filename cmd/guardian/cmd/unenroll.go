package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var unenrollCmd = &cobra.Command{
	Use:   "unenroll",
	Short: "Remove the device registration and local enrollment state",
	Long: `unenroll deletes the device on the server and drops the local
enrollment record. A device the server no longer knows about still counts
as unenrolled, so repeating the command is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		if err := client.Unenroll(cfg.DeviceID); err != nil {
			return err
		}

		color.Green("Device unenrolled")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unenrollCmd)
}
