package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	guardian "github.com/abbaspour/guardian-go"
)

var (
	updateName       string
	updateIdentifier string
	updatePushToken  string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update the remote device registration",
	Long: `update patches the device registration on the server. The push token
is always sent, even when unchanged; name and identifier are sent only when
supplied. The local enrollment record is left as-is.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		info, err := client.UpdateDevice(guardian.UpdateRequest{
			DeviceID:   cfg.DeviceID,
			Name:       updateName,
			Identifier: updateIdentifier,
			PushToken:  updatePushToken,
		})
		if err != nil {
			return err
		}

		color.Green("Device %s updated", info.ID)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVar(&updateName, "name", "", "new device name")
	updateCmd.Flags().StringVar(&updateIdentifier, "identifier", "", "new device identifier")
	updateCmd.Flags().StringVar(&updatePushToken, "push-token", "", "current FCM registration token (required)")
	_ = updateCmd.MarkFlagRequired("push-token")
	rootCmd.AddCommand(updateCmd)
}
