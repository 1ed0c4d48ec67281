package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List locally enrolled devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		records, err := client.Devices()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No enrollments")
			return nil
		}

		for _, r := range records {
			color.Cyan("%s", r.DeviceID)
			fmt.Printf("  enrollment:   %s\n", r.EnrollmentID)
			fmt.Printf("  domain:       %s\n", r.Domain)
			fmt.Printf("  user:         %s\n", r.UserID)
			fmt.Printf("  enrolled at:  %s\n", r.EnrolledAt.Format(time.RFC3339))
			fmt.Printf("  device token: %s\n", truncateToken(r.DeviceToken))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)
}
