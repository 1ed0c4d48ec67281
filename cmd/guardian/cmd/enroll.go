package cmd

import (
	"fmt"
	"net/url"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	guardian "github.com/abbaspour/guardian-go"
)

var (
	enrollTicket    string
	enrollName      string
	enrollPushToken string
	enrollPublicKey string
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll this device using a one-time enrollment ticket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		publicKeyPath := enrollPublicKey
		if publicKeyPath == "" {
			publicKeyPath = cfg.PublicKeyPath
		}
		publicKeyPEM, err := readKeyFile(publicKeyPath, "public")
		if err != nil {
			return err
		}

		record, err := client.Enroll(guardian.EnrollRequest{
			Ticket:       enrollTicket,
			Domain:       cfg.Domain,
			DeviceID:     cfg.DeviceID,
			Name:         enrollName,
			PushToken:    enrollPushToken,
			PublicKeyPEM: publicKeyPEM,
		})
		if err != nil {
			return err
		}

		color.Green("Enrolled %s (enrollment %s)", record.DeviceID, record.EnrollmentID)
		fmt.Printf("  user:         %s\n", record.UserID)
		fmt.Printf("  domain:       %s\n", record.Domain)
		fmt.Printf("  device token: %s\n", truncateToken(record.DeviceToken))
		if record.TOTPSecret != "" {
			fmt.Printf("  OTP fallback: %s\n", otpauthURI(record.Issuer, record.UserID, record.TOTPSecret))
		}
		return nil
	},
}

// otpauthURI renders the fallback OTP secret the way authenticator apps
// expect to import it.
func otpauthURI(issuer, user, secret string) string {
	label := user
	if issuer != "" {
		label = issuer + ":" + user
	}
	return fmt.Sprintf("otpauth://totp/%s?secret=%s&issuer=%s",
		url.PathEscape(label), url.QueryEscape(secret), url.QueryEscape(issuer))
}

func init() {
	enrollCmd.Flags().StringVar(&enrollTicket, "ticket", "", "one-time enrollment ticket (required)")
	enrollCmd.Flags().StringVar(&enrollName, "name", "", "device name (required)")
	enrollCmd.Flags().StringVar(&enrollPushToken, "push-token", "", "FCM registration token (required)")
	enrollCmd.Flags().StringVar(&enrollPublicKey, "public-key", "", "PEM public key file (default: GUARDIAN_PUBLIC_KEY)")
	_ = enrollCmd.MarkFlagRequired("ticket")
	_ = enrollCmd.MarkFlagRequired("name")
	_ = enrollCmd.MarkFlagRequired("push-token")
	rootCmd.AddCommand(enrollCmd)
}
