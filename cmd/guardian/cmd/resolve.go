package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	guardian "github.com/abbaspour/guardian-go"
)

var (
	resolveChallenge  string
	resolveTxToken    string
	resolvePrivateKey string
	resolveReject     bool
	resolveReason     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Accept or reject a push MFA transaction",
	Long: `resolve answers a push MFA challenge. The challenge value ("c") and
transaction token ("txtkn") come from the push notification payload.
Transactions are accepted unless --reject is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveReason != "" && !resolveReject {
			return fmt.Errorf("--reason requires --reject")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		privateKeyPath := resolvePrivateKey
		if privateKeyPath == "" {
			privateKeyPath = cfg.PrivateKeyPath
		}
		privateKeyPEM, err := readKeyFile(privateKeyPath, "private")
		if err != nil {
			return err
		}

		err = client.ResolveTransaction(guardian.ResolveRequest{
			Challenge:        resolveChallenge,
			Domain:           cfg.Domain,
			DeviceID:         cfg.DeviceID,
			TransactionToken: resolveTxToken,
			PrivateKeyPEM:    privateKeyPEM,
			Accepted:         !resolveReject,
			Reason:           resolveReason,
		})
		if err != nil {
			return err
		}

		if resolveReject {
			color.Yellow("Transaction rejected")
		} else {
			color.Green("Transaction accepted")
		}
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveChallenge, "challenge", "", "challenge value from the push payload (required)")
	resolveCmd.Flags().StringVar(&resolveTxToken, "transaction-token", "", "transaction token from the push payload (required)")
	resolveCmd.Flags().StringVar(&resolvePrivateKey, "private-key", "", "PEM private key file (default: GUARDIAN_PRIVATE_KEY)")
	resolveCmd.Flags().BoolVar(&resolveReject, "reject", false, "reject the transaction instead of accepting it")
	resolveCmd.Flags().StringVar(&resolveReason, "reason", "", "rejection reason (only with --reject)")
	_ = resolveCmd.MarkFlagRequired("challenge")
	_ = resolveCmd.MarkFlagRequired("transaction-token")
	rootCmd.AddCommand(resolveCmd)
}
