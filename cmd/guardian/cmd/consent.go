package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	guardian "github.com/abbaspour/guardian-go"
)

var (
	consentID         string
	consentTxToken    string
	consentPrivateKey string
)

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Fetch the rich-consent record for a push transaction",
	Long: `consent retrieves the rich-consent details bound to a push
transaction so they can be shown to the user before resolving. The request
is authenticated with the transaction token plus a DPoP proof signed by the
device key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := newClient(cfg)
		if err != nil {
			return err
		}

		privateKeyPath := consentPrivateKey
		if privateKeyPath == "" {
			privateKeyPath = cfg.PrivateKeyPath
		}
		privateKeyPEM, err := readKeyFile(privateKeyPath, "private")
		if err != nil {
			return err
		}

		consent, err := client.FetchRichConsent(guardian.ConsentRequest{
			ConsentID:        consentID,
			Domain:           cfg.Domain,
			DeviceID:         cfg.DeviceID,
			TransactionToken: consentTxToken,
			PrivateKeyPEM:    privateKeyPEM,
		})
		if err != nil {
			return err
		}

		color.Green("Consent %s", consent.ID)
		if consent.RequestedDetails.BindingMessage != "" {
			fmt.Printf("  message:  %s\n", consent.RequestedDetails.BindingMessage)
		}
		if consent.RequestedDetails.Audience != "" {
			fmt.Printf("  audience: %s\n", consent.RequestedDetails.Audience)
		}
		if len(consent.RequestedDetails.Scope) > 0 {
			fmt.Printf("  scope:    %s\n", strings.Join(consent.RequestedDetails.Scope, " "))
		}
		return nil
	},
}

func init() {
	consentCmd.Flags().StringVar(&consentID, "id", "", "rich-consent record id from the push payload (required)")
	consentCmd.Flags().StringVar(&consentTxToken, "transaction-token", "", "transaction token from the push payload (required)")
	consentCmd.Flags().StringVar(&consentPrivateKey, "private-key", "", "PEM private key file (default: GUARDIAN_PRIVATE_KEY)")
	_ = consentCmd.MarkFlagRequired("id")
	_ = consentCmd.MarkFlagRequired("transaction-token")
	rootCmd.AddCommand(consentCmd)
}
