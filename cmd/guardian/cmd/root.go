// Package cmd implements the guardian CLI commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	guardian "github.com/abbaspour/guardian-go"
	"github.com/abbaspour/guardian-go/internal/config"
	"github.com/abbaspour/guardian-go/pkg/store"
)

var (
	flagDomain   string
	flagDeviceID string
	flagStore    string
)

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Client for the Auth0 Guardian push MFA protocol",
	Long: `guardian enrolls this device with an Auth0 Guardian tenant, resolves
push MFA transactions, and manages the device registration.

Configuration comes from flags, GUARDIAN_* environment variables, or an
optional .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDomain, "domain", "", "tenant domain (default: GUARDIAN_DOMAIN)")
	rootCmd.PersistentFlags().StringVar(&flagDeviceID, "device-id", "", "device identifier (default: GUARDIAN_DEVICE_ID, or the single enrollment)")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", "", "enrollment state file (default: GUARDIAN_STORE)")
}

// Execute runs the CLI and reports errors to stderr.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		return err
	}
	return nil
}

// loadConfig merges environment configuration with the global flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if flagDomain != "" {
		cfg.Domain = flagDomain
	}
	if flagDeviceID != "" {
		cfg.DeviceID = flagDeviceID
	}
	if flagStore != "" {
		cfg.StorePath = flagStore
	}
	return cfg, nil
}

// newClient builds the SDK client from the merged configuration.
func newClient(cfg *config.Config) (*guardian.Client, error) {
	return guardian.NewClient(guardian.Config{
		Domain:        cfg.Domain,
		Store:         store.NewFileStore(cfg.StorePath),
		ClientName:    cfg.ClientName,
		ClientVersion: cfg.ClientVersion,
	})
}

// readKeyFile loads PEM key material from disk for the SDK.
func readKeyFile(path, role string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%s key file is required", role)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s key: %w", role, err)
	}
	return string(data), nil
}

func printError(err error) {
	if clientErr := guardian.GetClientError(err); clientErr != nil {
		color.Red("Error [%s]: %s", clientErr.Code, clientErr.Message)
		if clientErr.Details != "" {
			fmt.Fprintln(os.Stderr, clientErr.Details)
		}
		return
	}
	color.Red("Error: %v", err)
}

// truncateToken renders a bearer secret safe for terminal output.
func truncateToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
