package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ridgelinebank/teller/internal/config"
	"github.com/ridgelinebank/teller/internal/sheets"
)

func authCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with external services",
	}

	cmd.AddCommand(authSheetsCmd())

	return cmd
}

func authSheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Authorize the audit exporter with Google Sheets",
		Long: `Run the OAuth2 flow for Google Sheets and store the resulting token.

The refresh token printed at the end goes into the config file under
sheets.refresh_token (or the GOOGLE_SHEETS_REFRESH_TOKEN environment
variable).`,
		RunE: runAuthSheets,
	}

	cmd.Flags().String("token-file", "", "where to save the token (default: $HOME/.config/teller/sheets-token.json)")

	return cmd
}

func runAuthSheets(cmd *cobra.Command, _ []string) error {
	clientID := viper.GetString("sheets.client_id")
	if clientID == "" {
		clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
	}
	clientSecret := viper.GetString("sheets.client_secret")
	if clientSecret == "" {
		clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
	}
	if clientID == "" || clientSecret == "" {
		return fmt.Errorf("sheets.client_id and sheets.client_secret must be configured before authenticating")
	}

	tokenFile, _ := cmd.Flags().GetString("token-file")
	if tokenFile == "" {
		tokenFile = config.ExpandPath("$HOME/.config/teller/sheets-token.json")
	}

	token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenFile:    tokenFile,
	})
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	fmt.Println("Authentication successful.")
	if token.RefreshToken != "" {
		fmt.Println("Set sheets.refresh_token in your config to:")
		fmt.Println("  " + token.RefreshToken)
	}
	return nil
}
