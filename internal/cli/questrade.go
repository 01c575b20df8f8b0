package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhatami/trendpulse/internal/provider"
)

var questradeCmd = &cobra.Command{
	Use:   "questrade",
	Short: "Questrade credential maintenance",
}

var questradeRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the stored refresh token for a new access token",
	Long: `Run the OAuth refresh-token grant against the Questrade login server and
write the new token pair back to questrade.token_file.

To bootstrap, put a refresh token generated in the Questrade API hub into
the token file as {"refresh_token": "..."} and run this command.`,
	Args: cobra.NoArgs,
	RunE: runQuestradeRefresh,
}

func init() {
	rootCmd.AddCommand(questradeCmd)
	questradeCmd.AddCommand(questradeRefreshCmd)
}

func runQuestradeRefresh(cmd *cobra.Command, _ []string) error {
	client, err := provider.NewQuestradeClient(cfg.ProviderOptions())
	if err != nil {
		return err
	}
	tok, err := client.Credentials().Refresh(cmd.Context())
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "token refreshed; api server %s, expires %s\n",
		tok.APIServer, tok.Expiry().Local().Format(time.RFC1123))
	return nil
}
