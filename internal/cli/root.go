// Package cli implements the trendpulse command tree.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mhatami/trendpulse/config"
	"github.com/mhatami/trendpulse/internal/logger"
)

const service = "trendpulse"

var (
	cfgFile  string
	logLevel string

	// cfg is loaded by the root PersistentPreRunE before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trendpulse",
	Short: "Stock prices and technical indicators over HTTP",
	Long: `TrendPulse fetches historical prices for a stock symbol, aligns them to
the exchange's real trading calendar, and computes technical indicators
(SMA, EMA, RSI, MACD, Bollinger Bands, ATR) on top.

Run "trendpulse serve" for the HTTP API, or use the one-shot commands to
query from the shell:
  trendpulse prices AAPL --period 6mo
  trendpulse indicators SHOP.TO --spec SMA:50,RSI:14
  trendpulse calendar AAPL --period 5d`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "trendpulse.yaml", "config file (missing file means defaults)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log_level (debug, info, warn, error)")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.LogLevel = logLevel
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	level, _ := logger.ParseLevel(c.LogLevel)

	// stdout carries command output; logs go to stderr except for serve
	out := io.Writer(os.Stderr)
	if cmd.Name() == "serve" {
		out = os.Stdout
	}
	logger.InitWriter(out, service, level)
	cfg = c
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
