package cli

import (
	"github.com/spf13/cobra"

	"github.com/mhatami/trendpulse/internal/indicator"
)

var (
	pricesPeriod   string
	indicatorSpecs string
)

var pricesCmd = &cobra.Command{
	Use:   "prices SYMBOL",
	Short: "Print price bars for a symbol as JSON",
	Example: `  trendpulse prices AAPL --period 6mo
  trendpulse prices SHOP.TO --period 5d`,
	Args: cobra.ExactArgs(1),
	RunE: runPrices,
}

var indicatorsCmd = &cobra.Command{
	Use:   "indicators SYMBOL",
	Short: "Print one year of daily bars with indicators as JSON",
	Long: `Compute indicators over the last year of daily bars.

--spec takes TYPE[:PARAMS] entries separated by commas. MACD takes
fast, slow and signal; every other indicator takes a length. Omitted
parameters use the defaults (SMA/EMA/BB 20, RSI/ATR 14, MACD 12:26:9).`,
	Example: `  trendpulse indicators AAPL --spec SMA:50,EMA,RSI:14
  trendpulse indicators MSFT --spec MACD:12:26:9,BB:20,ATR`,
	Args: cobra.ExactArgs(1),
	RunE: runIndicators,
}

var detailsCmd = &cobra.Command{
	Use:   "details SYMBOL",
	Short: "Print reference and quote data for a symbol",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetails,
}

func init() {
	rootCmd.AddCommand(pricesCmd, indicatorsCmd, detailsCmd)
	pricesCmd.Flags().StringVarP(&pricesPeriod, "period", "p", "1y", "period (1d, 5d, 1mo, 3mo, 6mo, 1y, ytd, 5y, max)")
	indicatorsCmd.Flags().StringVarP(&indicatorSpecs, "spec", "s", "SMA,EMA,RSI", "indicator specs")
}

func runPrices(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.orch.Prices(cmd.Context(), args[0], pricesPeriod)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), t)
}

func runIndicators(cmd *cobra.Command, args []string) error {
	specs, err := indicator.ParseSpecs(indicatorSpecs)
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.orch.Indicators(cmd.Context(), args[0], specs)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), t)
}

func runDetails(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	d, err := a.orch.Details(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), d)
}
