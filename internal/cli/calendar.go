package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mhatami/trendpulse/internal/markethours"
	"github.com/mhatami/trendpulse/internal/model"
	"github.com/mhatami/trendpulse/internal/orchestrator"
)

var calendarPeriod string

var calendarCmd = &cobra.Command{
	Use:   "calendar SYMBOL",
	Short: "Show the trading window a period resolves to",
	Long: `Resolve a period keyword against the symbol's exchange calendar and
print the market, the UTC window handed to the provider, and the
current market status. Needs no provider or cache.`,
	Example: `  trendpulse calendar AAPL --period 5d
  trendpulse calendar RY.TO --period 2y`,
	Args: cobra.ExactArgs(1),
	RunE: runCalendar,
}

func init() {
	rootCmd.AddCommand(calendarCmd)
	calendarCmd.Flags().StringVarP(&calendarPeriod, "period", "p", "1y", "period keyword")
}

type calendarView struct {
	Symbol      string         `json:"symbol"`
	Market      string         `json:"market"`
	Period      string         `json:"period"`
	Interval    model.Interval `json:"interval"`
	Start       time.Time      `json:"start"`
	End         time.Time      `json:"end"`
	LatestClose string         `json:"latestClose"`
	Status      string         `json:"status"`
}

func runCalendar(cmd *cobra.Command, args []string) error {
	sym, err := orchestrator.NormalizeSymbol(args[0])
	if err != nil {
		return err
	}
	now := time.Now()
	r := markethours.NewResolver(nil)
	m := markethours.MarketOf(sym)

	w, err := r.ResolvePeriod(m, calendarPeriod, now)
	if err != nil {
		return err
	}
	latest, err := r.LatestCloseDate(m, now)
	if err != nil {
		return fmt.Errorf("latest close: %w", err)
	}
	return printJSON(cmd.OutOrStdout(), calendarView{
		Symbol:      sym,
		Market:      string(m),
		Period:      w.Period,
		Interval:    w.Interval,
		Start:       w.Start,
		End:         w.End,
		LatestClose: latest.Format(model.DateLayout),
		Status:      markethours.StatusString(m, r.Source(), now),
	})
}
