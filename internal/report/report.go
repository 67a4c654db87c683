// Package report writes backtest results to files for inspection.
package report

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"pvbt/internal/backtest"
)

var dailyHeader = []string{
	"day", "daily_pnl", "daily_turnover", "bars",
	"daily_return", "profit_over_turnover", "equity_curve",
}

// WriteDailyCSV writes the per-day metrics of a run to path, creating
// parent directories as needed. Undefined values (NaN) become empty cells.
func WriteDailyCSV(path string, daily []backtest.DailyRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(dailyHeader); err != nil {
		return err
	}
	for _, d := range daily {
		row := []string{
			d.Day.Format("2006-01-02"),
			formatFloat(d.PnL),
			formatFloat(d.Turnover),
			strconv.Itoa(d.Bars),
			formatFloat(d.Return),
			formatFloat(d.ProfitOverTurnover),
			formatFloat(d.Equity),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// Summary formats a one-line human-readable summary of a run.
func Summary(symbol, strategy string, res *backtest.RunResult) string {
	return fmt.Sprintf("%s %s: days=%d sharpe=%s total_return=%s",
		symbol, strategy, len(res.Daily),
		formatMetric(res.Sharpe), formatMetric(res.TotalReturn))
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
