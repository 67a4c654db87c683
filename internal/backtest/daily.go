package backtest

import (
	"math"
	"time"
)

// tradingDaysPerYear annualizes the sharpe ratio.
const tradingDaysPerYear = 252

// AggregateDaily groups trade-bar records by calendar day in the given
// timezone and derives per-day return, profit over turnover, and the
// cumulative equity curve. Records must be in time order; days are formed
// from contiguous runs sharing a calendar date of the bar's label instant.
func AggregateDaily(records []PositionRecord, notional float64, loc *time.Location) []DailyRecord {
	if loc == nil {
		loc = time.UTC
	}

	var daily []DailyRecord
	var cur *DailyRecord
	for i := range records {
		day := midnight(records[i].Bar.Label.In(loc))
		if cur == nil || !cur.Day.Equal(day) {
			if cur != nil {
				daily = append(daily, *cur)
			}
			cur = &DailyRecord{Day: day}
		}
		cur.PnL += records[i].PnL
		cur.Turnover += records[i].Turnover
		cur.Bars++
	}
	if cur != nil {
		daily = append(daily, *cur)
	}

	equity := 1.0
	for i := range daily {
		daily[i].Return = daily[i].PnL / notional
		if daily[i].Turnover > 0 {
			daily[i].ProfitOverTurnover = daily[i].PnL / daily[i].Turnover
		} else {
			daily[i].ProfitOverTurnover = math.NaN()
		}
		equity *= 1 + daily[i].Return
		daily[i].Equity = equity
	}
	return daily
}

// SharpeRatio annualizes mean daily return over its sample standard
// deviation. NaN when fewer than two days exist or the variance is exactly
// zero; those are documented undefined conditions, not failures.
func SharpeRatio(daily []DailyRecord) float64 {
	n := len(daily)
	if n < 2 {
		return math.NaN()
	}

	var mean float64
	for i := range daily {
		mean += daily[i].Return
	}
	mean /= float64(n)

	var ss float64
	for i := range daily {
		d := daily[i].Return - mean
		ss += d * d
	}
	std := math.Sqrt(ss / float64(n-1))
	if std == 0 {
		return math.NaN()
	}
	return mean / std * math.Sqrt(tradingDaysPerYear)
}

// TotalReturn compounds the daily returns: product of (1 + r) minus 1.
func TotalReturn(daily []DailyRecord) float64 {
	total := 1.0
	for i := range daily {
		total *= 1 + daily[i].Return
	}
	return total - 1
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
