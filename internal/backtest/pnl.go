package backtest

import "math"

// ComputeRecords derives per-trade-bar economics from aligned positions. It
// is a stateless map: close-to-close returns (0 for the first bar), turnover
// as the absolute position change (the first bar's full position counts as
// turnover), a linear bps-of-turnover cost, and gross and net PnL.
func ComputeRecords(bars []TradeBar, positions []float64, notional, costBps float64) []PositionRecord {
	records := make([]PositionRecord, len(bars))
	costPerUnit := costBps / 1e4 * notional

	for i := range bars {
		var ret, turnover float64
		if i == 0 {
			turnover = math.Abs(positions[0])
		} else {
			ret = bars[i].Close/bars[i-1].Close - 1
			turnover = math.Abs(positions[i] - positions[i-1])
		}

		gross := notional * positions[i] * ret
		var costs float64
		if costBps > 0 {
			costs = costPerUnit * turnover
		}

		records[i] = PositionRecord{
			Bar:      bars[i],
			Position: positions[i],
			Turnover: turnover,
			Ret:      ret,
			PnLGross: gross,
			Costs:    costs,
			PnL:      gross - costs,
		}
	}
	return records
}
