package backtest

import "pvbt/internal/domain"

// AlignPositions merges a ready-time-sorted signal series onto a sorted
// trade-bar series and returns the realized position per trade bar.
//
// For each trade bar the most recent signal whose ready time is at or
// before the bar's closing instant is matched (backward as-of, ties count
// as known). Bars before the first match carry 0, and a matched value is
// carried forward across bars with no newer signal, including across gaps
// left by dropped resample intervals. The matched series is then delayed by
// exactly one trade bar: the position realized during bar t is the value
// that was knowable by the close of bar t-1, and the first bar's position
// is 0. Without the delay a signal could act on the very bar in which it
// was computed.
func AlignPositions(signals []domain.Signal, bars []TradeBar) []float64 {
	matched := make([]float64, len(bars))
	last := 0.0
	j := 0
	for i := range bars {
		for j < len(signals) && !signals[j].ReadyTime.After(bars[i].CloseTime) {
			last = signals[j].Value
			j++
		}
		matched[i] = last
	}

	positions := make([]float64, len(bars))
	for i := 1; i < len(bars); i++ {
		positions[i] = matched[i-1]
	}
	return positions
}
