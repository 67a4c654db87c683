package backtest

import "time"

// TradeBar is an OHLCV aggregate over one trading-cadence interval, built
// from one or more contiguous native bars. It carries both interval
// boundaries so the aligner can key on the closing instant regardless of
// which instant serves as the bar's label.
type TradeBar struct {
	OpenTime  time.Time
	CloseTime time.Time
	Label     time.Time // representative instant per the boundary convention

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume              float64
	QuoteVolume         float64
	TakerBuyVolume      float64
	TakerBuyQuoteVolume float64
}

// PositionRecord attaches the simulated position and its economics to one
// trade bar. Computed once per run; never mutated afterward.
type PositionRecord struct {
	Bar TradeBar

	Position float64 // signal value acted upon
	Turnover float64 // |position - previous position|
	Ret      float64 // close-to-close return of the trade bar
	PnLGross float64 // notional * position * ret
	Costs    float64 // (cost bps / 10000) * notional * turnover
	PnL      float64 // PnLGross - Costs
}

// DailyRecord aggregates one calendar day of trade-bar economics. Day is
// midnight of that calendar date in the configured day-boundary timezone.
// ProfitOverTurnover is NaN on days with zero turnover.
type DailyRecord struct {
	Day                time.Time
	PnL                float64
	Turnover           float64
	Bars               int
	Return             float64
	ProfitOverTurnover float64
	Equity             float64 // cumulative product of (1 + Return), seeded at 1.0
}

// RunResult is the complete output of one backtest run. Sharpe is NaN when
// undefined (fewer than two days or zero return variance).
type RunResult struct {
	Records     []PositionRecord
	Daily       []DailyRecord
	Sharpe      float64
	TotalReturn float64
}
