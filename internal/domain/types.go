// Package domain defines the shared data types flowing through the backtest
// pipeline: native OHLCV bars and strategy signals.
package domain

import (
	"math"
	"sort"
	"time"
)

// Bar is one OHLCV observation at native granularity. The interval
// [OpenTime, CloseTime) is half-open; both instants are UTC. Price and
// volume fields use NaN to mark values that were missing or unparseable in
// the source data.
type Bar struct {
	OpenTime  time.Time
	CloseTime time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64

	Volume              float64
	QuoteVolume         float64
	TakerBuyVolume      float64
	TakerBuyQuoteVolume float64
}

// HasOHLC reports whether all four price components are present.
func (b Bar) HasOHLC() bool {
	return !math.IsNaN(b.Open) && !math.IsNaN(b.High) &&
		!math.IsNaN(b.Low) && !math.IsNaN(b.Close)
}

// Signal is a directional trading decision together with the instant at
// which it became knowable. Value is -1, 0 or +1 for simple strategies, or
// any real when fractional sizing is in play.
type Signal struct {
	Value     float64
	ReadyTime time.Time
}

// SortBars orders bars by OpenTime ascending. The pipeline requires sorted
// input; loaders call this once after assembling a series.
func SortBars(bars []Bar) {
	sort.Slice(bars, func(i, j int) bool {
		return bars[i].OpenTime.Before(bars[j].OpenTime)
	})
}

// SortSignals orders signals by ReadyTime ascending, which is the order the
// aligner's as-of match requires.
func SortSignals(signals []Signal) {
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].ReadyTime.Before(signals[j].ReadyTime)
	})
}
