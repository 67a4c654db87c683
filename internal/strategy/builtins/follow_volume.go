package builtins

import (
	"fmt"
	"math"

	"pvbt/internal/domain"
	"pvbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*FollowVolume)(nil)

// FollowVolume trades in the direction of taker-buy volume pressure. It
// compares the taker-buy share of base and quote volume against their own
// rolling means: when both ratios exceed their means by more than the
// threshold fraction it goes long, when both fall short by the same margin
// it goes short.
type FollowVolume struct {
	window     int
	threshold  float64 // fractional buffer relative to the rolling mean
	allowShort bool
	src        strategy.PriceSource
}

// NewFollowVolume creates a FollowVolume strategy with the given rolling
// window and percentage threshold.
func NewFollowVolume(window int, threshold float64, allowShort bool) (*FollowVolume, error) {
	if window <= 0 {
		return nil, fmt.Errorf("window must be positive, got %d", window)
	}
	if threshold < 0 {
		return nil, fmt.Errorf("threshold must be >= 0, got %v", threshold)
	}
	return &FollowVolume{window: window, threshold: threshold, allowShort: allowShort, src: strategy.PriceClose}, nil
}

// Name returns "follow_volume".
func (s *FollowVolume) Name() string {
	return "follow_volume"
}

// GenerateSignals derives taker-buy ratios per bar, compares them to their
// rolling means, and emits +1/-1/0 accordingly. Zero or missing volumes make
// the bar's ratios missing, which holds the signal flat rather than crashing
// the run.
func (s *FollowVolume) GenerateSignals(bars []domain.Bar) ([]domain.Signal, error) {
	buyRatio := make([]float64, len(bars))
	quoteBuyRatio := make([]float64, len(bars))
	for i := range bars {
		buyRatio[i] = clampRatio(bars[i].TakerBuyVolume, bars[i].Volume)
		quoteBuyRatio[i] = clampRatio(bars[i].TakerBuyQuoteVolume, bars[i].QuoteVolume)
	}

	maBuy := strategy.RollingMean(buyRatio, s.window)
	maQuote := strategy.RollingMean(quoteBuyRatio, s.window)

	raw := make([]float64, len(bars))
	for i := range bars {
		bull := buyRatio[i]-maBuy[i] > s.threshold*maBuy[i] &&
			quoteBuyRatio[i]-maQuote[i] > s.threshold*maQuote[i]
		bear := buyRatio[i]-maBuy[i] < -s.threshold*maBuy[i] &&
			quoteBuyRatio[i]-maQuote[i] < -s.threshold*maQuote[i]

		// NaN ratios or means fail both comparisons and fall through to 0.
		switch {
		case bull:
			raw[i] = 1
		case bear:
			raw[i] = -1
		default:
			raw[i] = 0
		}
	}

	return strategy.FinalizeSignals(bars, raw, s.src, s.allowShort), nil
}

// clampRatio divides part by whole and clips the result into [0, 1]. A zero
// or missing denominator yields NaN, treating the bar as missing data.
func clampRatio(part, whole float64) float64 {
	if whole == 0 || math.IsNaN(whole) || math.IsNaN(part) {
		return math.NaN()
	}
	r := part / whole
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}
