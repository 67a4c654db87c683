// Package builtins provides the built-in strategy implementations that ship
// with pvbt.
package builtins

import (
	"fmt"
	"math"

	"pvbt/internal/domain"
	"pvbt/internal/strategy"
)

// Compile-time interface check.
var _ strategy.Strategy = (*SMACross)(nil)

// SMACross implements a simple moving average crossover strategy: long when
// the fast SMA is above the slow SMA, short (or flat when shorting is
// disallowed) when below.
type SMACross struct {
	fast       int
	slow       int
	allowShort bool
	src        strategy.PriceSource
}

// NewSMACross creates an SMACross with the given fast and slow window
// lengths.
func NewSMACross(fast, slow int, allowShort bool) (*SMACross, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("sma windows must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("fast window %d must be shorter than slow window %d", fast, slow)
	}
	return &SMACross{fast: fast, slow: slow, allowShort: allowShort, src: strategy.PriceClose}, nil
}

// Name returns "sma_cross".
func (s *SMACross) Name() string {
	return "sma_cross"
}

// GenerateSignals emits +1 while the fast SMA is above the slow, -1 while
// below, and 0 when equal or while either window is still warming up.
func (s *SMACross) GenerateSignals(bars []domain.Bar) ([]domain.Signal, error) {
	prices := make([]float64, len(bars))
	for i := range bars {
		prices[i] = s.src.Price(bars[i])
	}

	fastMA := strategy.RollingMean(prices, s.fast)
	slowMA := strategy.RollingMean(prices, s.slow)

	raw := make([]float64, len(bars))
	for i := range bars {
		switch {
		case math.IsNaN(fastMA[i]) || math.IsNaN(slowMA[i]):
			raw[i] = 0 // warm-up or missing data: hold flat
		case fastMA[i] > slowMA[i]:
			raw[i] = 1
		case fastMA[i] < slowMA[i]:
			raw[i] = -1
		default:
			raw[i] = 0
		}
	}

	return strategy.FinalizeSignals(bars, raw, s.src, s.allowShort), nil
}
