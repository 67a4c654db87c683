package strategy

import (
	"math"

	"pvbt/internal/domain"
)

// PriceSource selects which bar price a strategy computes on, which in turn
// decides when its signals become knowable.
type PriceSource int

const (
	// PriceClose computes on closes; a signal is ready at the bar's closing
	// instant.
	PriceClose PriceSource = iota
	// PriceOpen computes on opens; a signal is ready at the bar's opening
	// instant.
	PriceOpen
)

// Price extracts the selected price from a bar.
func (p PriceSource) Price(bar domain.Bar) float64 {
	if p == PriceOpen {
		return bar.Open
	}
	return bar.Close
}

// FinalizeSignals converts raw per-bar signal values into a signal series
// with explicit ready times. raw must have one entry per bar; NaN entries
// mark warm-up rows and produce no signal. The short-selling clamp maps
// negative values to 0 (flat) when shorting is disallowed, and runs before
// ready-time assignment so it can never alter timing. Bars whose ready
// instant is unknown are discarded.
func FinalizeSignals(bars []domain.Bar, raw []float64, src PriceSource, allowShort bool) []domain.Signal {
	signals := make([]domain.Signal, 0, len(bars))
	for i := range bars {
		v := raw[i]
		if math.IsNaN(v) {
			continue
		}
		if !allowShort && v < 0 {
			v = 0
		}

		ready := bars[i].CloseTime
		if src == PriceOpen {
			ready = bars[i].OpenTime
		}
		if ready.IsZero() {
			continue
		}

		signals = append(signals, domain.Signal{Value: v, ReadyTime: ready})
	}
	return signals
}

// RollingMean computes a trailing mean over the last window values with a
// full-window minimum: the output is NaN until window values have been seen
// and whenever any value inside the window is missing. This makes warm-up
// and gap behavior explicit instead of leaking library defaults.
func RollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if window <= 0 || window > len(values) {
		return out
	}

	for i := window - 1; i < len(values); i++ {
		sum := 0.0
		ok := true
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				ok = false
				break
			}
			sum += values[j]
		}
		if ok {
			out[i] = sum / float64(window)
		}
	}
	return out
}
