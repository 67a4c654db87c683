package backtest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"pvbt/internal/domain"
)

// ---------------------------------------------------------------------------
// Boundary convention
// ---------------------------------------------------------------------------

// Closed selects which edge of a resample interval is inclusive.
type Closed int

const (
	// ClosedLeft buckets [start, start+cadence).
	ClosedLeft Closed = iota
	// ClosedRight buckets (start, start+cadence].
	ClosedRight
)

// LabelEdge selects which interval boundary serves as a trade bar's
// representative timestamp.
type LabelEdge int

const (
	// LabelOpen labels a trade bar with its interval's opening instant.
	LabelOpen LabelEdge = iota
	// LabelClose labels a trade bar with its interval's closing instant.
	LabelClose
)

// Boundary is the explicit bucketing convention for resampling. The zero
// value is left-closed, open-labeled. The label only affects reporting and
// day grouping; the aligner always keys on the closing instant.
type Boundary struct {
	Closed Closed
	Label  LabelEdge
}

// ---------------------------------------------------------------------------
// Cadence parsing
// ---------------------------------------------------------------------------

// ParseCadence parses a trading-cadence duration string. It accepts Go
// duration syntax ("30m", "4h"), the "min" spelling ("30min"), and whole-day
// forms ("1d", "1 day"). The zero-value result of an empty string means
// native cadence.
func ParseCadence(s string) (time.Duration, error) {
	raw := s
	s = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
	if s == "" {
		return 0, nil
	}

	// Day forms are not Go durations. Only claim the string when what
	// precedes the suffix is a plain number; "1second" also ends in "d".
	for _, suffix := range []string{"days", "day", "d"} {
		if n, ok := strings.CutSuffix(s, suffix); ok {
			days, err := strconv.Atoi(n)
			if err != nil {
				continue
			}
			if days <= 0 {
				return 0, fmt.Errorf("%w: %q", ErrInvalidCadence, raw)
			}
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}

	for _, r := range []struct{ from, to string }{
		{"minutes", "m"}, {"minute", "m"}, {"mins", "m"}, {"min", "m"},
		{"hours", "h"}, {"hour", "h"},
		{"seconds", "s"}, {"second", "s"}, {"secs", "s"}, {"sec", "s"},
	} {
		if n, ok := strings.CutSuffix(s, r.from); ok {
			s = n + r.to
			break
		}
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCadence, raw)
	}
	return d, nil
}

// ---------------------------------------------------------------------------
// Trade-bar building
// ---------------------------------------------------------------------------

// BuildTradeBars aggregates a sorted native series into trade bars at the
// given cadence. A zero cadence is the identity transform: one trade bar per
// native bar. Intervals lacking a complete OHLC aggregate are dropped, which
// may leave gaps in the output; downstream stages tolerate non-contiguous
// trade bars.
func BuildTradeBars(bars []domain.Bar, cadence time.Duration, b Boundary) ([]TradeBar, error) {
	if cadence <= 0 {
		return identityTradeBars(bars, b), nil
	}

	anyOHLC := false
	for i := range bars {
		if bars[i].HasOHLC() {
			anyOHLC = true
			break
		}
	}
	if len(bars) > 0 && !anyOHLC {
		return nil, fmt.Errorf("%w: resampling requires open/high/low/close data", ErrMissingColumn)
	}

	var out []TradeBar
	var cur *TradeBar
	var curStart int64 // bucket start, unix nanos

	flush := func() {
		if cur != nil && cur.HasOHLC() {
			out = append(out, *cur)
		}
		cur = nil
	}

	d := cadence.Nanoseconds()
	for i := range bars {
		start := bucketStart(bars[i].OpenTime.UnixNano(), d, b.Closed)
		if cur == nil || start != curStart {
			flush()
			curStart = start
			open := time.Unix(0, start).UTC()
			close := time.Unix(0, start+d).UTC()
			tb := TradeBar{
				OpenTime:  open,
				CloseTime: close,
				Label:     labelFor(open, close, b.Label),
				Open:      math.NaN(),
				High:      math.NaN(),
				Low:       math.NaN(),
				Close:     math.NaN(),
			}
			cur = &tb
		}
		accumulate(cur, bars[i])
	}
	flush()

	return out, nil
}

// identityTradeBars maps native bars one-to-one onto trade bars, dropping
// bars without complete OHLC data.
func identityTradeBars(bars []domain.Bar, b Boundary) []TradeBar {
	out := make([]TradeBar, 0, len(bars))
	for i := range bars {
		if !bars[i].HasOHLC() {
			continue
		}
		out = append(out, TradeBar{
			OpenTime:            bars[i].OpenTime,
			CloseTime:           bars[i].CloseTime,
			Label:               labelFor(bars[i].OpenTime, bars[i].CloseTime, b.Label),
			Open:                bars[i].Open,
			High:                bars[i].High,
			Low:                 bars[i].Low,
			Close:               bars[i].Close,
			Volume:              bars[i].Volume,
			QuoteVolume:         bars[i].QuoteVolume,
			TakerBuyVolume:      bars[i].TakerBuyVolume,
			TakerBuyQuoteVolume: bars[i].TakerBuyQuoteVolume,
		})
	}
	return out
}

// bucketStart computes the unix-nano start of the cadence interval that
// contains instant n. Left-closed intervals claim a boundary instant for the
// interval starting there; right-closed intervals claim it for the interval
// ending there.
func bucketStart(n, d int64, c Closed) int64 {
	r := n % d
	if c == ClosedRight && r == 0 {
		return n - d
	}
	return n - r
}

func labelFor(open, close time.Time, l LabelEdge) time.Time {
	if l == LabelClose {
		return close
	}
	return open
}

// accumulate folds one native bar into a trade-bar aggregate, skipping NaN
// components the way a rolling aggregation absorbs missing data: open is the
// first present value, close the last, high/low extremes over present
// values, volumes summed over present values.
func accumulate(tb *TradeBar, bar domain.Bar) {
	if math.IsNaN(tb.Open) && !math.IsNaN(bar.Open) {
		tb.Open = bar.Open
	}
	if !math.IsNaN(bar.High) && (math.IsNaN(tb.High) || bar.High > tb.High) {
		tb.High = bar.High
	}
	if !math.IsNaN(bar.Low) && (math.IsNaN(tb.Low) || bar.Low < tb.Low) {
		tb.Low = bar.Low
	}
	if !math.IsNaN(bar.Close) {
		tb.Close = bar.Close
	}
	tb.Volume += nanZero(bar.Volume)
	tb.QuoteVolume += nanZero(bar.QuoteVolume)
	tb.TakerBuyVolume += nanZero(bar.TakerBuyVolume)
	tb.TakerBuyQuoteVolume += nanZero(bar.TakerBuyQuoteVolume)
}

// HasOHLC reports whether all four aggregated price components are present.
func (tb TradeBar) HasOHLC() bool {
	return !math.IsNaN(tb.Open) && !math.IsNaN(tb.High) &&
		!math.IsNaN(tb.Low) && !math.IsNaN(tb.Close)
}

func nanZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return v
}
