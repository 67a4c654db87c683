// Package backtest simulates the economic outcome of a trading rule against
// historical bar data. The pipeline is a pure left-to-right composition:
// strategy signals and native bars in, positions, turnover, costs, PnL, and
// daily risk/return statistics out. Every stage enforces temporal causality;
// a signal can never influence a bar that closed before the signal was
// knowable.
package backtest

import (
	"fmt"
	"time"

	"pvbt/internal/domain"
	"pvbt/internal/strategy"
)

// Config is the configuration surface the simulation core accepts.
type Config struct {
	Notional           float64
	TransactionCostBps float64
	ResampleCadence    string // empty means native cadence
	DayBoundaryTZ      string // IANA name; empty means UTC
	Boundary           Boundary
}

// Backtester replays a native bar series through a strategy and computes
// positions, PnL, and daily performance metrics. It holds no per-run state;
// independent runs may share one Backtester across goroutines.
type Backtester struct {
	cfg     Config
	cadence time.Duration
	loc     *time.Location
}

// New validates the configuration and creates a Backtester.
func New(cfg Config) (*Backtester, error) {
	if cfg.Notional <= 0 {
		return nil, fmt.Errorf("notional must be > 0, got %v", cfg.Notional)
	}
	if cfg.TransactionCostBps < 0 {
		return nil, fmt.Errorf("transaction cost bps must be >= 0, got %v", cfg.TransactionCostBps)
	}

	cadence, err := ParseCadence(cfg.ResampleCadence)
	if err != nil {
		return nil, err
	}

	loc := time.UTC
	if cfg.DayBoundaryTZ != "" && cfg.DayBoundaryTZ != "UTC" {
		loc, err = time.LoadLocation(cfg.DayBoundaryTZ)
		if err != nil {
			return nil, fmt.Errorf("loading day boundary timezone %q: %w", cfg.DayBoundaryTZ, err)
		}
	}

	return &Backtester{cfg: cfg, cadence: cadence, loc: loc}, nil
}

// Run executes the full pipeline for one strategy over one native series.
// The input slice is borrowed read-only; every stage produces a new
// sequence.
func (bt *Backtester) Run(bars []domain.Bar, strat strategy.Strategy) (*RunResult, error) {
	if len(bars) == 0 {
		return nil, ErrEmptySeries
	}

	sorted := make([]domain.Bar, len(bars))
	copy(sorted, bars)
	domain.SortBars(sorted)

	signals, err := strat.GenerateSignals(sorted)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", strat.Name(), err)
	}
	signals = prepareSignals(signals)

	tradeBars, err := BuildTradeBars(sorted, bt.cadence, bt.cfg.Boundary)
	if err != nil {
		return nil, err
	}
	if len(tradeBars) == 0 {
		return nil, fmt.Errorf("%w: no complete trade bars after resampling", ErrEmptySeries)
	}

	positions := AlignPositions(signals, tradeBars)
	records := ComputeRecords(tradeBars, positions, bt.cfg.Notional, bt.cfg.TransactionCostBps)
	daily := AggregateDaily(records, bt.cfg.Notional, bt.loc)

	return &RunResult{
		Records:     records,
		Daily:       daily,
		Sharpe:      SharpeRatio(daily),
		TotalReturn: TotalReturn(daily),
	}, nil
}

// prepareSignals discards signals whose ready time is unknown and sorts the
// remainder by ready time, the order the as-of match requires.
func prepareSignals(signals []domain.Signal) []domain.Signal {
	kept := make([]domain.Signal, 0, len(signals))
	for _, s := range signals {
		if s.ReadyTime.IsZero() {
			continue
		}
		kept = append(kept, s)
	}
	domain.SortSignals(kept)
	return kept
}
