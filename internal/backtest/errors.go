package backtest

import "errors"

// Fatal validation errors. Each aborts a run before any downstream
// computation; callers match them with errors.Is. Legitimately undefined
// metrics (sharpe with fewer than two days, profit-over-turnover on a
// zero-turnover day) are NaN values in the result, never errors.
var (
	// ErrMissingColumn indicates required OHLC or timestamp data is absent
	// from the input series.
	ErrMissingColumn = errors.New("missing required column")

	// ErrInvalidCadence indicates the resample cadence string could not be
	// parsed.
	ErrInvalidCadence = errors.New("invalid resample cadence")

	// ErrEmptySeries indicates the input series has no rows after
	// validation or resampling.
	ErrEmptySeries = errors.New("empty bar series")
)
