package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"pvbt/internal/backtest"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// RunSummary is the persisted header of one backtest run.
type RunSummary struct {
	ID          int64
	Symbol      string
	Strategy    string
	Cadence     string
	Notional    float64
	CostBps     float64
	Sharpe      float64
	TotalReturn float64
	CreatedAt   time.Time
}

const resultSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	symbol       TEXT NOT NULL,
	strategy     TEXT NOT NULL,
	cadence      TEXT NOT NULL,
	notional     REAL NOT NULL,
	cost_bps     REAL NOT NULL,
	sharpe       REAL,
	total_return REAL NOT NULL,
	created_at   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS daily_metrics (
	run_id               INTEGER NOT NULL REFERENCES runs(id),
	day                  TEXT NOT NULL,
	daily_pnl            REAL NOT NULL,
	daily_turnover       REAL NOT NULL,
	bars                 INTEGER NOT NULL,
	daily_return         REAL NOT NULL,
	profit_over_turnover REAL,
	equity_curve         REAL NOT NULL,
	PRIMARY KEY (run_id, day)
);
`

// ResultStore persists backtest run summaries and their daily metrics in a
// SQLite database. Undefined metric values (NaN) are stored as NULL.
type ResultStore struct {
	db *sql.DB
}

// NewResultStore opens (or creates) a SQLite database at dbPath and ensures
// the result tables exist.
func NewResultStore(dbPath string) (*ResultStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(resultSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating result tables: %w", err)
	}
	return &ResultStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *ResultStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run summary and its daily metrics in one transaction and
// returns the assigned run ID.
func (s *ResultStore) SaveRun(ctx context.Context, run RunSummary, daily []backtest.DailyRecord) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (symbol, strategy, cadence, notional, cost_bps, sharpe, total_return, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Symbol, run.Strategy, run.Cadence, run.Notional, run.CostBps,
		nullIfNaN(run.Sharpe), run.TotalReturn, run.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO daily_metrics (run_id, day, daily_pnl, daily_turnover, bars, daily_return, profit_over_turnover, equity_curve)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, d := range daily {
		_, err := stmt.ExecContext(ctx, runID, d.Day.UTC().Format("2006-01-02"),
			d.PnL, d.Turnover, d.Bars, d.Return,
			nullIfNaN(d.ProfitOverTurnover), d.Equity)
		if err != nil {
			return 0, fmt.Errorf("inserting daily metrics: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return runID, nil
}

// ListRuns returns all stored run summaries, most recent first.
func (s *ResultStore) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, strategy, cadence, notional, cost_bps, sharpe, total_return, created_at
		 FROM runs ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		var sharpe sql.NullFloat64
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Strategy, &r.Cadence,
			&r.Notional, &r.CostBps, &sharpe, &r.TotalReturn, &createdAt); err != nil {
			return nil, err
		}
		r.Sharpe = nanIfNull(sharpe)
		if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = ts
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// LoadDaily returns the daily metrics stored for a run, in day order.
func (s *ResultStore) LoadDaily(ctx context.Context, runID int64) ([]backtest.DailyRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT day, daily_pnl, daily_turnover, bars, daily_return, profit_over_turnover, equity_curve
		 FROM daily_metrics WHERE run_id = ? ORDER BY day`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var daily []backtest.DailyRecord
	for rows.Next() {
		var d backtest.DailyRecord
		var day string
		var pot sql.NullFloat64
		if err := rows.Scan(&day, &d.PnL, &d.Turnover, &d.Bars, &d.Return, &pot, &d.Equity); err != nil {
			return nil, err
		}
		d.ProfitOverTurnover = nanIfNull(pot)
		if ts, err := time.Parse("2006-01-02", day); err == nil {
			d.Day = ts.UTC()
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

func nullIfNaN(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func nanIfNull(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
