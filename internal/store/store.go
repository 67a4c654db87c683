// Package store loads and persists bar data and backtest results. The
// simulation core never touches the filesystem; everything here sits on the
// data-acquisition and persistence side of that boundary.
package store

import (
	"context"
	"time"

	"pvbt/internal/domain"
)

// BarReader retrieves native OHLCV bars for one symbol. The backtest CLI
// only needs this half of the store.
type BarReader interface {
	// ReadBars returns bars for the symbol within [start, end], sorted by
	// open time.
	ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error)
}

// BarStore persists and retrieves native OHLCV bars.
type BarStore interface {
	BarReader

	// WriteBars persists a batch of bars for the symbol, merging with any
	// bars already stored.
	WriteBars(ctx context.Context, symbol string, bars []domain.Bar) error

	// ListSymbols returns all distinct symbols with stored bars.
	ListSymbols(ctx context.Context) ([]string, error)
}
