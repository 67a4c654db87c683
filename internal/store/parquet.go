package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"pvbt/internal/domain"
)

// Compile-time interface check.
var _ BarStore = (*ParquetStore)(nil)

// ParquetStore implements BarStore using Parquet files on disk, one file
// per symbol and year: <DataDir>/<SYMBOL>/<YYYY>.parquet. Writes merge with
// existing records and deduplicate by open time.
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a ParquetStore rooted at the given data directory.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// KlineRecord is the Parquet schema for native bar data. Timestamps are
// Unix milliseconds.
type KlineRecord struct {
	OpenTime            int64   `parquet:"open_time,timestamp(millisecond)"`
	CloseTime           int64   `parquet:"close_time,timestamp(millisecond)"`
	Open                float64 `parquet:"open"`
	High                float64 `parquet:"high"`
	Low                 float64 `parquet:"low"`
	Close               float64 `parquet:"close"`
	Volume              float64 `parquet:"volume"`
	QuoteVolume         float64 `parquet:"quote_volume"`
	TakerBuyVolume      float64 `parquet:"taker_buy_volume"`
	TakerBuyQuoteVolume float64 `parquet:"taker_buy_quote_volume"`
}

// WriteBars writes bars grouped by year, merging each year file with any
// records already on disk.
func (s *ParquetStore) WriteBars(_ context.Context, symbol string, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	groups := make(map[int][]KlineRecord)
	for i := range bars {
		year := bars[i].OpenTime.UTC().Year()
		groups[year] = append(groups[year], toRecord(bars[i]))
	}

	for year, records := range groups {
		path := s.yearPath(symbol, year)

		// Merge with existing records; incoming rows win on collision. An
		// unreadable year file aborts the write rather than clobbering it.
		var existing []KlineRecord
		if _, err := os.Stat(path); err == nil {
			existing, err = readParquetFile[KlineRecord](path)
			if err != nil {
				return fmt.Errorf("reading %s before merge: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return err
		}
		merged := mergeKlineRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing bars for %s/%d: %w", symbol, year, err)
		}
	}
	return nil
}

// ReadBars reads bars for the symbol within [start, end], spanning year
// files as needed. Missing year files are gaps, not errors.
func (s *ParquetStore) ReadBars(_ context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	var bars []domain.Bar
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		path := s.yearPath(symbol, year)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		records, err := readParquetFile[KlineRecord](path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.OpenTime).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			bars = append(bars, fromRecord(r))
		}
	}
	domain.SortBars(bars)
	return bars, nil
}

// ListSymbols lists all symbols that have stored bar data.
func (s *ParquetStore) ListSymbols(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var symbols []string
	for _, e := range entries {
		if e.IsDir() {
			symbols = append(symbols, e.Name())
		}
	}
	sort.Strings(symbols)
	return symbols, nil
}

// yearPath returns the filesystem path for a symbol's year file.
func (s *ParquetStore) yearPath(symbol string, year int) string {
	return filepath.Join(s.DataDir, strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func toRecord(b domain.Bar) KlineRecord {
	return KlineRecord{
		OpenTime:            b.OpenTime.UnixMilli(),
		CloseTime:           b.CloseTime.UnixMilli(),
		Open:                b.Open,
		High:                b.High,
		Low:                 b.Low,
		Close:               b.Close,
		Volume:              b.Volume,
		QuoteVolume:         b.QuoteVolume,
		TakerBuyVolume:      b.TakerBuyVolume,
		TakerBuyQuoteVolume: b.TakerBuyQuoteVolume,
	}
}

func fromRecord(r KlineRecord) domain.Bar {
	return domain.Bar{
		OpenTime:            time.UnixMilli(r.OpenTime).UTC(),
		CloseTime:           time.UnixMilli(r.CloseTime).UTC(),
		Open:                r.Open,
		High:                r.High,
		Low:                 r.Low,
		Close:               r.Close,
		Volume:              r.Volume,
		QuoteVolume:         r.QuoteVolume,
		TakerBuyVolume:      r.TakerBuyVolume,
		TakerBuyQuoteVolume: r.TakerBuyQuoteVolume,
	}
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeKlineRecords deduplicates records by open time, preferring incoming
// records over existing ones. Results are sorted by open time.
func mergeKlineRecords(existing, incoming []KlineRecord) []KlineRecord {
	seen := make(map[int64]KlineRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.OpenTime] = r
	}
	for _, r := range incoming {
		seen[r.OpenTime] = r
	}

	merged := make([]KlineRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].OpenTime < merged[j].OpenTime
	})
	return merged
}
