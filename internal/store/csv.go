package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pvbt/internal/backtest"
	"pvbt/internal/domain"
	"pvbt/internal/util"
)

// Compile-time interface check.
var _ BarReader = (*CSVLoader)(nil)

// CSVLoader reads daily kline CSV archives laid out one file per symbol and
// date: <DataDir>/<SYMBOL>/<SYMBOL>-<freq>-<YYYY-MM-DD>.csv, the layout the
// Binance archive fetcher produces. Files may or may not carry a header
// row; both archive generations occur in the wild.
type CSVLoader struct {
	DataDir string
	Freq    string // native bar granularity, e.g. "1m"
}

// NewCSVLoader creates a CSVLoader rooted at dataDir for archives of the
// given granularity.
func NewCSVLoader(dataDir, freq string) *CSVLoader {
	return &CSVLoader{DataDir: dataDir, Freq: freq}
}

// Positional column layout of a Binance kline row.
const (
	colOpenTime = iota
	colOpen
	colHigh
	colLow
	colClose
	colVolume
	colCloseTime
	colQuoteVolume
	colTradeCount
	colTakerBuyVolume
	colTakerBuyQuoteVolume
)

// ReadBars loads every day file for the symbol across [start, end] and
// returns the concatenated bars sorted by open time. Days with no file are
// treated as gaps, not errors; a range with no files at all is an empty
// series error.
func (l *CSVLoader) ReadBars(ctx context.Context, symbol string, start, end time.Time) ([]domain.Bar, error) {
	freqDur, err := backtest.ParseCadence(l.Freq)
	if err != nil {
		return nil, fmt.Errorf("loader freq: %w", err)
	}

	var bars []domain.Bar
	found := 0
	for _, date := range util.DateRange(start, end) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := l.dayPath(symbol, date)
		dayBars, err := readKlineCSV(path, freqDur)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		found++
		bars = append(bars, dayBars...)
	}

	if found == 0 {
		return nil, fmt.Errorf("%w: no data files for %s in %s..%s",
			backtest.ErrEmptySeries, symbol, util.FormatDate(start), util.FormatDate(end))
	}

	domain.SortBars(bars)
	return bars, nil
}

// dayPath returns the archive file path for one symbol and date.
func (l *CSVLoader) dayPath(symbol, date string) string {
	name := fmt.Sprintf("%s-%s-%s.csv", symbol, l.Freq, date)
	return filepath.Join(l.DataDir, symbol, name)
}

// readKlineCSV parses one day file. Non-numeric price/volume cells become
// NaN (missing data for that row); rows with an unusable open_time are
// skipped entirely.
func readKlineCSV(path string, freq time.Duration) ([]domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // archive generations differ in column count

	var bars []domain.Bar
	first := true
	cols := positionalColumns()
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if first {
			first = false
			if _, numErr := strconv.ParseInt(rec[0], 10, 64); numErr != nil {
				// Header row: map columns by name.
				cols, err = headerColumns(rec)
				if err != nil {
					return nil, err
				}
				continue
			}
			if len(rec) <= colClose {
				return nil, fmt.Errorf("%w: row has %d fields, need open_time through close",
					backtest.ErrMissingColumn, len(rec))
			}
		}

		bar, ok := parseKlineRow(rec, cols, freq)
		if ok {
			bars = append(bars, bar)
		}
	}
	return bars, nil
}

// columnIndex maps logical columns to field positions; -1 marks an absent
// optional column.
type columnIndex [colTakerBuyQuoteVolume + 1]int

func positionalColumns() columnIndex {
	var c columnIndex
	for i := range c {
		c[i] = i
	}
	return c
}

func headerColumns(header []string) (columnIndex, error) {
	var c columnIndex
	for i := range c {
		c[i] = -1
	}
	names := map[string]int{
		"open_time":              colOpenTime,
		"open":                   colOpen,
		"high":                   colHigh,
		"low":                    colLow,
		"close":                  colClose,
		"volume":                 colVolume,
		"close_time":             colCloseTime,
		"quote_volume":           colQuoteVolume,
		"count":                  colTradeCount,
		"taker_buy_volume":       colTakerBuyVolume,
		"taker_buy_quote_volume": colTakerBuyQuoteVolume,
	}
	for i, name := range header {
		if idx, ok := names[strings.TrimSpace(strings.ToLower(name))]; ok {
			c[idx] = i
		}
	}
	for _, required := range []int{colOpenTime, colOpen, colHigh, colLow, colClose} {
		if c[required] == -1 {
			return c, fmt.Errorf("%w: header lacks a required kline column", backtest.ErrMissingColumn)
		}
	}
	return c, nil
}

func parseKlineRow(rec []string, cols columnIndex, freq time.Duration) (domain.Bar, bool) {
	openMs, err := intField(rec, cols[colOpenTime])
	if err != nil {
		return domain.Bar{}, false
	}

	bar := domain.Bar{
		OpenTime:            time.UnixMilli(openMs).UTC(),
		Open:                floatField(rec, cols[colOpen]),
		High:                floatField(rec, cols[colHigh]),
		Low:                 floatField(rec, cols[colLow]),
		Close:               floatField(rec, cols[colClose]),
		Volume:              floatField(rec, cols[colVolume]),
		QuoteVolume:         floatField(rec, cols[colQuoteVolume]),
		TakerBuyVolume:      floatField(rec, cols[colTakerBuyVolume]),
		TakerBuyQuoteVolume: floatField(rec, cols[colTakerBuyQuoteVolume]),
	}

	// close_time is preferred when present, for close-based signal timing.
	if closeMs, err := intField(rec, cols[colCloseTime]); err == nil {
		bar.CloseTime = time.UnixMilli(closeMs).UTC()
	} else {
		bar.CloseTime = bar.OpenTime.Add(freq)
	}
	return bar, true
}

func intField(rec []string, idx int) (int64, error) {
	if idx < 0 || idx >= len(rec) {
		return 0, fmt.Errorf("field absent")
	}
	return strconv.ParseInt(strings.TrimSpace(rec[idx]), 10, 64)
}

func floatField(rec []string, idx int) float64 {
	if idx < 0 || idx >= len(rec) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[idx]), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
