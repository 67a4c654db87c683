// Package fetch downloads native bar data from external market-data
// providers into the local data directory.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pvbt/internal/util"
)

// BinanceFetcher downloads daily kline zip archives from the Binance public
// data site and extracts them as per-day CSV files under
// <DataDir>/<SYMBOL>/. Already-extracted days are skipped, so reruns only
// fill gaps.
type BinanceFetcher struct {
	BaseURL     string // e.g. https://data.binance.vision
	Market      string // "spot" or "futures-um"
	DataDir     string
	Freq        string // e.g. "1m"
	MaxAttempts int
	client      *http.Client
	limiter     *util.RateLimiter
	log         *slog.Logger
}

// NewBinanceFetcher creates a BinanceFetcher with the given rate limit in
// requests per minute.
func NewBinanceFetcher(baseURL, market, dataDir, freq string, rateLimitPerMin, maxAttempts int) *BinanceFetcher {
	return &BinanceFetcher{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Market:      market,
		DataDir:     dataDir,
		Freq:        freq,
		MaxAttempts: maxAttempts,
		client:      &http.Client{Timeout: 2 * time.Minute},
		limiter:     util.NewRateLimiter(rateLimitPerMin),
		log:         slog.Default().With("fetcher", "binance"),
	}
}

// Fetch downloads all missing day files for the symbol across [start, end].
// Days the archive does not have (404) are logged and skipped.
func (f *BinanceFetcher) Fetch(ctx context.Context, symbol string, start, end time.Time) error {
	symbol = strings.ToUpper(symbol)
	symDir := filepath.Join(f.DataDir, symbol)
	if err := os.MkdirAll(symDir, 0o755); err != nil {
		return err
	}

	dates := util.DateRange(start, end)
	fetched, skipped := 0, 0
	for _, date := range dates {
		if err := ctx.Err(); err != nil {
			return err
		}

		csvPath := filepath.Join(symDir, fmt.Sprintf("%s-%s-%s.csv", symbol, f.Freq, date))
		if _, err := os.Stat(csvPath); err == nil {
			skipped++
			continue
		}

		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}

		err := util.Retry(ctx, f.MaxAttempts, time.Second, func() error {
			return f.fetchDay(ctx, symbol, date, csvPath)
		})
		if err != nil {
			if isNotFound(err) {
				f.log.Warn("no archive for day", "symbol", symbol, "date", date)
				continue
			}
			return fmt.Errorf("fetching %s %s: %w", symbol, date, err)
		}
		fetched++
	}

	f.log.Info("fetch complete", "symbol", symbol,
		"days", len(dates), "fetched", fetched, "existing", skipped)
	return nil
}

// archiveURL builds the download URL for a symbol/date zip.
func (f *BinanceFetcher) archiveURL(symbol, date string) string {
	marketPath := "spot"
	if f.Market == "futures-um" {
		marketPath = "futures/um"
	}
	return fmt.Sprintf("%s/data/%s/daily/klines/%s/%s/%s-%s-%s.zip",
		f.BaseURL, marketPath, symbol, f.Freq, symbol, f.Freq, date)
}

type notFoundError struct{ url string }

func (e *notFoundError) Error() string { return "not found: " + e.url }

func isNotFound(err error) bool {
	var nf *notFoundError
	return errors.As(err, &nf)
}

// fetchDay downloads one day's zip archive and extracts its CSV member to
// csvPath. A partial file is removed on failure.
func (f *BinanceFetcher) fetchDay(ctx context.Context, symbol, date, csvPath string) error {
	url := f.archiveURL(symbol, date)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &notFoundError{url: url}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return fmt.Errorf("opening archive %s: %w", url, err)
	}

	for _, member := range zr.File {
		if !strings.HasSuffix(member.Name, ".csv") {
			continue
		}
		if err := extractMember(member, csvPath); err != nil {
			os.Remove(csvPath)
			return err
		}
		return nil
	}
	return fmt.Errorf("archive %s has no csv member", url)
}

func extractMember(member *zip.File, dst string) error {
	rc, err := member.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
