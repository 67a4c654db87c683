package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"pvbt/internal/domain"
	"pvbt/internal/store"
)

// AlpacaFetcher pulls daily equity bars from the Alpaca market-data API and
// writes them to a bar store.
type AlpacaFetcher struct {
	client *marketdata.Client
	store  store.BarStore
	log    *slog.Logger
}

// NewAlpacaFetcher creates an AlpacaFetcher with the given credentials. An
// empty dataURL uses the Alpaca default.
func NewAlpacaFetcher(apiKey, apiSecret, dataURL string, s store.BarStore) *AlpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaFetcher{
		client: marketdata.NewClient(opts),
		store:  s,
		log:    slog.Default().With("fetcher", "alpaca"),
	}
}

// Fetch downloads daily bars for the symbols across [start, end] in one
// multi-symbol request per call and persists them per symbol.
func (f *AlpacaFetcher) Fetch(ctx context.Context, symbols []string, start, end time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	multiBars, err := f.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
	})
	if err != nil {
		return fmt.Errorf("GetMultiBars: %w", err)
	}

	for symbol, alpacaBars := range multiBars {
		bars := make([]domain.Bar, 0, len(alpacaBars))
		for _, ab := range alpacaBars {
			open := ab.Timestamp.UTC()
			bars = append(bars, domain.Bar{
				OpenTime:  open,
				CloseTime: open.Add(24 * time.Hour),
				Open:      ab.Open,
				High:      ab.High,
				Low:       ab.Low,
				Close:     ab.Close,
				Volume:    float64(ab.Volume),
			})
		}
		if len(bars) == 0 {
			continue
		}
		if err := f.store.WriteBars(ctx, strings.ToUpper(symbol), bars); err != nil {
			return fmt.Errorf("writing %s bars: %w", symbol, err)
		}
		f.log.Info("fetched daily bars", "symbol", symbol, "bars", len(bars))
	}
	return nil
}
