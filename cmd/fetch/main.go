// Data fetcher: download native bars into the local data directory, either
// from the Binance public archive (crypto klines) or the Alpaca market-data
// API (US equity daily bars).
//
// Usage:
//
//	go run cmd/fetch/main.go -provider binance -symbols BTCUSDT,ETHUSDT -start 2024-06-01 -end 2024-06-30
//	go run cmd/fetch/main.go -provider alpaca -symbols AAPL,MSFT -start 2024-01-01 -end 2024-06-30
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"pvbt/internal/config"
	"pvbt/internal/fetch"
	"pvbt/internal/store"
	"pvbt/internal/util"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "config file path (default config/pvbt.yaml)")
		provider = flag.String("provider", "binance", "data provider: binance or alpaca")
		symbols  = flag.String("symbols", "", "comma-separated symbols (default from config)")
		startStr = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endStr   = flag.String("end", "", "end date YYYY-MM-DD (required)")
	)
	flag.Parse()

	if *startStr == "" || *endStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	start, err := util.ParseDate(*startStr)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	end, err := util.ParseDate(*endStr)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}

	syms := cfg.Fetch.Symbols
	if *symbols != "" {
		syms = strings.Split(*symbols, ",")
	}
	if len(syms) == 0 {
		log.Fatal("no symbols given: pass -symbols or set fetch.symbols in the config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch *provider {
	case "binance":
		f := fetch.NewBinanceFetcher(cfg.Fetch.BaseURL, cfg.Fetch.Market,
			cfg.Storage.DataDir, cfg.Fetch.Freq,
			cfg.Fetch.RateLimitPerMin, cfg.Fetch.MaxAttempts)
		for _, sym := range syms {
			if err := f.Fetch(ctx, strings.TrimSpace(sym), start, end); err != nil {
				log.Fatalf("fetching %s: %v", sym, err)
			}
		}

	case "alpaca":
		if cfg.Alpaca.APIKey == "" || cfg.Alpaca.APISecret == "" {
			log.Fatal("alpaca credentials missing: set APCA_API_KEY_ID and APCA_API_SECRET_KEY")
		}
		s := store.NewParquetStore(cfg.Storage.DataDir)
		f := fetch.NewAlpacaFetcher(cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.DataURL, s)
		if err := f.Fetch(ctx, syms, start, end); err != nil {
			log.Fatalf("fetching: %v", err)
		}

	default:
		log.Fatalf("unknown provider %q, want binance or alpaca", *provider)
	}
}

// loadConfig loads the config file, falling back to built-in defaults when
// no file exists.
func loadConfig(path string) *config.Config {
	if path == "" {
		path = "config/pvbt.yaml"
		if p := os.Getenv("PVBT_CONFIG"); p != "" {
			path = p
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config.Default()
		}
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}
