// Backtest runner: replay a strategy over stored native bars and report
// daily performance metrics.
//
// Usage:
//
//	go run cmd/backtest/main.go -symbol BTCUSDT -strategy sma_cross -start 2024-06-01 -end 2024-06-30
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pvbt/internal/backtest"
	"pvbt/internal/config"
	"pvbt/internal/report"
	"pvbt/internal/store"
	"pvbt/internal/strategy"
	"pvbt/internal/strategy/builtins"
	"pvbt/internal/util"
)

func main() {
	var (
		cfgPath   = flag.String("config", "", "config file path (default config/pvbt.yaml)")
		symbol    = flag.String("symbol", "", "symbol to backtest (required)")
		stratName = flag.String("strategy", "sma_cross", "strategy name")
		startStr  = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endStr    = flag.String("end", "", "end date YYYY-MM-DD (required)")
		cadence   = flag.String("cadence", "", "resample cadence override, e.g. 30m")
		source    = flag.String("source", "csv", "bar source: csv or parquet")
		save      = flag.Bool("save", false, "persist the run to the results database")

		fast      = flag.Int("fast", 10, "sma_cross fast window")
		slow      = flag.Int("slow", 30, "sma_cross slow window")
		window    = flag.Int("window", 20, "follow_volume rolling window")
		threshold = flag.Float64("threshold", 0.1, "follow_volume imbalance threshold")
	)
	flag.Parse()

	if *symbol == "" || *startStr == "" || *endStr == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg := loadConfig(*cfgPath)
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format))

	if *cadence != "" {
		cfg.Backtest.ResampleCadence = *cadence
	}

	start, err := util.ParseDate(*startStr)
	if err != nil {
		log.Fatalf("bad -start: %v", err)
	}
	end, err := util.ParseDate(*endStr)
	if err != nil {
		log.Fatalf("bad -end: %v", err)
	}
	// End date is inclusive.
	end = end.Add(24*time.Hour - time.Nanosecond)

	registry := strategy.NewRegistry()
	registerBuiltins(registry, cfg, *fast, *slow, *window, *threshold)
	strat, ok := registry.Get(*stratName)
	if !ok {
		log.Fatalf("unknown strategy %q, available: %v", *stratName, registry.List())
	}

	reader := barReader(cfg, *source)
	ctx := context.Background()
	bars, err := reader.ReadBars(ctx, *symbol, start, end)
	if err != nil {
		log.Fatalf("loading bars: %v", err)
	}

	bt, err := backtest.New(backtest.Config{
		Notional:           cfg.Backtest.Notional,
		TransactionCostBps: cfg.Backtest.TransactionCostBps,
		ResampleCadence:    cfg.Backtest.ResampleCadence,
		DayBoundaryTZ:      cfg.Backtest.DayBoundaryTimezone,
		Boundary:           boundaryFromConfig(cfg.Backtest.Boundary),
	})
	if err != nil {
		log.Fatalf("configuring backtester: %v", err)
	}

	res, err := bt.Run(bars, strat)
	if err != nil {
		log.Fatalf("running backtest: %v", err)
	}

	fmt.Println(report.Summary(*symbol, strat.Name(), res))

	outPath := filepath.Join(cfg.Storage.OutDir,
		fmt.Sprintf("%s-%s-daily.csv", *symbol, strat.Name()))
	if err := report.WriteDailyCSV(outPath, res.Daily); err != nil {
		log.Fatalf("writing daily report: %v", err)
	}
	fmt.Printf("daily metrics: %s\n", outPath)

	if *save {
		if cfg.Storage.ResultsPath == "" {
			log.Fatal("-save requires storage.results_path in the config")
		}
		rs, err := store.NewResultStore(cfg.Storage.ResultsPath)
		if err != nil {
			log.Fatalf("opening result store: %v", err)
		}
		defer rs.Close()

		id, err := rs.SaveRun(ctx, store.RunSummary{
			Symbol:      *symbol,
			Strategy:    strat.Name(),
			Cadence:     cfg.Backtest.ResampleCadence,
			Notional:    cfg.Backtest.Notional,
			CostBps:     cfg.Backtest.TransactionCostBps,
			Sharpe:      res.Sharpe,
			TotalReturn: res.TotalReturn,
			CreatedAt:   time.Now().UTC(),
		}, res.Daily)
		if err != nil {
			log.Fatalf("saving run: %v", err)
		}
		fmt.Printf("saved run %d to %s\n", id, cfg.Storage.ResultsPath)
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

func registerBuiltins(r *strategy.Registry, cfg *config.Config, fast, slow, window int, threshold float64) {
	allowShort := cfg.Backtest.AllowShort
	if s, err := builtins.NewSMACross(fast, slow, allowShort); err == nil {
		r.Register(s)
	} else {
		log.Fatalf("sma_cross: %v", err)
	}
	if s, err := builtins.NewFollowVolume(window, threshold, allowShort); err == nil {
		r.Register(s)
	} else {
		log.Fatalf("follow_volume: %v", err)
	}
}

func barReader(cfg *config.Config, source string) store.BarReader {
	switch source {
	case "parquet":
		return store.NewParquetStore(cfg.Storage.DataDir)
	case "csv":
		return store.NewCSVLoader(cfg.Storage.DataDir, cfg.Fetch.Freq)
	default:
		log.Fatalf("unknown bar source %q, want csv or parquet", source)
		return nil
	}
}

func boundaryFromConfig(b config.Boundary) backtest.Boundary {
	out := backtest.Boundary{}
	if b.Closed == "right" {
		out.Closed = backtest.ClosedRight
	}
	if b.Label == "close" {
		out.Label = backtest.LabelClose
	}
	return out
}
