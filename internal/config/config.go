// Package config loads the YAML configuration file and applies environment
// variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the pvbt tools.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Backtest Backtest `yaml:"backtest"`
	Fetch    Fetch    `yaml:"fetch"`
	Alpaca   Alpaca   `yaml:"alpaca"`
	Logging  Logging  `yaml:"logging"`
}

// Storage holds paths for data and result persistence.
type Storage struct {
	DataDir     string `yaml:"data_dir"`     // daily kline CSV / parquet root
	ResultsPath string `yaml:"results_path"` // sqlite database for run results
	OutDir      string `yaml:"out_dir"`      // daily metrics CSV exports
}

// Backtest is the configuration surface the simulation core accepts.
type Backtest struct {
	Notional            float64  `yaml:"notional"`
	TransactionCostBps  float64  `yaml:"transaction_cost_bps"`
	ResampleCadence     string   `yaml:"resample_cadence"` // empty = native cadence
	DayBoundaryTimezone string   `yaml:"day_boundary_timezone"`
	AllowShort          bool     `yaml:"allow_short"`
	Boundary            Boundary `yaml:"boundary"`
}

// Boundary pins down the resample bucketing convention explicitly. Earlier
// versions of this engine disagreed on the implicit default, which silently
// changed which signal the as-of join saw.
type Boundary struct {
	Closed string `yaml:"closed"` // "left" or "right"
	Label  string `yaml:"label"`  // "open" or "close"
}

// Fetch controls the archive downloader.
type Fetch struct {
	BaseURL         string   `yaml:"base_url"` // Binance data archive root
	Market          string   `yaml:"market"`   // "spot" or "futures-um"
	Symbols         []string `yaml:"symbols"`
	Freq            string   `yaml:"freq"` // native bar granularity, e.g. "1m"
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	MaxAttempts     int      `yaml:"max_attempts"`
}

// Alpaca holds credentials for the Alpaca market-data API, used by the
// equity bar fetcher.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	DataURL   string `yaml:"data_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a Config with the documented defaults filled in. Loading
// starts from this and lets the file and environment override it.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir: "data",
			OutDir:  "bt_out",
		},
		Backtest: Backtest{
			Notional:            1.0,
			TransactionCostBps:  0,
			DayBoundaryTimezone: "UTC",
			Boundary:            Boundary{Closed: "left", Label: "open"},
		},
		Fetch: Fetch{
			BaseURL:         "https://data.binance.vision",
			Market:          "spot",
			Freq:            "1m",
			RateLimitPerMin: 60,
			MaxAttempts:     3,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants of the configuration surface.
func (c *Config) Validate() error {
	if c.Backtest.Notional <= 0 {
		return fmt.Errorf("backtest.notional must be > 0, got %v", c.Backtest.Notional)
	}
	if c.Backtest.TransactionCostBps < 0 {
		return fmt.Errorf("backtest.transaction_cost_bps must be >= 0, got %v", c.Backtest.TransactionCostBps)
	}
	switch c.Backtest.Boundary.Closed {
	case "left", "right":
	default:
		return fmt.Errorf("backtest.boundary.closed must be \"left\" or \"right\", got %q", c.Backtest.Boundary.Closed)
	}
	switch c.Backtest.Boundary.Label {
	case "open", "close":
	default:
		return fmt.Errorf("backtest.boundary.label must be \"open\" or \"close\", got %q", c.Backtest.Boundary.Label)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("RESULTS_PATH"); v != "" {
		cfg.Storage.ResultsPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Canonical Alpaca env vars used by the SDK take priority.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
