package main

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
)

// Config is read from the environment.
type Config struct {
	AppState      string        `env:"APPSTATE"     envDefault:"Splash"`
	LogLevel      zapcore.Level `env:"LOG_LEVEL"    envDefault:"info"`
	TickRate      time.Duration `env:"TICK_RATE"    envDefault:"16ms"`
	Manifest      string        `env:"MANIFEST"`
	ManifestWatch bool          `env:"MANIFEST_WATCH"`
	AssetRoot     string        `env:"ASSET_ROOT"`
	MetricsAddr   string        `env:"METRICS_ADDR"`
	LoadLatency   time.Duration `env:"LOAD_LATENCY" envDefault:"300ms"`
}

func loadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TickRate <= 0 {
		return Config{}, fmt.Errorf("TICK_RATE must be positive, got %v", cfg.TickRate)
	}
	if cfg.ManifestWatch && cfg.Manifest == "" {
		return Config{}, fmt.Errorf("MANIFEST_WATCH needs MANIFEST")
	}
	return cfg, nil
}
