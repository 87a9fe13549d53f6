package datamodels

import (
	"time"

	"crossbot/src/utils/errors"
)

// every tunable of the live loop; loaded by config.Load
type CrossbotConfig struct {
	Symbol   string         `mapstructure:"symbol"`
	Strategy StrategyConfig `mapstructure:"strategy"`
	Poller   PollerConfig   `mapstructure:"poller"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Kraken   KrakenConfig   `mapstructure:"kraken"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type StrategyConfig struct {
	FastWindow int `mapstructure:"fast_window"`
	SlowWindow int `mapstructure:"slow_window"`
}

type PollerConfig struct {
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	MaxBackoffExponent int           `mapstructure:"max_backoff_exponent"`
}

type TrackerConfig struct {
	HeartbeatInterval           time.Duration `mapstructure:"heartbeat_interval"`
	LogDirectory                string        `mapstructure:"log_directory"`
	MetricsPersistEveryNSamples int           `mapstructure:"metrics_persist_every_n_samples"`
	ReportInterval              time.Duration `mapstructure:"report_interval"`
	PnlChart                    bool          `mapstructure:"pnl_chart"`
}

type KrakenConfig struct {
	RestUrl string        `mapstructure:"rest_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// exponents above this overflow a time.Duration for any sane poll interval
const MaxBackoffExponentLimit = 30

func DefaultCrossbotConfig() CrossbotConfig {
	return CrossbotConfig{
		Symbol: "XBTUSD",
		Strategy: StrategyConfig{
			FastWindow: 10,
			SlowWindow: 20,
		},
		Poller: PollerConfig{
			PollInterval:       time.Second,
			MaxBackoffExponent: 5,
		},
		Tracker: TrackerConfig{
			HeartbeatInterval:           60 * time.Second,
			LogDirectory:                "./logs",
			MetricsPersistEveryNSamples: 100,
			ReportInterval:              time.Hour,
			PnlChart:                    true,
		},
		Kraken: KrakenConfig{
			RestUrl: "https://api.kraken.com/0",
			Timeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    ":8080",
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 14,
		},
	}
}

func (c *CrossbotConfig) Validate() error {
	if c.Symbol == "" {
		return errors.New("symbol is required")
	}
	if c.Strategy.FastWindow < 1 {
		return errors.New("strategy.fast_window must be at least 1")
	}
	if c.Strategy.FastWindow >= c.Strategy.SlowWindow {
		return errors.Newf("strategy.fast_window (%d) must be less than strategy.slow_window (%d)",
			c.Strategy.FastWindow, c.Strategy.SlowWindow)
	}
	if c.Poller.PollInterval <= 0 {
		return errors.New("poller.poll_interval must be greater than 0")
	}
	if c.Poller.MaxBackoffExponent < 0 || c.Poller.MaxBackoffExponent > MaxBackoffExponentLimit {
		return errors.Newf("poller.max_backoff_exponent must be between 0 and %d", MaxBackoffExponentLimit)
	}
	if c.Tracker.HeartbeatInterval <= 0 {
		return errors.New("tracker.heartbeat_interval must be greater than 0")
	}
	if c.Tracker.LogDirectory == "" {
		return errors.New("tracker.log_directory is required")
	}
	if c.Tracker.MetricsPersistEveryNSamples <= 0 {
		return errors.New("tracker.metrics_persist_every_n_samples must be greater than 0")
	}
	if c.Tracker.ReportInterval <= 0 {
		return errors.New("tracker.report_interval must be greater than 0")
	}
	if c.Kraken.RestUrl == "" {
		return errors.New("kraken.rest_url is required")
	}
	if c.Server.Enabled && c.Server.Addr == "" {
		return errors.New("server.addr is required when the server is enabled")
	}
	return nil
}
