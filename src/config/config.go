package config

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

const (
	configPathEnv     = "CONFIG_PATH"
	envPrefix         = "CROSSBOT"
	defaultConfigFile = "config.local.yaml"
)

// Load reads the file named by CONFIG_PATH, or config.local.yaml at the repo
// root. The default file is optional; an explicit CONFIG_PATH must exist.
func Load() (*datamodels.CrossbotConfig, error) {
	configPath := os.Getenv(configPathEnv)
	if configPath != "" {
		return LoadFile(configPath)
	}
	currentDir := general.GetCurrentDir()
	configPath = filepath.Join(currentDir, "..", defaultConfigFile)
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		slog.Info("No config file found, using defaults and environment", "path", configPath)
		return LoadFile("")
	}
	return LoadFile(configPath)
}

// LoadFile layers defaults, the YAML file at configPath (skipped when empty)
// and CROSSBOT_ prefixed environment variables, then validates the result.
// Nested keys map to env names with dots replaced, e.g. CROSSBOT_POLLER_POLL_INTERVAL.
func LoadFile(configPath string) (*datamodels.CrossbotConfig, error) {
	v := viper.New()
	setDefaults(v, datamodels.DefaultCrossbotConfig())
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", configPath)
		}
	}

	var crossbotConfig datamodels.CrossbotConfig
	if err := v.Unmarshal(&crossbotConfig); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := crossbotConfig.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &crossbotConfig, nil
}

func setDefaults(v *viper.Viper, defaults datamodels.CrossbotConfig) {
	v.SetDefault("symbol", defaults.Symbol)

	v.SetDefault("strategy.fast_window", defaults.Strategy.FastWindow)
	v.SetDefault("strategy.slow_window", defaults.Strategy.SlowWindow)

	v.SetDefault("poller.poll_interval", defaults.Poller.PollInterval)
	v.SetDefault("poller.max_backoff_exponent", defaults.Poller.MaxBackoffExponent)

	v.SetDefault("tracker.heartbeat_interval", defaults.Tracker.HeartbeatInterval)
	v.SetDefault("tracker.log_directory", defaults.Tracker.LogDirectory)
	v.SetDefault("tracker.metrics_persist_every_n_samples", defaults.Tracker.MetricsPersistEveryNSamples)
	v.SetDefault("tracker.report_interval", defaults.Tracker.ReportInterval)
	v.SetDefault("tracker.pnl_chart", defaults.Tracker.PnlChart)

	v.SetDefault("kraken.rest_url", defaults.Kraken.RestUrl)
	v.SetDefault("kraken.timeout", defaults.Kraken.Timeout)

	v.SetDefault("server.enabled", defaults.Server.Enabled)
	v.SetDefault("server.addr", defaults.Server.Addr)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", defaults.Logging.MaxAgeDays)
}
