package config

import (
	"os"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration loaded from environment variables.
// One terminal = one process = one config; nothing here is mutated after Load.
type Config struct {
	// Server (localhost API consumed by the UI shell)
	Port int    `mapstructure:"PORT"`
	Env  string `mapstructure:"APP_ENV"` // development | production

	// Identity
	DeviceID      string `mapstructure:"DEVICE_ID"`
	PointOfSaleID int    `mapstructure:"POINT_OF_SALE_ID"`

	// Local store
	DatabasePath string `mapstructure:"DATABASE_PATH"`

	// Backend
	BackendURL     string `mapstructure:"BACKEND_URL"`
	RequestTimeout int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`

	// Push flusher
	FlushInterval      int `mapstructure:"FLUSH_INTERVAL_SECONDS"`
	QueueMaxAttempts   int `mapstructure:"QUEUE_MAX_ATTEMPTS"`
	QueueRetentionDays int `mapstructure:"QUEUE_RETENTION_DAYS"`
	BackoffBaseMillis  int `mapstructure:"BACKOFF_BASE_MILLIS"`
	BackoffCapSeconds  int `mapstructure:"BACKOFF_CAP_SECONDS"`
	BacklogThreshold   int `mapstructure:"BACKLOG_THRESHOLD"`

	// Pull synchronizer
	PullInterval int `mapstructure:"PULL_INTERVAL_SECONDS"`
	PullPageSize int `mapstructure:"PULL_PAGE_SIZE"`
}

// Load reads configuration from environment variables (and optional .env file).
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Sensible defaults for a single-terminal deployment
	viper.SetDefault("PORT", 8400)
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("DEVICE_ID", "")
	viper.SetDefault("POINT_OF_SALE_ID", 1)
	viper.SetDefault("DATABASE_PATH", "tillsync.db")
	viper.SetDefault("BACKEND_URL", "http://localhost:8000")
	viper.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	viper.SetDefault("FLUSH_INTERVAL_SECONDS", 5)
	viper.SetDefault("QUEUE_MAX_ATTEMPTS", 10)
	viper.SetDefault("QUEUE_RETENTION_DAYS", 7)
	viper.SetDefault("BACKOFF_BASE_MILLIS", 2000)
	viper.SetDefault("BACKOFF_CAP_SECONDS", 300)
	viper.SetDefault("BACKLOG_THRESHOLD", 200)
	viper.SetDefault("PULL_INTERVAL_SECONDS", 120)
	viper.SetDefault("PULL_PAGE_SIZE", 200)

	// Optional .env file for local development — does not fail if missing
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	// The device id salts every idempotency key; default to the hostname so
	// two terminals never produce colliding keys out of the box.
	if cfg.DeviceID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "terminal"
		}
		cfg.DeviceID = host
	}

	return cfg, nil
}
