package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	LogLevel          string        `env:"LOG_LEVEL" envDefault:"info"`
	CollectorAddr     string        `env:"COLLECTOR_ADDR" envDefault:":8080"`
	AdminAddr         string        `env:"ADMIN_ADDR" envDefault:":9091"`
	MaxSignalSize     int64         `env:"MAX_SIGNAL_SIZE_BYTES" envDefault:"262144"` // 256KB
	RedisAddr         string        `env:"REDIS_ADDR,required"`
	RedisDLQStream    string        `env:"REDIS_DLQ_STREAM" envDefault:"tracker_events_dlq"`
	PostgresURL       string        `env:"POSTGRES_URL,required"`
	WALPath           string        `env:"WAL_PATH" envDefault:"./wal"`
	WALSegmentSize    int64         `env:"WAL_SEGMENT_SIZE_BYTES" envDefault:"104857600"` // 100MB
	WALMaxDiskSize    int64         `env:"WAL_MAX_DISK_SIZE_BYTES" envDefault:"1073741824"` // 1GB
	TrackingKeyTTL    time.Duration `env:"TRACKING_KEY_CACHE_TTL" envDefault:"5m"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	SessionSweep      time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1m"`
	ScrollDebounce    time.Duration `env:"SCROLL_DEBOUNCE" envDefault:"100ms"`
	ExtraSensitive    []string      `env:"EXTRA_SENSITIVE_FIELDS" envSeparator:","`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"true"`
	RequireKnownKeys  bool          `env:"REQUIRE_KNOWN_TRACKING_KEYS" envDefault:"false"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Attempt to load .env file for local development.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}
