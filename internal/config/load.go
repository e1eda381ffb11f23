package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. MENTORBOOK_DATABASE_URL for database.url.
const EnvPrefix = "MENTORBOOK"

// defaults lists every known key. Keys without a sensible default are set to
// their zero value so that AutomaticEnv can still bind them during Unmarshal.
var defaults = map[string]interface{}{
	"server.port":                         8080,
	"server.log_level":                    "info",
	"server.cors_allowed_origins":         []string{},
	"database.url":                        "",
	"auth.jwt_secret":                     "",
	"booking.default_range_days":          14,
	"booking.timezone":                    "UTC",
	"matching.expertise_weight":           0.4,
	"matching.industry_weight":            0.3,
	"matching.stage_weight":               0.2,
	"matching.availability_weight":        0.1,
	"matching.max_results":                50,
	"matching.concurrency":                8,
	"outbox.max_attempts":                 3,
	"outbox.batch_size":                   20,
	"outbox.poll_interval_seconds":        5,
	"outbox.worker_count":                 2,
	"outbox.stale_after_minutes":          10,
	"outbox.stale_check_interval_minutes": 1,
	"sync.target":                         SyncTargetLog,
	"sync.http.base_url":                  "",
	"sync.http.timeout_seconds":           10,
	"sync.http.rate_per_second":           5.0,
	"sync.http.burst":                     10,
	"sync.redis.addr":                     "localhost:6379",
	"sync.redis.password":                 "",
	"sync.redis.db":                       0,
	"sync.redis.key_prefix":               "mentorbook",
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate runs struct tag validation and the cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Sync.Target == SyncTargetHTTP && cfg.Sync.HTTP.BaseURL == "" {
		return fmt.Errorf("config validation failed: sync.http.base_url is required when sync.target is %q", SyncTargetHTTP)
	}
	if cfg.Sync.Target == SyncTargetRedis && cfg.Sync.Redis.Addr == "" {
		return fmt.Errorf("config validation failed: sync.redis.addr is required when sync.target is %q", SyncTargetRedis)
	}

	return nil
}
