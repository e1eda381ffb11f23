package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Booking  BookingConfig  `mapstructure:"booking" validate:"required"`
	Matching MatchingConfig `mapstructure:"matching" validate:"required"`
	Outbox   OutboxConfig   `mapstructure:"outbox" validate:"required"`
	Sync     SyncConfig     `mapstructure:"sync" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel           string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig holds the secret used to verify bearer tokens issued by the auth service.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret" validate:"required,min=32"`
}

// BookingConfig controls the availability view.
type BookingConfig struct {
	DefaultRangeDays int    `mapstructure:"default_range_days" validate:"required,gt=0,lte=366"`
	Timezone         string `mapstructure:"timezone" validate:"required,timezone"`
}

// MatchingConfig holds the scoring weights and search limits.
// The weights are checked for a 1.0 sum by matching.Weights.Validate.
type MatchingConfig struct {
	ExpertiseWeight    float64 `mapstructure:"expertise_weight" validate:"gte=0,lte=1"`
	IndustryWeight     float64 `mapstructure:"industry_weight" validate:"gte=0,lte=1"`
	StageWeight        float64 `mapstructure:"stage_weight" validate:"gte=0,lte=1"`
	AvailabilityWeight float64 `mapstructure:"availability_weight" validate:"gte=0,lte=1"`
	MaxResults         int     `mapstructure:"max_results" validate:"required,gt=0"`
	Concurrency        int     `mapstructure:"concurrency" validate:"required,gt=0"`
}

// OutboxConfig tunes the sync dispatcher.
type OutboxConfig struct {
	MaxAttempts               int `mapstructure:"max_attempts" validate:"required,gt=0"`
	BatchSize                 int `mapstructure:"batch_size" validate:"required,gt=0"`
	PollIntervalSeconds       int `mapstructure:"poll_interval_seconds" validate:"required,gt=0"`
	WorkerCount               int `mapstructure:"worker_count" validate:"required,gt=0"`
	StaleAfterMinutes         int `mapstructure:"stale_after_minutes" validate:"required,gt=0"`
	StaleCheckIntervalMinutes int `mapstructure:"stale_check_interval_minutes" validate:"required,gt=0"`
}

// PollInterval returns the poll interval as a duration.
func (c OutboxConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// StaleAfter returns how long a claim may be held before it is reclaimed.
func (c OutboxConfig) StaleAfter() time.Duration {
	return time.Duration(c.StaleAfterMinutes) * time.Minute
}

// StaleCheckInterval returns how often stale claims are looked for.
func (c OutboxConfig) StaleCheckInterval() time.Duration {
	return time.Duration(c.StaleCheckIntervalMinutes) * time.Minute
}

// Sync target kinds
const (
	SyncTargetHTTP  = "http"
	SyncTargetRedis = "redis"
	SyncTargetLog   = "log"
)

// SyncConfig selects and configures the external sync target.
type SyncConfig struct {
	Target string          `mapstructure:"target" validate:"required,oneof=http redis log"`
	HTTP   HTTPSyncConfig  `mapstructure:"http"`
	Redis  RedisSyncConfig `mapstructure:"redis"`
}

// HTTPSyncConfig configures the HTTP sync client.
type HTTPSyncConfig struct {
	BaseURL        string  `mapstructure:"base_url" validate:"omitempty,url"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds" validate:"gt=0"`
	RatePerSecond  float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	Burst          int     `mapstructure:"burst" validate:"gt=0"`
}

// RedisSyncConfig configures the Redis sync target.
type RedisSyncConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db" validate:"gte=0"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}
