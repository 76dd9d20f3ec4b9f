package config

import (
	"time"

	redisclient "github.com/vietddude/genflow/internal/infra/redis"
	"github.com/vietddude/genflow/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	API      APIConfig          `yaml:"api"`
	Client   ClientConfig       `yaml:"client"`
	Poll     PollConfig         `yaml:"poll"`
	Budget   BudgetConfig       `yaml:"budget"`
	History  HistoryConfig      `yaml:"history"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds the health/metrics HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// APIConfig holds the external generation service endpoint settings.
type APIConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Key     string `yaml:"key"      mapstructure:"key"` // bearer token, passed through as-is
}

// ClientConfig holds request execution settings.
type ClientConfig struct {
	MaxConcurrentRequests int           `yaml:"max_concurrent_requests" mapstructure:"max_concurrent_requests"`
	Timeout               time.Duration `yaml:"timeout"                 mapstructure:"timeout"` // per attempt
	MaxRetries            int           `yaml:"max_retries"             mapstructure:"max_retries"`
	InitialDelay          time.Duration `yaml:"initial_delay"           mapstructure:"initial_delay"`
	MaxDelay              time.Duration `yaml:"max_delay"               mapstructure:"max_delay"`
	BackoffMultiplier     float64       `yaml:"backoff_multiplier"      mapstructure:"backoff_multiplier"`
	MaxRetryAfter         time.Duration `yaml:"max_retry_after"         mapstructure:"max_retry_after"` // bound on honoring Retry-After
	MaxPromptLength       int           `yaml:"max_prompt_length"       mapstructure:"max_prompt_length"`
}

// PollConfig holds status polling settings.
type PollConfig struct {
	InitialInterval       time.Duration `yaml:"initial_interval"       mapstructure:"initial_interval"`
	MinInterval           time.Duration `yaml:"min_interval"           mapstructure:"min_interval"`
	MaxInterval           time.Duration `yaml:"max_interval"           mapstructure:"max_interval"`
	Adaptive              bool          `yaml:"adaptive"               mapstructure:"adaptive"`
	AccelerationThreshold float64       `yaml:"acceleration_threshold" mapstructure:"acceleration_threshold"` // progress percent
	MaxFailures           int           `yaml:"max_failures"           mapstructure:"max_failures"`           // consecutive poll failures before aborting
}

// BudgetConfig holds daily quota settings.
type BudgetConfig struct {
	DailyQuota int     `yaml:"daily_quota" mapstructure:"daily_quota"` // 0 = unlimited
	DailyCost  float64 `yaml:"daily_cost"  mapstructure:"daily_cost"`  // currency units, 0 = untracked
	Strict     bool    `yaml:"strict"      mapstructure:"strict"`      // reject submissions once exhausted
}

// HistoryConfig holds history sync and retention settings.
type HistoryConfig struct {
	SyncInterval    time.Duration `yaml:"sync_interval"    mapstructure:"sync_interval"`
	SyncLimit       int           `yaml:"sync_limit"       mapstructure:"sync_limit"`
	RetentionPeriod time.Duration `yaml:"retention_period" mapstructure:"retention_period"` // 0 = infinite
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}
