// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package config loads recommender configuration from built-in defaults, an
// optional YAML file and environment variables, in that order of precedence
// (environment wins).
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("failed to load config")
//	}
//	client := tmdb.NewClient(cfg.Metadata, logger)
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Metadata    MetadataConfig    `koanf:"metadata"`
	Oracle      OracleConfig      `koanf:"oracle"`
	Database    DatabaseConfig    `koanf:"database"`
	Persistence PersistenceConfig `koanf:"persistence"`
	Recommend   RecommendConfig   `koanf:"recommend"`
	Batch       BatchConfig       `koanf:"batch"`
	Schedule    ScheduleConfig    `koanf:"schedule"`
	Events      EventsConfig      `koanf:"events"`
	Server      ServerConfig      `koanf:"server"`
	Security    SecurityConfig    `koanf:"security"`
	Logging     LoggingConfig     `koanf:"logging"`
}

// MetadataConfig configures the TMDB metadata service client and the
// process-wide metadata cache in front of it.
type MetadataConfig struct {
	BaseURL      string `koanf:"base_url" validate:"required"`
	ImageBaseURL string `koanf:"image_base_url" validate:"required"`
	APIKey       string `koanf:"api_key"`
	Language     string `koanf:"language" validate:"required"`

	// LookupTimeout bounds single-item detail lookups.
	LookupTimeout time.Duration `koanf:"lookup_timeout" validate:"gt=0"`

	// QueryTimeout bounds similarity and discovery queries.
	QueryTimeout time.Duration `koanf:"query_timeout" validate:"gt=0"`

	CacheSize         int           `koanf:"cache_size" validate:"min=1"`
	RetryAttempts     int           `koanf:"retry_attempts" validate:"min=1,max=10"`
	RetryDelay        time.Duration `koanf:"retry_delay" validate:"gte=0"`
	RequestsPerSecond float64       `koanf:"requests_per_second" validate:"gte=0"` // 0 disables pacing
	Burst             int           `koanf:"burst" validate:"min=1"`
}

// OracleConfig configures the LLM ranking oracle.
type OracleConfig struct {
	// Provider selects the API flavour: "openai" or "azure".
	Provider string `koanf:"provider" validate:"oneof=openai azure"`
	APIKey   string `koanf:"api_key"`

	// BaseURL is the API base for openai (optional) or the resource endpoint for azure.
	BaseURL string `koanf:"base_url"`

	// Model is the model name (openai) or deployment name (azure).
	Model      string        `koanf:"model" validate:"required"`
	APIVersion string        `koanf:"api_version"`
	Timeout    time.Duration `koanf:"timeout" validate:"gt=0"`

	// MaxRetries is the number of extra attempts after a transport failure.
	MaxRetries int `koanf:"max_retries" validate:"min=0,max=1"`
}

// DatabaseConfig holds DuckDB settings for the profile store.
type DatabaseConfig struct {
	Path         string `koanf:"path" validate:"required"`
	MaxMemory    string `koanf:"max_memory"`
	Threads      int    `koanf:"threads" validate:"min=0"` // 0 = runtime.NumCPU()
	SeedDemoData bool   `koanf:"seed_demo_data"`
}

// PersistenceConfig selects where generated results are written.
type PersistenceConfig struct {
	Backend    string `koanf:"backend" validate:"oneof=duckdb badger"`
	BadgerPath string `koanf:"badger_path"`
}

// RecommendConfig tunes candidate mining.
type RecommendConfig struct {
	LikedThreshold      int           `koanf:"liked_threshold" validate:"min=1,max=5"`
	CollaborativeCap    int           `koanf:"collaborative_cap" validate:"min=1"`
	ContentCap          int           `koanf:"content_cap" validate:"min=1"`
	TrendingCap         int           `koanf:"trending_cap" validate:"min=1"`
	TrendingMinVotes    int           `koanf:"trending_min_votes" validate:"min=0"`
	TrendingMinRating   float64       `koanf:"trending_min_rating" validate:"gte=0,lte=10"`
	DefaultGenres       []string      `koanf:"default_genres" validate:"min=1,dive,required"`
	StrategyTimeout     time.Duration `koanf:"strategy_timeout" validate:"gt=0"`
	ProfileRetries      int           `koanf:"profile_retries" validate:"min=1,max=10"`
	ProfileRetryBackoff time.Duration `koanf:"profile_retry_backoff" validate:"gte=0"`
}

// BatchConfig bounds the batch driver.
type BatchConfig struct {
	Concurrency   int     `koanf:"concurrency" validate:"min=1,max=64"`
	RatePerSecond float64 `koanf:"rate_per_second" validate:"gte=0"` // 0 disables pacing
	Burst         int     `koanf:"burst" validate:"min=1"`
}

// ScheduleConfig drives the periodic full batch.
type ScheduleConfig struct {
	Enabled bool `koanf:"enabled"`

	// Weekday is the day name the batch runs on ("sunday").
	Weekday string `koanf:"weekday" validate:"oneof=sunday monday tuesday wednesday thursday friday saturday"`
	Hour    int    `koanf:"hour" validate:"min=0,max=23"`
	Minute  int    `koanf:"minute" validate:"min=0,max=59"`

	// EvenWeeksOnly restricts runs to even aligned weeks of the year.
	EvenWeeksOnly bool   `koanf:"even_weeks_only"`
	Timezone      string `koanf:"timezone"`

	// QueueSize bounds pending per-user triggers.
	QueueSize int `koanf:"queue_size" validate:"min=1"`
}

// EventsConfig configures recommendation.generated publishing.
type EventsConfig struct {
	Enabled        bool   `koanf:"enabled"`
	Backend        string `koanf:"backend" validate:"oneof=gochannel nats"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Topic          string `koanf:"topic" validate:"required"`
	StreamName     string `koanf:"stream_name"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// SecurityConfig holds API authentication and throttling settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode" validate:"oneof=none jwt"`
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl" validate:"gt=0"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load reads configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// String returns a summary safe for logging (no secrets).
func (c *Config) String() string {
	return fmt.Sprintf("oracle=%s/%s persistence=%s events=%t/%s schedule=%t server=%s auth=%s",
		c.Oracle.Provider, c.Oracle.Model,
		c.Persistence.Backend,
		c.Events.Enabled, c.Events.Backend,
		c.Schedule.Enabled,
		c.Server.Addr(),
		c.Security.AuthMode,
	)
}
