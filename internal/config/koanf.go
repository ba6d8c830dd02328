// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists config file locations in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/movies-recommender/config.yaml",
	"/etc/movies-recommender/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Metadata: MetadataConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			ImageBaseURL:      "https://image.tmdb.org/t/p/w500",
			APIKey:            "",
			Language:          "en-US",
			LookupTimeout:     3 * time.Second,
			QueryTimeout:      5 * time.Second,
			CacheSize:         1000,
			RetryAttempts:     3,
			RetryDelay:        500 * time.Millisecond,
			RequestsPerSecond: 20,
			Burst:             10,
		},
		Oracle: OracleConfig{
			Provider:   "openai",
			Model:      "gpt-4o-mini",
			APIVersion: "2025-01-01-preview",
			Timeout:    90 * time.Second,
			MaxRetries: 1,
		},
		Database: DatabaseConfig{
			Path:         "/data/recommender.duckdb",
			MaxMemory:    "1GB",
			Threads:      0,
			SeedDemoData: false,
		},
		Persistence: PersistenceConfig{
			Backend:    "duckdb",
			BadgerPath: "/data/recommendations",
		},
		Recommend: RecommendConfig{
			LikedThreshold:      4,
			CollaborativeCap:    15,
			ContentCap:          10,
			TrendingCap:         10,
			TrendingMinVotes:    300,
			TrendingMinRating:   6.0,
			DefaultGenres:       []string{"ACTION", "COMEDY"},
			StrategyTimeout:     30 * time.Second,
			ProfileRetries:      3,
			ProfileRetryBackoff: 200 * time.Millisecond,
		},
		Batch: BatchConfig{
			Concurrency:   4,
			RatePerSecond: 2,
			Burst:         1,
		},
		Schedule: ScheduleConfig{
			Enabled:       true,
			Weekday:       "sunday",
			Hour:          1,
			Minute:        0,
			EvenWeeksOnly: true,
			Timezone:      "Local",
			QueueSize:     100,
		},
		Events: EventsConfig{
			Enabled:        true,
			Backend:        "gochannel",
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			StoreDir:       "/data/nats",
			Topic:          "recommendation.generated",
			StreamName:     "RECOMMENDATIONS",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			AuthMode:        "none",
			TokenTTL:        24 * time.Hour,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   60,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers: struct defaults, the
// optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// TMDB_API_KEY -> metadata.api_key, BATCH_CONCURRENCY -> batch.concurrency
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"recommend.default_genres",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Provider-style names (TMDB_API_KEY, AZURE_OPENAI_*) are
// accepted alongside the sectioned names.
var envMappings = map[string]string{
	// Metadata service
	"tmdb_base_url":            "metadata.base_url",
	"tmdb_image_base_url":      "metadata.image_base_url",
	"tmdb_api_key":             "metadata.api_key",
	"tmdb_language":            "metadata.language",
	"tmdb_lookup_timeout":      "metadata.lookup_timeout",
	"tmdb_query_timeout":       "metadata.query_timeout",
	"metadata_cache_size":      "metadata.cache_size",
	"tmdb_retry_attempts":      "metadata.retry_attempts",
	"tmdb_retry_delay":         "metadata.retry_delay",
	"tmdb_requests_per_second": "metadata.requests_per_second",
	"tmdb_burst":               "metadata.burst",

	// Ranking oracle
	"oracle_provider":          "oracle.provider",
	"oracle_api_key":           "oracle.api_key",
	"oracle_base_url":          "oracle.base_url",
	"oracle_model":             "oracle.model",
	"oracle_api_version":       "oracle.api_version",
	"oracle_timeout":           "oracle.timeout",
	"oracle_max_retries":       "oracle.max_retries",
	"openai_api_key":           "oracle.api_key",
	"azure_openai_endpoint":    "oracle.base_url",
	"azure_openai_api_key":     "oracle.api_key",
	"azure_deployment_name":    "oracle.model",
	"azure_openai_api_version": "oracle.api_version",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_demo_data":    "database.seed_demo_data",

	// Persistence
	"persistence_backend": "persistence.backend",
	"badger_path":         "persistence.badger_path",

	// Mining
	"recommend_liked_threshold":       "recommend.liked_threshold",
	"recommend_collaborative_cap":     "recommend.collaborative_cap",
	"recommend_content_cap":           "recommend.content_cap",
	"recommend_trending_cap":          "recommend.trending_cap",
	"recommend_trending_min_votes":    "recommend.trending_min_votes",
	"recommend_trending_min_rating":   "recommend.trending_min_rating",
	"recommend_default_genres":        "recommend.default_genres",
	"recommend_strategy_timeout":      "recommend.strategy_timeout",
	"recommend_profile_retries":       "recommend.profile_retries",
	"recommend_profile_retry_backoff": "recommend.profile_retry_backoff",

	// Batch
	"batch_concurrency":     "batch.concurrency",
	"batch_rate_per_second": "batch.rate_per_second",
	"batch_burst":           "batch.burst",

	// Schedule
	"schedule_enabled":         "schedule.enabled",
	"schedule_weekday":         "schedule.weekday",
	"schedule_hour":            "schedule.hour",
	"schedule_minute":          "schedule.minute",
	"schedule_even_weeks_only": "schedule.even_weeks_only",
	"schedule_timezone":        "schedule.timezone",
	"trigger_queue_size":       "schedule.queue_size",

	// Events
	"events_enabled":     "events.enabled",
	"events_backend":     "events.backend",
	"nats_url":           "events.url",
	"nats_embedded":      "events.embedded_server",
	"nats_store_dir":     "events.store_dir",
	"events_topic":       "events.topic",
	"events_stream_name": "events.stream_name",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable to its koanf path. Unknown
// variables map to "" and are skipped by the env provider.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
