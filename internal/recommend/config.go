// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"fmt"
	"time"
)

// Config tunes candidate mining and the per-user pipeline.
type Config struct {
	// LikedThreshold is the minimum score for an item to count as liked.
	// Default: 4.
	LikedThreshold int `json:"liked_threshold"`

	// CollaborativeCap is the total number of collaborative candidates
	// emitted across all neighbors combined. Default: 15.
	CollaborativeCap int `json:"collaborative_cap"`

	// ContentCap bounds the content-based bucket. Default: 10.
	ContentCap int `json:"content_cap"`

	// TrendingCap bounds each trending bucket. Default: 10.
	TrendingCap int `json:"trending_cap"`

	// TrendingMinVotes and TrendingMinRating filter discovery results.
	// Defaults: 300 and 6.0.
	TrendingMinVotes  int     `json:"trending_min_votes"`
	TrendingMinRating float64 `json:"trending_min_rating"`

	// DefaultGenres is used when a profile declares no favorite genres.
	// Default: ACTION, COMEDY.
	DefaultGenres []string `json:"default_genres"`

	// StrategyTimeout bounds each mining strategy.
	StrategyTimeout time.Duration `json:"strategy_timeout"`

	// LookupConcurrency bounds parallel metadata lookups within the
	// collaborative strategy. Default: 8.
	LookupConcurrency int `json:"lookup_concurrency"`

	// ProfileRetries is the number of attempts for profile store reads.
	ProfileRetries      int           `json:"profile_retries"`
	ProfileRetryBackoff time.Duration `json:"profile_retry_backoff"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() *Config {
	return &Config{
		LikedThreshold:      4,
		CollaborativeCap:    15,
		ContentCap:          10,
		TrendingCap:         10,
		TrendingMinVotes:    300,
		TrendingMinRating:   6.0,
		DefaultGenres:       []string{"ACTION", "COMEDY"},
		StrategyTimeout:     30 * time.Second,
		LookupConcurrency:   8,
		ProfileRetries:      3,
		ProfileRetryBackoff: 200 * time.Millisecond,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.LikedThreshold < 1 || c.LikedThreshold > 5 {
		return fmt.Errorf("liked_threshold must be between 1 and 5, got %d", c.LikedThreshold)
	}
	if c.CollaborativeCap < 1 || c.ContentCap < 1 || c.TrendingCap < 1 {
		return fmt.Errorf("bucket caps must be positive")
	}
	if c.TrendingMinVotes < 0 {
		return fmt.Errorf("trending_min_votes must be non-negative")
	}
	if c.TrendingMinRating < 0 || c.TrendingMinRating > 10 {
		return fmt.Errorf("trending_min_rating must be between 0 and 10")
	}
	if len(c.DefaultGenres) == 0 {
		return fmt.Errorf("default_genres must not be empty")
	}
	if c.StrategyTimeout <= 0 {
		return fmt.Errorf("strategy_timeout must be positive")
	}
	if c.LookupConcurrency < 1 {
		return fmt.Errorf("lookup_concurrency must be at least 1")
	}
	if c.ProfileRetries < 1 {
		return fmt.Errorf("profile_retries must be at least 1")
	}
	return nil
}
