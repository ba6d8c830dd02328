// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// ValueLogCollector reclaims space in a key-value store.
// *kvstore.ResultStore implements it.
type ValueLogCollector interface {
	RunValueLogGC(discardRatio float64) int
}

// GCServiceConfig holds configuration for the value log GC loop.
type GCServiceConfig struct {
	// Interval between GC passes. Default: 10m
	Interval time.Duration

	// DiscardRatio is the fraction of stale data that makes a file eligible
	// for rewrite. Default: 0.5
	DiscardRatio float64
}

// GCService periodically runs Badger value log garbage collection for the
// result store.
type GCService struct {
	store  ValueLogCollector
	config GCServiceConfig
	logger zerolog.Logger
	name   string
}

// NewGCService creates the GC loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGCService(store ValueLogCollector, cfg GCServiceConfig, logger zerolog.Logger) *GCService {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Minute
	}
	if cfg.DiscardRatio <= 0 || cfg.DiscardRatio >= 1 {
		cfg.DiscardRatio = 0.5
	}
	return &GCService{
		store:  store,
		config: cfg,
		logger: logger.With().Str("service", "badger-gc").Logger(),
		name:   "badger-gc",
	}
}

// Serve implements suture.Service.
func (s *GCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if n := s.store.RunValueLogGC(s.config.DiscardRatio); n > 0 {
				s.logger.Info().Int("files", n).Dur("duration", time.Since(start)).Msg("value log GC rewrote files")
			} else {
				s.logger.Debug().Msg("value log GC found nothing to rewrite")
			}
		}
	}
}

// String returns the service name for logging.
func (s *GCService) String() string {
	return s.name
}
