// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
)

// UserRunner runs the pipeline for one user. *Pipeline implements it.
type UserRunner interface {
	Run(ctx context.Context, userID string) (*Result, error)
}

// BatchConfig bounds a batch run.
type BatchConfig struct {
	// Concurrency is the number of users processed at once.
	Concurrency int

	// RatePerSecond paces user starts; 0 disables pacing.
	RatePerSecond float64
	Burst         int
}

// DefaultBatchConfig returns conservative batch settings.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{Concurrency: 4, RatePerSecond: 2, Burst: 1}
}

// BatchSummary reports the outcome of a batch run.
type BatchSummary struct {
	Trigger   string           `json:"trigger"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Failures  map[string]error `json:"-"`
	Duration  time.Duration    `json:"duration"`
}

// FailureMessages returns the failure reasons keyed by user id.
func (s *BatchSummary) FailureMessages() map[string]string {
	out := make(map[string]string, len(s.Failures))
	for id, err := range s.Failures {
		out[id] = err.Error()
	}
	return out
}

// BatchRunner runs the pipeline over many users. One user's failure never
// stops the batch.
type BatchRunner struct {
	runner   UserRunner
	profiles ProfileStore
	cfg      BatchConfig
	logger   zerolog.Logger
}

// NewBatchRunner creates a batch runner.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBatchRunner(runner UserRunner, profiles ProfileStore, cfg BatchConfig, logger zerolog.Logger) *BatchRunner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	return &BatchRunner{
		runner:   runner,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger.With().Str("component", "batch").Logger(),
	}
}

// RunAll processes every known user in corpus order.
func (b *BatchRunner) RunAll(ctx context.Context, trigger string) (*BatchSummary, error) {
	ids, err := b.profiles.ListUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return b.RunUsers(ctx, trigger, ids), nil
}

// RunUsers processes ids with bounded concurrency. Users not started before
// ctx is cancelled are counted as failed with the context error.
func (b *BatchRunner) RunUsers(ctx context.Context, trigger string, ids []string) *BatchSummary {
	start := time.Now()
	ctx = logging.ContextWithNewCorrelationID(ctx)
	log := logging.CtxFrom(ctx, b.logger)

	summary := &BatchSummary{
		Trigger:  trigger,
		Total:    len(ids),
		Failures: make(map[string]error),
	}
	log.Info().Int("users", len(ids)).Str("trigger", trigger).Msg("starting batch")

	var limiter *rate.Limiter
	if b.cfg.RatePerSecond > 0 && len(ids) > 1 {
		limiter = rate.NewLimiter(rate.Limit(b.cfg.RatePerSecond), b.cfg.Burst)
	}

	var (
		mu   sync.Mutex
		done int
	)
	record := func(id string, err error) {
		mu.Lock()
		defer mu.Unlock()
		done++
		if err != nil {
			summary.Failed++
			summary.Failures[id] = err
		} else {
			summary.Succeeded++
		}
		log.Info().Str("user_id", id).Bool("ok", err == nil).Msgf("processed %d of %d", done, len(ids))
	}

	var g errgroup.Group
	g.SetLimit(b.cfg.Concurrency)
	for _, id := range ids {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				record(id, err)
				continue
			}
		} else if err := ctx.Err(); err != nil {
			record(id, err)
			continue
		}

		g.Go(func() error {
			// Each user gets its own correlation id.
			uctx := logging.ContextWithNewCorrelationID(ctx)
			_, err := b.runner.Run(uctx, id)
			record(id, err)
			return nil
		})
	}
	_ = g.Wait()

	summary.Duration = time.Since(start)
	metrics.RecordBatch(trigger, summary.Succeeded, summary.Failed, summary.Duration)
	log.Info().
		Int("total", summary.Total).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("batch complete")
	return summary
}
