// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
)

// Pipeline produces and stores recommendations for one user at a time. It
// is safe for concurrent use; the metadata cache behind its miner is the
// only state shared between runs.
type Pipeline struct {
	cfg      *Config
	profiles ProfileStore
	miner    *Miner
	oracle   RankingOracle
	results  ResultStore
	events   EventPublisher
	artwork  ArtworkResolver
	backend  string
	logger   zerolog.Logger
	now      func() time.Time
}

// PipelineDeps groups the collaborators of a Pipeline. Events and Artwork
// are optional.
type PipelineDeps struct {
	Profiles ProfileStore
	Miner    *Miner
	Oracle   RankingOracle
	Results  ResultStore
	Events   EventPublisher
	Artwork  ArtworkResolver

	// Backend names the result store in errors and metrics.
	Backend string
}

// NewPipeline creates a pipeline.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPipeline(cfg *Config, deps PipelineDeps, logger zerolog.Logger) *Pipeline {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	backend := deps.Backend
	if backend == "" {
		backend = "unknown"
	}
	return &Pipeline{
		cfg:      cfg,
		profiles: deps.Profiles,
		miner:    deps.Miner,
		oracle:   deps.Oracle,
		results:  deps.Results,
		events:   deps.Events,
		artwork:  deps.Artwork,
		backend:  backend,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Run generates, stores and announces recommendations for userID.
//
// Errors: ErrNotFound (wrapped) for an unknown user, *UpstreamError for
// profile store or oracle failures, *ValidationError for an empty pool or
// unusable oracle output, *PersistenceError when the result cannot be
// stored. Strategy failures and event publishing failures are logged only.
func (p *Pipeline) Run(ctx context.Context, userID string) (result *Result, err error) {
	start := time.Now()
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	ctx = logging.ContextWithUserID(ctx, userID)
	log := logging.CtxFrom(ctx, p.logger)

	defer func() {
		metrics.RecordPipelineRun(ErrorKind(err), time.Since(start))
		if err != nil {
			log.Error().Err(err).Str("kind", ErrorKind(err)).Msg("recommendation run failed")
		}
	}()

	log.Info().Msg("starting recommendation run")

	profile, err := retryWithBackoff(ctx, log, p.cfg.ProfileRetries, p.cfg.ProfileRetryBackoff,
		func() (*UserProfile, error) { return p.profiles.GetUser(ctx, userID) })
	if err != nil {
		return nil, fmt.Errorf("load profile %s: %w", userID, err)
	}

	corpus, cerr := retryWithBackoff(ctx, log, p.cfg.ProfileRetries, p.cfg.ProfileRetryBackoff,
		func() ([]UserProfile, error) { return p.profiles.ListProfiles(ctx) })
	if cerr != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Warn().Err(cerr).Msg("failed to load profile corpus, collaborative strategy disabled")
		corpus = nil
	}

	buckets := p.miner.Mine(ctx, profile, corpus)
	pool := MergeBuckets(buckets)
	metrics.PoolSize.Observe(float64(pool.Len()))

	byOrigin := pool.CountByOrigin()
	log.Debug().
		Int("pool", pool.Len()).
		Int(string(OriginCollaborative), byOrigin[OriginCollaborative]).
		Int(string(OriginContentBased), byOrigin[OriginContentBased]).
		Int(string(OriginTrending), byOrigin[OriginTrending]).
		Msg("candidate mining complete")

	if pool.Len() == 0 {
		return nil, &ValidationError{Reason: "no candidates"}
	}

	req := OracleRequest{
		UserID:     userID,
		Summary:    BuildSummary(profile, p.cfg.DefaultGenres),
		Candidates: pool.Minimized(),
	}
	resp, err := p.oracle.Rank(ctx, req)
	if err != nil {
		return nil, wrapOracleError(err)
	}

	result, report, err := Hydrate(resp.Raw, pool)
	if err != nil {
		return nil, err
	}
	if len(result.Sections) != ExpectedSections {
		log.Warn().
			Int("sections", len(result.Sections)).
			Int("expected", ExpectedSections).
			Int("dropped_items", report.ItemsDropped).
			Msg("oracle returned an unexpected number of sections")
	}

	if p.artwork != nil {
		for i := range result.Sections {
			items := result.Sections[i].Items
			for j := range items {
				items[j].ArtworkURL = p.artwork.PosterURL(items[j].ArtworkRef)
			}
		}
	}

	result.UserID = userID
	result.GeneratedAt = p.now().UTC()

	werr := p.results.Upsert(ctx, result)
	metrics.RecordPersistenceWrite(p.backend, werr)
	if werr != nil {
		return nil, &PersistenceError{UserID: userID, Backend: p.backend, Err: werr}
	}

	p.publish(ctx, log, result)

	log.Info().
		Int("pool", pool.Len()).
		Int("sections", len(result.Sections)).
		Int("items", result.ItemCount()).
		Dur("duration", time.Since(start)).
		Msg("recommendation run complete")
	return result, nil
}

func (p *Pipeline) publish(ctx context.Context, log zerolog.Logger, result *Result) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishGenerated(ctx, result); err != nil {
		metrics.EventsPublished.WithLabelValues("failure").Inc()
		log.Warn().Err(err).Msg("failed to publish recommendation event")
		return
	}
	metrics.EventsPublished.WithLabelValues("success").Inc()
}

// wrapOracleError keeps typed errors and context errors as they are and
// classifies anything else as an upstream failure.
func wrapOracleError(err error) error {
	var (
		upstream   *UpstreamError
		validation *ValidationError
	)
	if errors.As(err, &upstream) || errors.As(err, &validation) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &UpstreamError{Service: "oracle", Op: "rank", Err: err}
}

// BuildSummary digests a profile for the oracle: the effective genres in
// title case and the number of ratings.
func BuildSummary(profile *UserProfile, defaults []string) UserSummary {
	genres := EffectiveGenres(profile.FavoriteGenres, defaults)
	for i, g := range genres {
		genres[i] = DisplayGenre(g)
	}
	return UserSummary{
		FavoriteGenres: genres,
		HistoryCount:   len(profile.Ratings),
	}
}
