// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/config"
	"github.com/juliannp253/Movies-Recommender/internal/database"
	"github.com/juliannp253/Movies-Recommender/internal/events"
	"github.com/juliannp253/Movies-Recommender/internal/kvstore"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/oracle"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
	"github.com/juliannp253/Movies-Recommender/internal/tmdb"
)

// app holds the wired pipeline and the resources backing it.
type app struct {
	cfg *config.Config

	db       *database.DB
	badger   *kvstore.ResultStore // nil unless persistence.backend=badger
	results  recommend.ResultStore
	backend  string
	metadata *tmdb.Client
	cache    *recommend.MetadataCache
	oracle   *oracle.Oracle

	publisher  *events.Publisher      // nil when events are disabled
	natsServer *events.EmbeddedServer // nil unless events.embedded_server

	pipeline *recommend.Pipeline
	batch    *recommend.BatchRunner

	closers []namedCloser
	logger  zerolog.Logger
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// recommendConfig maps the recommend section onto the miner/pipeline config.
func recommendConfig(rc *config.RecommendConfig) *recommend.Config {
	cfg := recommend.DefaultConfig()
	cfg.LikedThreshold = rc.LikedThreshold
	cfg.CollaborativeCap = rc.CollaborativeCap
	cfg.ContentCap = rc.ContentCap
	cfg.TrendingCap = rc.TrendingCap
	cfg.TrendingMinVotes = rc.TrendingMinVotes
	cfg.TrendingMinRating = rc.TrendingMinRating
	if len(rc.DefaultGenres) > 0 {
		cfg.DefaultGenres = append([]string(nil), rc.DefaultGenres...)
	}
	cfg.StrategyTimeout = rc.StrategyTimeout
	cfg.ProfileRetries = rc.ProfileRetries
	cfg.ProfileRetryBackoff = rc.ProfileRetryBackoff
	return cfg
}

func batchConfig(bc *config.BatchConfig) recommend.BatchConfig {
	return recommend.BatchConfig{
		Concurrency:   bc.Concurrency,
		RatePerSecond: bc.RatePerSecond,
		Burst:         bc.Burst,
	}
}

func natsConfig(ec *config.EventsConfig) events.NATSConfig {
	cfg := events.DefaultNATSConfig()
	if ec.URL != "" {
		cfg.URL = ec.URL
	}
	cfg.Topic = ec.Topic
	if ec.StreamName != "" {
		cfg.StreamName = ec.StreamName
	}
	return cfg
}

// newApp opens storage, builds the clients and assembles the pipeline. On
// error every resource opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{cfg: cfg, logger: logging.WithComponent("app")}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	// === DATA LAYER ===

	a.db, err = database.New(&cfg.Database, logging.WithComponent("database"))
	if err != nil {
		return a, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"database", a.db})

	if cfg.Database.SeedDemoData {
		if err = a.db.SeedDemoData(ctx); err != nil {
			return a, fmt.Errorf("seed demo data: %w", err)
		}
	}

	switch cfg.Persistence.Backend {
	case kvstore.BackendName:
		a.badger, err = kvstore.Open(cfg.Persistence.BadgerPath, logging.WithComponent("kvstore"))
		if err != nil {
			return a, fmt.Errorf("open result store: %w", err)
		}
		a.closers = append(a.closers, namedCloser{"kvstore", a.badger})
		a.results = a.badger
		a.backend = kvstore.BackendName
	default:
		a.results = a.db
		a.backend = database.BackendName
	}

	// === UPSTREAM CLIENTS ===

	a.metadata = tmdb.NewClient(cfg.Metadata, logging.WithComponent("tmdb"))
	a.cache = recommend.NewMetadataCache(a.metadata, cfg.Metadata.CacheSize, logging.WithComponent("metadata-cache"))

	a.oracle, err = oracle.New(cfg.Oracle, logging.WithComponent("oracle"))
	if err != nil {
		return a, fmt.Errorf("create ranking oracle: %w", err)
	}

	// === EVENTS ===

	if cfg.Events.Enabled {
		if err = a.initEvents(ctx); err != nil {
			return a, err
		}
	}

	// === PIPELINE ===

	rcfg := recommendConfig(&cfg.Recommend)
	if err = rcfg.Validate(); err != nil {
		return a, fmt.Errorf("recommend config: %w", err)
	}

	deps := recommend.PipelineDeps{
		Profiles: a.db,
		Miner:    recommend.NewMiner(rcfg, a.cache, a.metadata, logging.WithComponent("miner")),
		Oracle:   a.oracle,
		Results:  a.results,
		Artwork:  a.metadata,
		Backend:  a.backend,
	}
	if a.publisher != nil {
		deps.Events = a.publisher
	}
	a.pipeline = recommend.NewPipeline(rcfg, deps, logging.Logger())
	a.batch = recommend.NewBatchRunner(a.pipeline, a.db, batchConfig(&cfg.Batch), logging.WithComponent("batch"))

	a.logger.Info().
		Str("persistence", a.backend).
		Bool("events", a.publisher != nil).
		Str("oracle", cfg.Oracle.Provider).
		Msg("Pipeline assembled")
	return a, nil
}

func (a *app) initEvents(ctx context.Context) error {
	ec := &a.cfg.Events
	logger := logging.WithComponent("events")

	if ec.Backend != "nats" {
		pub, _ := events.NewGoChannel(ec.Topic, logger)
		a.publisher = pub
		a.closers = append(a.closers, namedCloser{"events", pub})
		return nil
	}

	ncfg := natsConfig(ec)
	if ec.EmbeddedServer {
		srv, err := events.NewEmbeddedServer(events.ServerConfig{
			Host:     "127.0.0.1",
			Port:     -1,
			StoreDir: ec.StoreDir,
		})
		if err != nil {
			return fmt.Errorf("start embedded NATS server: %w", err)
		}
		a.natsServer = srv
		ncfg.URL = srv.ClientURL()
		logger.Info().Str("url", ncfg.URL).Msg("Embedded NATS server started")
	}

	pub, err := events.NewNATSPublisher(ctx, ncfg, logger)
	if err != nil {
		if a.natsServer != nil {
			_ = a.natsServer.Shutdown(context.Background())
			a.natsServer = nil
		}
		return fmt.Errorf("connect NATS publisher: %w", err)
	}
	a.publisher = pub
	a.closers = append(a.closers, namedCloser{"events", pub})
	return nil
}

// Close releases resources in reverse order of acquisition. The embedded
// NATS server is left to its supervisor service when serving; commands that
// do not serve shut it down here.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.closer.Close(); err != nil {
			a.logger.Error().Err(err).Str("resource", c.name).Msg("Failed to close resource")
		}
	}
	a.closers = nil

	if a.natsServer != nil && a.natsServer.IsRunning() {
		if err := a.natsServer.Shutdown(context.Background()); err != nil {
			a.logger.Error().Err(err).Msg("Failed to shut down embedded NATS server")
		}
	}
}
