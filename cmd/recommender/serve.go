// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/juliannp253/Movies-Recommender/internal/api"
	"github.com/juliannp253/Movies-Recommender/internal/auth"
	"github.com/juliannp253/Movies-Recommender/internal/config"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/supervisor"
	"github.com/juliannp253/Movies-Recommender/internal/supervisor/services"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run scheduled batches",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(opts.cfg)
		},
	}
}

func scheduleConfig(sc *config.ScheduleConfig) (services.ScheduleConfig, error) {
	loc, err := sc.Location()
	if err != nil {
		return services.ScheduleConfig{}, fmt.Errorf("schedule timezone %q: %w", sc.Timezone, err)
	}
	return services.ScheduleConfig{
		Weekday:       sc.ParsedWeekday(),
		Hour:          sc.Hour,
		Minute:        sc.Minute,
		EvenWeeksOnly: sc.EvenWeeksOnly,
		Location:      loc,
	}, nil
}

func newAuthMiddleware(sec *config.SecurityConfig) (*auth.Middleware, error) {
	var mgr *auth.JWTManager
	if sec.AuthMode == auth.ModeJWT {
		var err error
		if mgr, err = auth.NewJWTManager(sec); err != nil {
			return nil, fmt.Errorf("create JWT manager: %w", err)
		}
	}
	return auth.NewMiddleware(mgr, sec.AuthMode, logging.WithComponent("auth"))
}

func serve(cfg *config.Config) error {
	logging.Info().Str("config", cfg.String()).Msg("Starting recommender")

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// === SUPERVISOR TREE ===

	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.ShutdownTimeout
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// Data layer services
	if a.badger != nil {
		tree.AddDataService(services.NewGCService(a.badger, services.GCServiceConfig{}, logging.WithComponent("badger-gc")))
	}

	// Messaging layer services
	if a.natsServer != nil {
		tree.AddMessagingService(services.NewEmbeddedNATSService(a.natsServer, cfg.Server.ShutdownTimeout))
	}

	// Pipeline layer services
	triggers := services.NewTriggerService(a.pipeline, a.batch, cfg.Schedule.QueueSize, logging.WithComponent("triggers"))
	tree.AddPipelineService(triggers)

	if cfg.Schedule.Enabled {
		schedCfg, serr := scheduleConfig(&cfg.Schedule)
		if serr != nil {
			return serr
		}
		tree.AddPipelineService(services.NewScheduleService(a.batch, schedCfg, logging.WithComponent("scheduler")))
		logging.Info().
			Str("weekday", schedCfg.Weekday.String()).
			Int("hour", schedCfg.Hour).
			Int("minute", schedCfg.Minute).
			Bool("even_weeks_only", schedCfg.EvenWeeksOnly).
			Msg("Batch scheduler added to supervisor tree")
	}

	// API layer services
	authMiddleware, err := newAuthMiddleware(&cfg.Security)
	if err != nil {
		return err
	}
	deps := api.HandlerDeps{
		Runner:   a.pipeline,
		Results:  a.results,
		Triggers: triggers,
		Database: a.db,
		Cache:    a.cache,
		Version:  version,

		WriteTimeout: cfg.Server.WriteTimeout,
	}
	if a.publisher != nil {
		deps.Events = a.publisher
	}
	handler := api.NewHandler(deps, logging.Logger())
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddleware(api.ChiMiddlewareConfigFromSecurity(&cfg.Security)))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Str("auth_mode", cfg.Security.AuthMode).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel carries exactly one value, sent when the tree stops.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
	return nil
}
