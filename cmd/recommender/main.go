// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Command recommender generates personalized movie recommendations.
//
//	recommender run --user-id alice      one user, result printed as JSON
//	recommender batch [user-id...]       many users, summary printed
//	recommender serve                    HTTP API, trigger queue and scheduler
//	recommender token --subject alice    issue an API token
//
// # Startup
//
//  1. Configuration: defaults, config.yaml and environment (koanf)
//  2. Profile store: DuckDB, optionally seeded with demo users
//  3. Result store: DuckDB or Badger
//  4. Metadata client (TMDB) behind an LRU cache, ranking oracle (OpenAI or Azure)
//  5. Events (optional): in-process GoChannel or NATS JetStream, with an optional embedded server
//  6. serve only: supervisor tree with the trigger worker, batch scheduler,
//     Badger GC, embedded NATS and the HTTP server
//
// SIGINT and SIGTERM cancel in-flight work and shut services down in reverse
// layer order.
package main

import (
	"os"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Error().Err(err).Msg("Command failed")
		os.Exit(exitCode(err))
	}
}
