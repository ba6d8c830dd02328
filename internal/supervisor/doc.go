// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

/*
Package supervisor runs the long-lived parts of the recommender under a
suture v4 supervision tree.

	movies-recommender (root)
	├── data-layer        badger-gc
	├── messaging-layer   embedded-nats
	├── pipeline-layer    batch-scheduler, trigger-worker
	└── api-layer         http-server

Supervisor events are logged through sutureslog on a slog logger bridged
to zerolog (logging.NewSlogLogger). Services that fail are restarted with
exponential backoff; a layer that keeps failing enters backoff on its own
without stopping its siblings.

The service wrappers live in the services subpackage.
*/
package supervisor
