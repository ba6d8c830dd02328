// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

/*
Package services provides the suture.Service implementations the
recommender runs under its supervision tree.

Each service implements

	type Service interface {
	    Serve(ctx context.Context) error
	}

returns ctx.Err() on shutdown, and names itself through fmt.Stringer.

# Services

TriggerService (trigger-worker):
  - Bounded queue of per-user and batch triggers from the HTTP API
  - A trigger for a user already waiting in the queue is coalesced
  - A full queue rejects with ErrQueueFull

ScheduleService (batch-scheduler):
  - Runs the full batch weekly, Sunday 01:00 by default
  - Optionally only on even aligned weeks, (dayOfYear-1)/7+1

HTTPServerService (http-server):
  - Wraps *http.Server with graceful shutdown

EmbeddedNATSService (embedded-nats):
  - Shuts down the in-process NATS server with the tree

GCService (badger-gc):
  - Periodic value log GC for the Badger result store

# Usage

	tree.AddPipelineService(services.NewTriggerService(pipeline, batch, 100, logger))
	tree.AddPipelineService(services.NewScheduleService(batch, services.DefaultScheduleConfig(), logger))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, 10*time.Second, logger))
*/
package services
