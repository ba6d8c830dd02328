// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrServerNotRunning is returned by EmbeddedNATSService when the server
// stopped outside of its control.
var ErrServerNotRunning = errors.New("embedded NATS server is not running")

// EmbeddedServer matches the lifecycle of *events.EmbeddedServer, which is
// already accepting connections when constructed.
type EmbeddedServer interface {
	Shutdown(ctx context.Context) error
	IsRunning() bool
}

// EmbeddedNATSService ties an embedded NATS server to the supervisor:
//  1. Checks the server is running
//  2. Waits for context cancellation
//  3. Shuts the server down with the configured timeout
type EmbeddedNATSService struct {
	server          EmbeddedServer
	shutdownTimeout time.Duration
	name            string
}

// NewEmbeddedNATSService creates the wrapper. A non-positive
// shutdownTimeout defaults to 10 seconds.
func NewEmbeddedNATSService(server EmbeddedServer, shutdownTimeout time.Duration) *EmbeddedNATSService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &EmbeddedNATSService{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		name:            "embedded-nats",
	}
}

// Serve implements suture.Service.
func (s *EmbeddedNATSService) Serve(ctx context.Context) error {
	if !s.server.IsRunning() {
		return ErrServerNotRunning
	}

	<-ctx.Done()

	// ctx is already canceled here
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("embedded NATS shutdown failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *EmbeddedNATSService) String() string {
	return s.name
}
