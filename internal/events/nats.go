// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

// NATSConfig configures the JetStream transport.
type NATSConfig struct {
	URL        string
	Topic      string
	StreamName string

	MaxReconnects int
	ReconnectWait time.Duration

	// MaxAge bounds how long events stay in the stream.
	MaxAge time.Duration

	// DuplicateWindow is the JetStream message-id deduplication window.
	DuplicateWindow time.Duration
}

// DefaultNATSConfig returns settings for a local single-node server.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:             natsgo.DefaultURL,
		Topic:           DefaultTopic,
		StreamName:      "RECOMMENDATIONS",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
	}
}

// StreamSubjects returns the subjects the stream must capture for topic:
// every sibling of its first token, so "recommendation.generated" yields
// "recommendation.>".
func StreamSubjects(topic string) []string {
	if i := strings.IndexByte(topic, '.'); i > 0 {
		return []string{topic[:i] + ".>"}
	}
	return []string{topic}
}

// JetStreamContext is the subset of jetstream.JetStream used by EnsureStream.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamConfig builds the JetStream stream definition for cfg.
func StreamConfig(cfg NATSConfig) jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       cfg.StreamName,
		Subjects:   StreamSubjects(cfg.Topic),
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     cfg.MaxAge,
		Duplicates: cfg.DuplicateWindow,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream or updates it to match cfg. It is
// idempotent.
func EnsureStream(ctx context.Context, js JetStreamContext, cfg NATSConfig) error {
	streamCfg := StreamConfig(cfg)

	_, err := js.Stream(ctx, cfg.StreamName)
	if err == nil {
		if _, err := js.UpdateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("update stream %s: %w", cfg.StreamName, err)
		}
		return nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := js.CreateStream(ctx, streamCfg); err != nil {
			return fmt.Errorf("create stream %s: %w", cfg.StreamName, err)
		}
		return nil
	}

	return fmt.Errorf("check stream %s: %w", cfg.StreamName, err)
}

// NewNATSPublisher provisions the stream and returns a JetStream-backed
// publisher.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewNATSPublisher(ctx context.Context, cfg NATSConfig, logger zerolog.Logger) (*Publisher, error) {
	log := logger.With().Str("component", "events").Str("url", cfg.URL).Logger()

	natsOpts := []natsgo.Option{
		natsgo.Name("movies-recommender"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			log.Info().Str("connected_url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := natsgo.Connect(cfg.URL, natsOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	if err := EnsureStream(ctx, js, cfg); err != nil {
		return nil, err
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, WatermillLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	log.Info().Str("stream", cfg.StreamName).Str("topic", cfg.Topic).Msg("NATS event publisher ready")
	return NewPublisher(pub, cfg.Topic, logger), nil
}
