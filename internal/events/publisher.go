// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/breaker"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// Publisher wraps a Watermill publisher with circuit breaker protection and
// implements recommend.EventPublisher.
type Publisher struct {
	publisher message.Publisher
	topic     string
	breaker   *breaker.Breaker[struct{}]
	logger    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewPublisher wraps pub. An empty topic uses DefaultTopic.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewPublisher(pub message.Publisher, topic string, logger zerolog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		publisher: pub,
		topic:     topic,
		breaker:   breaker.New[struct{}](breaker.DefaultConfig("events-publish"), logger),
		logger:    logger.With().Str("component", "events").Str("topic", topic).Logger(),
	}
}

// NewGoChannel creates an in-process pub/sub. The returned GoChannel is the
// subscriber side; Close the Publisher to shut both down.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewGoChannel(topic string, logger zerolog.Logger) (*Publisher, *gochannel.GoChannel) {
	gc := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, WatermillLogger(logger))
	return NewPublisher(gc, topic, logger), gc
}

// WatermillLogger adapts a zerolog logger to watermill.LoggerAdapter.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func WatermillLogger(logger zerolog.Logger) watermill.LoggerAdapter {
	return watermill.NewSlogLogger(slog.New(logging.NewSlogHandlerWithLogger(logger.With().Str("component", "watermill").Logger())))
}

// PublishGenerated announces result. The message UUID doubles as the NATS
// message id so JetStream can drop duplicates.
func (p *Publisher) PublishGenerated(ctx context.Context, result *recommend.Result) error {
	event := NewGeneratedEvent(result, logging.CorrelationIDFromContext(ctx))
	data, err := SerializeEvent(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("user_id", event.UserID)
	if event.CorrelationID != "" {
		msg.Metadata.Set("correlation_id", event.CorrelationID)
	}
	msg.SetContext(ctx)

	return p.Publish(msg)
}

// Publish sends msg on the configured topic.
func (p *Publisher) Publish(msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher is closed")
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	_, err := p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.publisher.Publish(p.topic, msg)
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", msg.UUID, err)
	}
	p.logger.Debug().Str("message_id", msg.UUID).Msg("event published")
	return nil
}

// Topic returns the topic messages are published on.
func (p *Publisher) Topic() string { return p.topic }

// BreakerState reports the publish circuit breaker state.
func (p *Publisher) BreakerState() string { return p.breaker.State() }

// Close shuts down the underlying publisher. Safe to call more than once.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
