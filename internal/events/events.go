// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package events publishes recommendation.generated notifications through
// Watermill. Two transports are supported: an in-process GoChannel for
// single-binary deployments and tests, and NATS JetStream (optionally backed
// by an embedded nats-server).
package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// DefaultTopic is the topic generated results are announced on.
const DefaultTopic = "recommendation.generated"

// EventType identifies the payload schema.
const EventType = "recommendation.generated"

// GeneratedEvent announces that a fresh result was stored for a user. It
// carries counts, not the sections; consumers read the result back from the
// store.
type GeneratedEvent struct {
	EventID           string    `json:"event_id"`
	Type              string    `json:"type"`
	UserID            string    `json:"user_id"`
	CorrelationID     string    `json:"correlation_id,omitempty"`
	Status            string    `json:"status"`
	SectionCount      int       `json:"section_count"`
	ItemCount         int       `json:"item_count"`
	MetaJustification string    `json:"meta_justification,omitempty"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// NewGeneratedEvent builds the event for result.
func NewGeneratedEvent(result *recommend.Result, correlationID string) *GeneratedEvent {
	return &GeneratedEvent{
		EventID:           uuid.NewString(),
		Type:              EventType,
		UserID:            result.UserID,
		CorrelationID:     correlationID,
		Status:            result.Status,
		SectionCount:      len(result.Sections),
		ItemCount:         result.ItemCount(),
		MetaJustification: result.MetaJustification,
		GeneratedAt:       result.GeneratedAt,
	}
}

// Validate checks the fields consumers rely on.
func (e *GeneratedEvent) Validate() error {
	if e.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if e.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if e.GeneratedAt.IsZero() {
		return fmt.Errorf("generated_at is required")
	}
	return nil
}

// SerializeEvent encodes e as JSON.
func SerializeEvent(e *GeneratedEvent) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return json.Marshal(e)
}

// DeserializeEvent decodes and validates a payload.
func DeserializeEvent(data []byte) (*GeneratedEvent, error) {
	var e GeneratedEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	return &e, nil
}
