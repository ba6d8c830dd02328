// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package events

import (
	"strings"
	"testing"
	"time"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

func testResult() *recommend.Result {
	return &recommend.Result{
		UserID:            "u1",
		Status:            recommend.StatusSuccess,
		MetaJustification: "Because you like space.",
		GeneratedAt:       time.Date(2026, 1, 4, 1, 0, 0, 0, time.UTC),
		Sections: []recommend.Section{
			{Title: "Top Picks for You", Type: "mixed", Items: []recommend.HydratedItem{{ItemID: "1"}, {ItemID: "2"}}},
			{Title: "Best in Sci-Fi", Type: "genre", Items: []recommend.HydratedItem{{ItemID: "3"}}},
		},
	}
}

func TestNewGeneratedEvent(t *testing.T) {
	t.Parallel()

	e := NewGeneratedEvent(testResult(), "corr-1")
	if e.EventID == "" {
		t.Error("EventID should be generated")
	}
	if e.Type != EventType || e.UserID != "u1" || e.CorrelationID != "corr-1" {
		t.Errorf("unexpected event: %+v", e)
	}
	if e.SectionCount != 2 || e.ItemCount != 3 {
		t.Errorf("counts = %d sections, %d items; want 2, 3", e.SectionCount, e.ItemCount)
	}

	other := NewGeneratedEvent(testResult(), "")
	if other.EventID == e.EventID {
		t.Error("event ids must be unique")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	t.Parallel()

	e := NewGeneratedEvent(testResult(), "corr-1")
	data, err := SerializeEvent(e)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}
	if !strings.Contains(string(data), `"type":"recommendation.generated"`) {
		t.Errorf("payload missing type: %s", data)
	}

	got, err := DeserializeEvent(data)
	if err != nil {
		t.Fatalf("DeserializeEvent() error = %v", err)
	}
	if *got != *e {
		t.Errorf("round trip = %+v, want %+v", got, e)
	}
}

func TestEventValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(e *GeneratedEvent)
		wantErr string
	}{
		{"missing id", func(e *GeneratedEvent) { e.EventID = "" }, "event_id"},
		{"missing user", func(e *GeneratedEvent) { e.UserID = "" }, "user_id"},
		{"missing time", func(e *GeneratedEvent) { e.GeneratedAt = time.Time{} }, "generated_at"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := NewGeneratedEvent(testResult(), "")
			tt.mutate(e)
			_, err := SerializeEvent(e)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("SerializeEvent() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}

	if _, err := DeserializeEvent([]byte("not json")); err == nil {
		t.Error("DeserializeEvent() should reject invalid JSON")
	}
	if _, err := DeserializeEvent([]byte(`{"event_id":"x"}`)); err == nil {
		t.Error("DeserializeEvent() should reject incomplete events")
	}
}
