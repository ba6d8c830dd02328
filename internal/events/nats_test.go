// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package events

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

type mockJetStream struct {
	streamErr error
	created   []jetstream.StreamConfig
	updated   []jetstream.StreamConfig
}

func (m *mockJetStream) Stream(context.Context, string) (jetstream.Stream, error) {
	return nil, m.streamErr
}

func (m *mockJetStream) CreateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.created = append(m.created, cfg)
	return nil, nil
}

func (m *mockJetStream) UpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	m.updated = append(m.updated, cfg)
	return nil, nil
}

func TestStreamSubjects(t *testing.T) {
	t.Parallel()

	tests := map[string][]string{
		"recommendation.generated": {"recommendation.>"},
		"events":                   {"events"},
		"a.b.c":                    {"a.>"},
	}
	for topic, want := range tests {
		if got := StreamSubjects(topic); !reflect.DeepEqual(got, want) {
			t.Errorf("StreamSubjects(%q) = %v, want %v", topic, got, want)
		}
	}
}

func TestEnsureStream(t *testing.T) {
	t.Parallel()

	cfg := DefaultNATSConfig()

	t.Run("creates missing stream", func(t *testing.T) {
		t.Parallel()
		js := &mockJetStream{streamErr: jetstream.ErrStreamNotFound}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.created) != 1 || len(js.updated) != 0 {
			t.Fatalf("created=%d updated=%d", len(js.created), len(js.updated))
		}
		got := js.created[0]
		if got.Name != "RECOMMENDATIONS" || got.Duplicates != 2*time.Minute {
			t.Errorf("unexpected stream config: %+v", got)
		}
	})

	t.Run("updates existing stream", func(t *testing.T) {
		t.Parallel()
		js := &mockJetStream{}
		if err := EnsureStream(context.Background(), js, cfg); err != nil {
			t.Fatalf("EnsureStream() error = %v", err)
		}
		if len(js.updated) != 1 || len(js.created) != 0 {
			t.Errorf("created=%d updated=%d", len(js.created), len(js.updated))
		}
	})

	t.Run("propagates lookup errors", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("no responders")
		js := &mockJetStream{streamErr: boom}
		if err := EnsureStream(context.Background(), js, cfg); !errors.Is(err, boom) {
			t.Errorf("EnsureStream() error = %v, want %v", err, boom)
		}
	})
}

func TestEmbeddedServer_PublishToJetStream(t *testing.T) {
	if testing.Short() {
		t.Skip("starts an embedded NATS server")
	}

	srv, err := NewEmbeddedServer(ServerConfig{Host: "127.0.0.1", Port: -1, StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()
	if !srv.IsRunning() || !srv.JetStreamEnabled() {
		t.Fatal("embedded server should be running with JetStream")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg := DefaultNATSConfig()
	cfg.URL = srv.ClientURL()
	cfg.MaxReconnects = 1

	pub, err := NewNATSPublisher(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewNATSPublisher() error = %v", err)
	}
	defer pub.Close()

	if err := pub.PublishGenerated(ctx, testResult()); err != nil {
		t.Fatalf("PublishGenerated() error = %v", err)
	}

	nc, err := natsgo.Connect(cfg.URL)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream.New() error = %v", err)
	}
	stream, err := js.Stream(ctx, cfg.StreamName)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	if info.State.Msgs != 1 {
		t.Errorf("stream has %d messages, want 1", info.State.Msgs)
	}
}
