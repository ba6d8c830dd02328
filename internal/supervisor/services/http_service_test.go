// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*HTTPServerService)(nil)

// stubServer blocks in ListenAndServe until Shutdown, unless listenErr is set.
type stubServer struct {
	listenErr   error
	shutdownErr error
	started     chan struct{}
	stopped     chan struct{}
	shutdownCtx context.Context
}

func newStubServer() *stubServer {
	return &stubServer{started: make(chan struct{}), stopped: make(chan struct{})}
}

func (s *stubServer) ListenAndServe() error {
	close(s.started)
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stopped
	return http.ErrServerClosed
}

func (s *stubServer) Shutdown(ctx context.Context) error {
	s.shutdownCtx = ctx
	close(s.stopped)
	return s.shutdownErr
}

// serveAndCancel runs svc until srv has started, then cancels and returns
// Serve's error.
func serveAndCancel(t *testing.T, svc *HTTPServerService, srv *stubServer) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		t.Fatal("ListenAndServe was not called")
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancellation")
		return nil
	}
}

func TestNewHTTPServerService_ShutdownTimeout(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{3 * time.Second, 3 * time.Second},
		{0, 10 * time.Second},
		{-time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		svc := NewHTTPServerService(newStubServer(), "127.0.0.1:3857", tt.in, zerolog.Nop())
		if svc.shutdownTimeout != tt.want {
			t.Errorf("shutdownTimeout(%v) = %v, want %v", tt.in, svc.shutdownTimeout, tt.want)
		}
	}
}

func TestHTTPServerService_LogsAddrAndShutdown(t *testing.T) {
	var buf bytes.Buffer
	srv := newStubServer()
	svc := NewHTTPServerService(srv, "0.0.0.0:3857", 4*time.Second, zerolog.New(&buf))

	if err := serveAndCancel(t, svc, srv); !errors.Is(err, context.Canceled) {
		t.Fatalf("Serve() = %v, want context.Canceled", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %d, want 2:\n%s", len(lines), buf.String())
	}
	for _, want := range []string{`"service":"http-server"`, `"addr":"0.0.0.0:3857"`, `"message":"HTTP server listening"`} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("listening line %s missing %s", lines[0], want)
		}
	}
	for _, want := range []string{`"timeout":4000`, `"message":"HTTP server shutting down"`} {
		if !strings.Contains(lines[1], want) {
			t.Errorf("shutdown line %s missing %s", lines[1], want)
		}
	}

	deadline, ok := srv.shutdownCtx.Deadline()
	if !ok || time.Until(deadline) > 4*time.Second {
		t.Errorf("Shutdown deadline = %v, %v; want within 4s", deadline, ok)
	}
}

func TestHTTPServerService_Errors(t *testing.T) {
	bindErr := errors.New("listen tcp 0.0.0.0:3857: bind: address already in use")
	shutdownErr := errors.New("context deadline exceeded")

	t.Run("listen failure", func(t *testing.T) {
		srv := newStubServer()
		srv.listenErr = bindErr
		svc := NewHTTPServerService(srv, "0.0.0.0:3857", time.Second, zerolog.Nop())

		err := svc.Serve(context.Background())
		if !errors.Is(err, bindErr) || !strings.HasPrefix(err.Error(), "http server failed") {
			t.Errorf("Serve() = %v", err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		srv := newStubServer()
		srv.shutdownErr = shutdownErr
		svc := NewHTTPServerService(srv, "0.0.0.0:3857", time.Second, zerolog.Nop())

		err := serveAndCancel(t, svc, srv)
		if !errors.Is(err, shutdownErr) || !strings.HasPrefix(err.Error(), "http server shutdown failed") {
			t.Errorf("Serve() = %v", err)
		}
	})
}

func TestHTTPServerService_RealServer(t *testing.T) {
	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: time.Second,
	}
	svc := NewHTTPServerService(server, server.Addr, time.Second, zerolog.Nop())

	sup := suture.New("api", suture.Spec{Timeout: 2 * time.Second})
	sup.Add(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-errCh:
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q", svc.String())
	}
}
