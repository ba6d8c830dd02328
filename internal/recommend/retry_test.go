// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRetryWithBackoff(t *testing.T) {
	t.Parallel()

	transient := &UpstreamError{Service: "s", Op: "o", StatusCode: 503}

	tests := []struct {
		name      string
		failures  []error
		attempts  int
		wantCalls int
		wantErr   bool
	}{
		{"first try", nil, 3, 1, false},
		{"recovers", []error{transient, transient}, 3, 3, false},
		{"exhausted", []error{transient, transient, transient}, 3, 3, true},
		{"not found is final", []error{ErrNotFound}, 3, 1, true},
		{"4xx is final", []error{&UpstreamError{StatusCode: 400}}, 3, 1, true},
		{"validation is final", []error{&ValidationError{Reason: "x"}}, 3, 1, true},
		{"zero attempts runs once", nil, 0, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			calls := 0
			v, err := retryWithBackoff(context.Background(), zerolog.Nop(), tt.attempts, time.Millisecond, func() (int, error) {
				calls++
				if calls <= len(tt.failures) {
					return 0, tt.failures[calls-1]
				}
				return 42, nil
			})
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !tt.wantErr && v != 42 {
				t.Errorf("v = %d", v)
			}
		})
	}
}

func TestRetryWithBackoff_PreservesCause(t *testing.T) {
	t.Parallel()

	cause := &UpstreamError{Service: "s", Op: "o"}
	_, err := retryWithBackoff(context.Background(), zerolog.Nop(), 2, time.Millisecond, func() (struct{}, error) {
		return struct{}{}, cause
	})
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Errorf("exhausted error should wrap the last cause: %v", err)
	}
}

func TestRetryWithBackoff_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := retryWithBackoff(ctx, zerolog.Nop(), 5, time.Hour, func() (int, error) {
		calls++
		cancel()
		return 0, errors.New("boom")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
