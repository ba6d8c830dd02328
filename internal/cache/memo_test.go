// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestMemo_LoadsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := NewMemo[string](10, func(_ context.Context, key string) (string, error) {
		calls.Add(1)
		return "value-" + key, nil
	})

	for i := 0; i < 3; i++ {
		v, ok := m.Get(context.Background(), "550")
		if !ok || v != "value-550" {
			t.Fatalf("Get() = %q, %v", v, ok)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestMemo_FailureCachedAsAbsent(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := NewMemo[string](10, func(_ context.Context, _ string) (string, error) {
		calls.Add(1)
		return "", errors.New("upstream 404")
	})

	for i := 0; i < 3; i++ {
		if _, ok := m.Get(context.Background(), "1"); ok {
			t.Fatal("expected absent")
		}
	}
	if calls.Load() != 1 {
		t.Errorf("failed key should not be retried, loader called %d times", calls.Load())
	}
}

func TestMemo_SingleFlight(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	release := make(chan struct{})
	m := NewMemo[int](10, func(_ context.Context, _ string) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	})

	const waiters = 20
	results := make(chan int, waiters)
	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _ := m.Get(context.Background(), "k")
			results <- v
		}()
	}

	// Give the goroutines time to pile up on the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	for v := range results {
		if v != 42 {
			t.Errorf("waiter got %d, want 42", v)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("loader called %d times, want 1", calls.Load())
	}
}

func TestMemo_CallerCancelDoesNotPoison(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	m := NewMemo[int](10, func(ctx context.Context, _ string) (int, error) {
		select {
		case <-release:
			return 7, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan bool)
	go func() {
		_, ok := m.Get(ctx, "k")
		done <- ok
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if ok := <-done; ok {
		t.Error("cancelled caller should see absent")
	}

	close(release)
	v, ok := m.Get(context.Background(), "k")
	if !ok || v != 7 {
		t.Errorf("Get() after cancel = %d, %v; want 7, true", v, ok)
	}
}

func TestMemo_Hooks(t *testing.T) {
	t.Parallel()

	var hits, misses atomic.Int32
	m := NewMemo[int](10,
		func(_ context.Context, _ string) (int, error) { return 1, nil },
		WithHitHook[int](func() { hits.Add(1) }),
		WithMissHook[int](func() { misses.Add(1) }),
	)

	m.Get(context.Background(), "a")
	m.Get(context.Background(), "a")
	m.Get(context.Background(), "b")

	if hits.Load() != 1 || misses.Load() != 2 {
		t.Errorf("hits=%d misses=%d, want 1 and 2", hits.Load(), misses.Load())
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}

func TestMemo_Capacity(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	m := NewMemo[int](2, func(_ context.Context, _ string) (int, error) {
		calls.Add(1)
		return 0, nil
	})

	m.Get(context.Background(), "a")
	m.Get(context.Background(), "b")
	m.Get(context.Background(), "c") // evicts a
	m.Get(context.Background(), "a") // reloads a

	if calls.Load() != 4 {
		t.Errorf("loader called %d times, want 4", calls.Load())
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
}
