// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// LoadFunc fetches the value for key from the backing source.
type LoadFunc[V any] func(ctx context.Context, key string) (V, error)

type memoResult[V any] struct {
	value   V
	present bool
}

// Memo memoizes a LoadFunc in a bounded LRU. Each key is loaded at most once
// while it stays cached: failed loads are remembered as absent and never
// retried. Concurrent callers missing on the same key share one load.
type Memo[V any] struct {
	lru   *LRU[memoResult[V]]
	group singleflight.Group
	load  LoadFunc[V]

	onHit  func()
	onMiss func()
}

// MemoOption configures a Memo.
type MemoOption[V any] func(*Memo[V])

// WithHitHook calls fn on every cache hit.
func WithHitHook[V any](fn func()) MemoOption[V] {
	return func(m *Memo[V]) { m.onHit = fn }
}

// WithMissHook calls fn once per upstream load.
func WithMissHook[V any](fn func()) MemoOption[V] {
	return func(m *Memo[V]) { m.onMiss = fn }
}

// NewMemo creates a memoizer with the given capacity. Entries never expire.
func NewMemo[V any](capacity int, load LoadFunc[V], opts ...MemoOption[V]) *Memo[V] {
	m := &Memo[V]{
		lru:    NewLRU[memoResult[V]](capacity),
		load:   load,
		onHit:  func() {},
		onMiss: func() {},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value for key and whether it is present. ok is false when
// the load failed now or earlier. A cancelled ctx returns early for this
// caller only; the shared load keeps running and its result is cached.
func (m *Memo[V]) Get(ctx context.Context, key string) (V, bool) {
	if r, ok := m.lru.Get(key); ok {
		m.onHit()
		return r.value, r.present
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(key, func() (interface{}, error) {
		// Another flight may have filled the key between our miss and now.
		if r, ok := m.lru.Peek(key); ok {
			return r, nil
		}
		m.onMiss()
		v, err := m.load(loadCtx, key)
		r := memoResult[V]{value: v, present: err == nil}
		m.lru.Add(key, r)
		return r, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, false
	case res := <-ch:
		r, _ := res.Val.(memoResult[V])
		return r.value, r.present
	}
}

// Len returns the number of memoized keys, present or absent.
func (m *Memo[V]) Len() int {
	return m.lru.Len()
}

// Stats returns the underlying LRU counters.
func (m *Memo[V]) Stats() Stats {
	return m.lru.Stats()
}
