// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package cache

import (
	"strconv"
	"sync"
	"testing"
)

func TestLRU_BasicOperations(t *testing.T) {
	c := NewLRU[int](3)

	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("c", 3)

	for key, want := range map[string]int{"a": 1, "b": 2, "c": 3} {
		got, ok := c.Get(key)
		if !ok || got != want {
			t.Errorf("Get(%q) = %d, %v; want %d, true", key, got, ok, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[string](3)
	c.Add("a", "A")
	c.Add("b", "B")
	c.Add("c", "C")

	// a becomes most recently used, so b is the eviction victim.
	c.Get("a")
	c.Add("d", "D")

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %q to be present", key)
		}
	}
	if c.Stats().Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", c.Stats().Evictions)
	}
}

func TestLRU_UpdateMovesToFront(t *testing.T) {
	c := NewLRU[int](2)
	c.Add("a", 1)
	c.Add("b", 2)
	c.Add("a", 10)
	c.Add("c", 3)

	if v, ok := c.Get("a"); !ok || v != 10 {
		t.Errorf("Get(a) = %d, %v; want 10, true", v, ok)
	}
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
}

func TestLRU_PeekDoesNotPromote(t *testing.T) {
	c := NewLRU[int](2)
	c.Add("a", 1)
	c.Add("b", 2)

	if _, ok := c.Peek("a"); !ok {
		t.Fatal("expected Peek to find a")
	}
	c.Add("c", 3)

	if _, ok := c.Peek("a"); ok {
		t.Error("Peek must not refresh recency; a should be evicted")
	}
	if s := c.Stats(); s.Hits != 0 || s.Misses != 0 {
		t.Errorf("Peek must not touch stats: %+v", s)
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU[int](5)
	c.Add("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 || s.Size != 1 || s.Capacity != 5 {
		t.Errorf("unexpected stats: %+v", s)
	}
	if rate := s.HitRate(); rate < 66 || rate > 67 {
		t.Errorf("HitRate() = %v", rate)
	}
	if (Stats{}).HitRate() != 0 {
		t.Error("empty stats should have 0 hit rate")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[int](100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := strconv.Itoa((g*500 + i) % 150)
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
