// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

func meta(id, title string) Metadata {
	return Metadata{ID: ItemID(id), Title: title, PosterPath: strPtr("/" + id + ".jpg"), VoteAverage: floatPtr(7.5)}
}

func profile(id string, genres []string, ratings ...Rating) UserProfile {
	return UserProfile{ID: id, Ratings: ratings, FavoriteGenres: genres}
}

func rt(id string, score int) Rating { return Rating{ItemID: ItemID(id), Score: score} }

// mockProfileStore serves a fixed corpus.
type mockProfileStore struct {
	mu        sync.Mutex
	users     []UserProfile
	getErr    error
	listErr   error
	getCalls  int
	failFirst int // GetUser fails this many times with a transient error first
	failUsers map[string]error
}

func (m *mockProfileStore) GetUser(_ context.Context, userID string) (*UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	if m.failFirst > 0 {
		m.failFirst--
		return nil, &UpstreamError{Service: "profiles", Op: "get_user", Err: fmt.Errorf("connection reset")}
	}
	if m.getErr != nil {
		return nil, m.getErr
	}
	if err := m.failUsers[userID]; err != nil {
		return nil, err
	}
	for i := range m.users {
		if m.users[i].ID == userID {
			u := m.users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
}

func (m *mockProfileStore) ListProfiles(context.Context) ([]UserProfile, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]UserProfile(nil), m.users...), nil
}

func (m *mockProfileStore) ListUserIDs(context.Context) ([]string, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]string, 0, len(m.users))
	for i := range m.users {
		ids = append(ids, m.users[i].ID)
	}
	return ids, nil
}

// mockMetadata is an in-memory catalogue that counts calls.
type mockMetadata struct {
	mu          sync.Mutex
	items       map[ItemID]Metadata
	similar     map[ItemID][]Metadata
	discover    map[string][]Metadata // keyed by genre code, "" for unfiltered
	similarErr  error
	discoverErr error
	delay       time.Duration

	getCalls      map[ItemID]int
	discoverCalls []DiscoverQuery
}

func newMockMetadata() *mockMetadata {
	return &mockMetadata{
		items:    make(map[ItemID]Metadata),
		similar:  make(map[ItemID][]Metadata),
		discover: make(map[string][]Metadata),
		getCalls: make(map[ItemID]int),
	}
}

func (m *mockMetadata) add(items ...Metadata) {
	for _, it := range items {
		m.items[it.ID] = it
	}
}

func (m *mockMetadata) GetItem(ctx context.Context, id ItemID) (*Metadata, error) {
	m.mu.Lock()
	m.getCalls[id]++
	m.mu.Unlock()

	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return &it, nil
}

func (m *mockMetadata) FindSimilar(_ context.Context, seed ItemID) ([]Metadata, error) {
	if m.similarErr != nil {
		return nil, m.similarErr
	}
	return m.similar[seed], nil
}

func (m *mockMetadata) Discover(_ context.Context, q DiscoverQuery) ([]Metadata, error) {
	m.mu.Lock()
	m.discoverCalls = append(m.discoverCalls, q)
	m.mu.Unlock()
	if m.discoverErr != nil {
		return nil, m.discoverErr
	}
	return m.discover[q.GenreCode], nil
}

func (m *mockMetadata) calls(id ItemID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls[id]
}

// mockOracle returns a canned payload and records requests.
type mockOracle struct {
	mu       sync.Mutex
	raw      []byte
	err      error
	requests []OracleRequest
}

func (m *mockOracle) Rank(_ context.Context, req OracleRequest) (*OracleResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &OracleResponse{Raw: m.raw}, nil
}

func (m *mockOracle) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockResults is an in-memory ResultStore.
type mockResults struct {
	mu      sync.Mutex
	byUser  map[string]*Result
	err     error
	upserts int
}

func newMockResults() *mockResults {
	return &mockResults{byUser: make(map[string]*Result)}
}

func (m *mockResults) Upsert(_ context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.upserts++
	if m.err != nil {
		return m.err
	}
	m.byUser[r.UserID] = r
	return nil
}

func (m *mockResults) Get(_ context.Context, userID string) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return r, nil
}

// mockPublisher records published results.
type mockPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (m *mockPublisher) PublishGenerated(_ context.Context, r *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, r.UserID)
	return nil
}

// mockRunner fails for the listed users.
type mockRunner struct {
	mu    sync.Mutex
	fail  map[string]error
	ran   []string
	delay time.Duration
}

func (m *mockRunner) Run(ctx context.Context, userID string) (*Result, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ran = append(m.ran, userID)
	if err := m.fail[userID]; err != nil {
		return nil, err
	}
	return &Result{UserID: userID, Status: StatusSuccess}, nil
}
