// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package kvstore

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

func createTestStore(t *testing.T) *ResultStore {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "badger"), zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return store
}

func result(userID, justification string) *recommend.Result {
	vote := 7.9
	return &recommend.Result{
		UserID:            userID,
		Status:            recommend.StatusSuccess,
		MetaJustification: justification,
		GeneratedAt:       time.Date(2026, 5, 3, 1, 0, 0, 0, time.UTC),
		Sections: []recommend.Section{{
			Title: "Best in Sci-Fi",
			Type:  "genre",
			Items: []recommend.HydratedItem{{
				ItemID:      "157336",
				Title:       "Interstellar",
				VoteAverage: &vote,
				Origin:      recommend.OriginTrending,
				AIReason:    "Space epic.",
			}},
		}},
	}
}

func TestResultStore_UpsertGet(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	want := result("u1", "first")
	if err := store.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v\nwant %+v", got, want)
	}
}

func TestResultStore_UpsertReplaces(t *testing.T) {
	store := createTestStore(t)
	ctx := context.Background()

	for _, j := range []string{"first", "second"} {
		if err := store.Upsert(ctx, result("u1", j)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}
	got, err := store.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.MetaJustification != "second" {
		t.Errorf("MetaJustification = %q, want second", got.MetaJustification)
	}

	var keys []string
	err = store.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().Key()))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("iterate keys: %v", err)
	}
	if !reflect.DeepEqual(keys, []string{resultKeyPrefix + "u1"}) {
		t.Errorf("keys = %v, want one entry for u1", keys)
	}
}

func TestResultStore_NotFound(t *testing.T) {
	store := createTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestResultStore_Validation(t *testing.T) {
	store := createTestStore(t)

	if err := store.Upsert(context.Background(), &recommend.Result{}); err == nil {
		t.Error("Upsert() without user id should fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.Upsert(ctx, result("u1", "x")); !errors.Is(err, context.Canceled) {
		t.Errorf("Upsert() with canceled ctx = %v, want context.Canceled", err)
	}
}

func TestResultStore_Persists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "badger")

	store, err := Open(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Upsert(context.Background(), result("u1", "durable")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Get() after reopen error = %v", err)
	}
	if got.MetaJustification != "durable" {
		t.Errorf("MetaJustification = %q", got.MetaJustification)
	}
	if n := reopened.RunValueLogGC(0.5); n < 0 {
		t.Errorf("RunValueLogGC() = %d", n)
	}
}

func TestResultStore_SharedDB(t *testing.T) {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	defer db.Close()

	store := NewResultStore(db, zerolog.Nop())
	if err := store.Upsert(context.Background(), result("u2", "shared")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	// Close on a borrowed database must leave it usable.
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "u2"); err != nil {
		t.Errorf("Get() after borrowed Close() error = %v", err)
	}
	if n := store.RunValueLogGC(0.5); n != 0 {
		t.Errorf("RunValueLogGC() in memory = %d, want 0", n)
	}
}

var _ recommend.ResultStore = (*ResultStore)(nil)
