// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/config"
)

// testDBSemaphore limits concurrent database creation to prevent resource exhaustion in CI.
// DuckDB CGO calls can hang under heavy parallel load.
var testDBSemaphore = make(chan struct{}, 1)

// setupTestDB creates an in-memory database. The semaphore is held until
// the test completes so only one DuckDB instance is live at a time.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	testDBSemaphore <- struct{}{}
	t.Cleanup(func() {
		<-testDBSemaphore
	})

	cfg := &config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "256MB",
		Threads:   1,
	}

	type result struct {
		db  *DB
		err error
	}
	resultCh := make(chan result, 1)
	go func() {
		db, err := New(cfg, zerolog.Nop())
		resultCh <- result{db: db, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			t.Fatalf("Failed to create test database: %v", res.err)
		}
		t.Cleanup(func() { closeQuietly(res.db) })
		return res.db
	case <-time.After(120 * time.Second):
		t.Fatalf("Timeout: database creation took longer than 120s")
		return nil
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"users", "ratings", "recommendation_cache"} {
		var n int
		err := db.Conn().QueryRowContext(context.Background(),
			`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`, table).Scan(&n)
		if err != nil {
			t.Fatalf("query information_schema: %v", err)
		}
		if n != 1 {
			t.Errorf("table %s not created", table)
		}
	}

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestNew_FileDatabaseCreatesDirectory(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	path := filepath.Join(t.TempDir(), "nested", "dir", "recommender.duckdb")
	db, err := New(&config.DatabaseConfig{Path: path, Threads: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	// Reopening must not fail on the existing schema.
	db, err = New(&config.DatabaseConfig{Path: path, Threads: 1}, zerolog.Nop())
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	closeQuietly(db)
}

func TestNew_SeedDemoData(t *testing.T) {
	testDBSemaphore <- struct{}{}
	defer func() { <-testDBSemaphore }()

	db, err := New(&config.DatabaseConfig{Path: ":memory:", Threads: 1, SeedDemoData: true}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer closeQuietly(db)

	ids, err := db.ListUserIDs(context.Background())
	if err != nil {
		t.Fatalf("ListUserIDs() error = %v", err)
	}
	if len(ids) != len(DemoProfiles()) {
		t.Fatalf("seeded %d users, want %d", len(ids), len(DemoProfiles()))
	}

	// Seeding twice is a no-op.
	if err := db.SeedDemoData(context.Background()); err != nil {
		t.Fatalf("second SeedDemoData() error = %v", err)
	}
	ids, _ = db.ListUserIDs(context.Background())
	if len(ids) != len(DemoProfiles()) {
		t.Errorf("reseed changed user count to %d", len(ids))
	}
}

func TestIsTransactionConflict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conflict", errors.New("TransactionContext Error: Transaction conflict: cannot update"), true},
		{"update conflict", errors.New("Conflict on update!"), true},
		{"altered", errors.New("cannot update a table that has been altered"), true},
		{"other", errors.New("Catalog Error: table does not exist"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isTransactionConflict(tt.err); got != tt.want {
				t.Errorf("isTransactionConflict(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryOnConflict(t *testing.T) {
	t.Parallel()

	newDB := func() *DB {
		return &DB{logger: zerolog.Nop(), maxWriteRetries: 3, writeBackoff: time.Microsecond}
	}
	conflict := errors.New("Transaction conflict")

	t.Run("retries conflicts then succeeds", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := newDB().retryOnConflict(context.Background(), func(context.Context) error {
			calls++
			if calls < 3 {
				return conflict
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("err = %v, calls = %d; want nil, 3", err, calls)
		}
	})

	t.Run("gives up after budget", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := newDB().retryOnConflict(context.Background(), func(context.Context) error {
			calls++
			return conflict
		})
		if !errors.Is(err, conflict) || calls != 3 {
			t.Errorf("err = %v, calls = %d; want wrapped conflict, 3", err, calls)
		}
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("constraint violated")
		calls := 0
		err := newDB().retryOnConflict(context.Background(), func(context.Context) error {
			calls++
			return boom
		})
		if !errors.Is(err, boom) || calls != 1 {
			t.Errorf("err = %v, calls = %d; want boom, 1", err, calls)
		}
	})
}
