// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package kvstore persists generated recommendations in BadgerDB. It is the
// embedded alternative to the DuckDB recommendation_cache table and
// implements recommend.ResultStore.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// BackendName labels this store in errors and metrics.
const BackendName = "badger"

const resultKeyPrefix = "recommendation:"

// ResultStore implements recommend.ResultStore on BadgerDB.
type ResultStore struct {
	db     *badger.DB
	owned  bool
	logger zerolog.Logger
}

// Open opens (or creates) a BadgerDB at path. An empty path opens an
// in-memory database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(path string, logger zerolog.Logger) (*ResultStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(badgerLogger{logger: logger.With().Str("component", "badger").Logger()})
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}

	store := NewResultStore(db, logger)
	store.owned = true
	return store, nil
}

// NewResultStore wraps an already open database. Close does not close db.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewResultStore(db *badger.DB, logger zerolog.Logger) *ResultStore {
	return &ResultStore{
		db:     db,
		logger: logger.With().Str("component", "result_store").Str("backend", BackendName).Logger(),
	}
}

func resultKey(userID string) []byte {
	return []byte(resultKeyPrefix + userID)
}

// Upsert stores result under its user id, replacing any previous value.
func (s *ResultStore) Upsert(ctx context.Context, result *recommend.Result) error {
	if result == nil || result.UserID == "" {
		return fmt.Errorf("result must have a user id")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	start := time.Now()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resultKey(result.UserID), data)
	})
	metrics.RecordDBQuery("upsert", "badger_results", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("set result for %s: %w", result.UserID, err)
	}
	return nil
}

// Get returns the stored result or an error wrapping recommend.ErrNotFound.
func (s *ResultStore) Get(ctx context.Context, userID string) (*recommend.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result recommend.Result
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(resultKey(userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("recommendations for user %s: %w", userID, recommend.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get result: %w", err)
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &result)
		})
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RunValueLogGC reclaims value log space until Badger reports nothing left
// to rewrite. It is a no-op for in-memory databases.
func (s *ResultStore) RunValueLogGC(discardRatio float64) int {
	if s.db.Opts().InMemory {
		return 0
	}
	rewrites := 0
	for {
		if err := s.db.RunValueLogGC(discardRatio); err != nil {
			if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) {
				s.logger.Warn().Err(err).Msg("value log GC failed")
			}
			return rewrites
		}
		rewrites++
	}
}

// Close closes the database if this store opened it.
func (s *ResultStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// badgerLogger routes Badger's internal logging through zerolog. Info is
// demoted to debug; Badger is chatty at startup.
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
