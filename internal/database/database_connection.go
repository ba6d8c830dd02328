// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

/*
database_connection.go - Connection Pool and Write Retries

Connection Pool Configuration:
  - MaxOpenConns: Based on CPU count for parallelism
  - MaxIdleConns: 2 for efficient connection reuse
  - ConnMaxLifetime: 1 hour to prevent stale connections
  - ConnMaxIdleTime: 5 minutes for idle connection cleanup

Write Retries:
DuckDB uses optimistic concurrency control. Two batch workers upserting
results at the same moment can collide with a transaction conflict; those
writes are retried with a short exponential backoff. Any other error is
returned immediately.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"
)

func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "cannot update a table that has been altered")
}

// retryOnConflict runs op until it succeeds, fails with a non-conflict
// error, or the retry budget is spent.
func (db *DB) retryOnConflict(ctx context.Context, op func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < db.maxWriteRetries; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return fmt.Errorf("operation timed out or canceled: %w", ctx.Err())
		}
		if !isTransactionConflict(err) {
			return err
		}
		if attempt == db.maxWriteRetries-1 {
			break
		}

		backoff := db.writeBackoff * time.Duration(1<<uint(attempt)) // 1ms, 2ms, 4ms
		db.logger.Debug().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("Transaction conflict, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
