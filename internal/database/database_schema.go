// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

/*
database_schema.go - Database Schema Management

Tables:
  - users: one row per user with declared favorite genres (JSON array text).
    seq preserves insertion order, which is the corpus order.
  - ratings: one row per (user, rating). ordinal preserves the order the
    ratings were recorded in; ties in top-rated selection depend on it.
  - recommendation_cache: the latest generated result per user. sections
    holds the hydrated sections as JSON text.

ratings has no unique constraint: replacing a user's ratings deletes and
reinserts rows in one transaction, which DuckDB's eager constraint checks
would reject.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
)

func tableCreationQueries() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS users_seq START 1`,
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR PRIMARY KEY,
			seq BIGINT NOT NULL DEFAULT nextval('users_seq'),
			favorite_genres VARCHAR NOT NULL DEFAULT '[]',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS ratings (
			user_id VARCHAR NOT NULL,
			ordinal INTEGER NOT NULL,
			movie_id VARCHAR NOT NULL,
			score INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recommendation_cache (
			user_id VARCHAR PRIMARY KEY,
			status VARCHAR NOT NULL,
			meta_justification VARCHAR NOT NULL DEFAULT '',
			sections VARCHAR NOT NULL,
			generated_at TIMESTAMP NOT NULL
		)`,
	}
}

func indexCreationQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_ratings_user ON ratings(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_users_seq ON users(seq)`,
	}
}

// createTables creates the tables and indexes if they do not exist.
func (db *DB) createTables(ctx context.Context) error {
	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, query := range indexCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
