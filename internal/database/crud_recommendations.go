// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/juliannp253/Movies-Recommender/internal/metrics"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// Upsert stores result as the user's current recommendations, replacing
// any previous row.
func (db *DB) Upsert(ctx context.Context, result *recommend.Result) (err error) {
	if result == nil || result.UserID == "" {
		return fmt.Errorf("result must have a user id")
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "recommendation_cache", time.Since(start), err) }()

	sections := result.Sections
	if sections == nil {
		sections = []recommend.Section{}
	}
	sectionsJSON, err := json.Marshal(sections)
	if err != nil {
		return fmt.Errorf("encode sections: %w", err)
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.retryOnConflict(ctx, func(ctx context.Context) error {
		_, err := db.conn.ExecContext(ctx, `
			INSERT INTO recommendation_cache (user_id, status, meta_justification, sections, generated_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (user_id) DO UPDATE SET
				status = EXCLUDED.status,
				meta_justification = EXCLUDED.meta_justification,
				sections = EXCLUDED.sections,
				generated_at = EXCLUDED.generated_at
		`, result.UserID, result.Status, result.MetaJustification, string(sectionsJSON), result.GeneratedAt.UTC())
		return err
	})
}

// Get returns the stored result for userID or an error wrapping
// recommend.ErrNotFound.
func (db *DB) Get(ctx context.Context, userID string) (result *recommend.Result, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("get", "recommendation_cache", time.Since(start), ignoreNotFound(err))
	}()

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var sectionsJSON string
	result = &recommend.Result{UserID: userID}
	err = db.conn.QueryRowContext(ctx, `
		SELECT status, meta_justification, sections, generated_at
		FROM recommendation_cache
		WHERE user_id = ?
	`, userID).Scan(&result.Status, &result.MetaJustification, &sectionsJSON, &result.GeneratedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recommendations for user %s: %w", userID, recommend.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query recommendations for %s: %w", userID, err)
	}

	if err := json.Unmarshal([]byte(sectionsJSON), &result.Sections); err != nil {
		return nil, fmt.Errorf("decode sections for %s: %w", userID, err)
	}
	result.GeneratedAt = result.GeneratedAt.UTC()
	return result, nil
}
