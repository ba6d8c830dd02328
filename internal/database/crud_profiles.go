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
	"github.com/juliannp253/Movies-Recommender/internal/validation"
)

// upstream wraps a query failure so the pipeline can classify and retry it.
func upstream(op string, err error) error {
	return &recommend.UpstreamError{Service: BackendName, Op: op, Err: err}
}

// GetUser returns one profile with its ratings in recorded order.
func (db *DB) GetUser(ctx context.Context, userID string) (profile *recommend.UserProfile, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_user", "users", time.Since(start), ignoreNotFound(err)) }()

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	var genresJSON string
	err = db.conn.QueryRowContext(ctx, `SELECT favorite_genres FROM users WHERE id = ?`, userID).Scan(&genresJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", userID, recommend.ErrNotFound)
	}
	if err != nil {
		return nil, upstream("get_user", err)
	}

	profile = &recommend.UserProfile{ID: userID, Ratings: []recommend.Rating{}}
	if profile.FavoriteGenres, err = decodeGenres(genresJSON); err != nil {
		return nil, upstream("get_user", fmt.Errorf("decode favorite_genres for %s: %w", userID, err))
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT movie_id, score FROM ratings WHERE user_id = ? ORDER BY ordinal`, userID)
	if err != nil {
		return nil, upstream("get_user", err)
	}
	defer closeWithLog(rows, db.logger, "rows")

	for rows.Next() {
		var r recommend.Rating
		var movieID string
		if err := rows.Scan(&movieID, &r.Score); err != nil {
			return nil, upstream("get_user", fmt.Errorf("scan rating: %w", err))
		}
		r.ItemID = recommend.ItemID(movieID)
		profile.Ratings = append(profile.Ratings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("get_user", err)
	}
	return profile, nil
}

// ListProfiles returns every profile in insertion order. Users without
// ratings are included with an empty rating list.
func (db *DB) ListProfiles(ctx context.Context) (profiles []recommend.UserProfile, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_profiles", "users", time.Since(start), err) }()

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.id, u.favorite_genres, r.movie_id, r.score
		FROM users u
		LEFT JOIN ratings r ON r.user_id = u.id
		ORDER BY u.seq, r.ordinal
	`)
	if err != nil {
		return nil, upstream("list_profiles", err)
	}
	defer closeWithLog(rows, db.logger, "rows")

	profiles = []recommend.UserProfile{}
	for rows.Next() {
		var (
			id, genresJSON string
			movieID        sql.NullString
			score          sql.NullInt64
		)
		if err := rows.Scan(&id, &genresJSON, &movieID, &score); err != nil {
			return nil, upstream("list_profiles", fmt.Errorf("scan profile: %w", err))
		}

		n := len(profiles)
		if n == 0 || profiles[n-1].ID != id {
			genres, err := decodeGenres(genresJSON)
			if err != nil {
				return nil, upstream("list_profiles", fmt.Errorf("decode favorite_genres for %s: %w", id, err))
			}
			profiles = append(profiles, recommend.UserProfile{ID: id, Ratings: []recommend.Rating{}, FavoriteGenres: genres})
			n++
		}
		if movieID.Valid {
			profiles[n-1].Ratings = append(profiles[n-1].Ratings, recommend.Rating{
				ItemID: recommend.ItemID(movieID.String),
				Score:  int(score.Int64),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("list_profiles", err)
	}
	return profiles, nil
}

// ListUserIDs returns every user id in insertion order.
func (db *DB) ListUserIDs(ctx context.Context) (ids []string, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_user_ids", "users", time.Since(start), err) }()

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM users ORDER BY seq`)
	if err != nil {
		return nil, upstream("list_user_ids", err)
	}
	defer closeWithLog(rows, db.logger, "rows")

	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, upstream("list_user_ids", fmt.Errorf("scan user id: %w", err))
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("list_user_ids", err)
	}
	return ids, nil
}

// SaveProfile inserts or replaces a user and all of their ratings.
func (db *DB) SaveProfile(ctx context.Context, profile *recommend.UserProfile) (err error) {
	if err := validation.ValidateStruct(profile); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	start := time.Now()
	defer func() { metrics.RecordDBQuery("save_profile", "users", time.Since(start), err) }()

	genres := profile.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}
	genresJSON, err := json.Marshal(genres)
	if err != nil {
		return fmt.Errorf("encode favorite_genres: %w", err)
	}

	ctx, cancel := db.withTimeout(ctx)
	defer cancel()

	return db.retryOnConflict(ctx, func(ctx context.Context) error {
		return db.doSaveProfile(ctx, profile, string(genresJSON))
	})
}

func (db *DB) doSaveProfile(ctx context.Context, profile *recommend.UserProfile, genresJSON string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, favorite_genres) VALUES (?, ?)
		ON CONFLICT (id) DO UPDATE SET favorite_genres = EXCLUDED.favorite_genres
	`, profile.ID, genresJSON); err != nil {
		return fmt.Errorf("upsert user %s: %w", profile.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ratings WHERE user_id = ?`, profile.ID); err != nil {
		return fmt.Errorf("clear ratings for %s: %w", profile.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO ratings (user_id, ordinal, movie_id, score) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rating insert: %w", err)
	}
	defer closeWithLog(stmt, db.logger, "prepared statement")

	for i, r := range profile.Ratings {
		if _, err := stmt.ExecContext(ctx, profile.ID, i, string(r.ItemID), r.Score); err != nil {
			return fmt.Errorf("insert rating %d for %s: %w", i, profile.ID, err)
		}
	}

	return tx.Commit()
}

func decodeGenres(raw string) ([]string, error) {
	if raw == "" {
		return []string{}, nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, err
	}
	if genres == nil {
		genres = []string{}
	}
	return genres, nil
}

// ignoreNotFound keeps unknown users out of the query error metric.
func ignoreNotFound(err error) error {
	if errors.Is(err, recommend.ErrNotFound) {
		return nil
	}
	return err
}
