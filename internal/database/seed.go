// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package database

import (
	"context"
	"fmt"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// DemoProfiles is a small rating corpus over well-known TMDB ids. The users
// overlap enough for every mining strategy to produce candidates.
func DemoProfiles() []recommend.UserProfile {
	r := func(id string, score int) recommend.Rating {
		return recommend.Rating{ItemID: recommend.ItemID(id), Score: score}
	}
	return []recommend.UserProfile{
		{
			ID:             "demo-user-1",
			FavoriteGenres: []string{"Sci-Fi", "Thriller"},
			Ratings:        []recommend.Rating{r("603", 5), r("27205", 5), r("550", 4), r("13", 2)},
		},
		{
			ID:             "demo-user-2",
			FavoriteGenres: []string{"Sci-Fi", "Drama"},
			Ratings:        []recommend.Rating{r("603", 5), r("157336", 5), r("155", 4), r("680", 3)},
		},
		{
			ID:             "demo-user-3",
			FavoriteGenres: []string{"Crime", "Drama"},
			Ratings:        []recommend.Rating{r("550", 5), r("680", 5), r("238", 5), r("496243", 4)},
		},
		{
			ID:             "demo-user-4",
			FavoriteGenres: []string{"Comedy", "Animation"},
			Ratings:        []recommend.Rating{r("862", 5), r("129", 4), r("8363", 4), r("18785", 3)},
		},
		{
			ID:             "demo-user-5",
			FavoriteGenres: []string{},
			Ratings:        []recommend.Rating{r("76341", 4), r("419430", 5), r("27205", 4)},
		},
	}
}

// SeedDemoData inserts DemoProfiles when the users table is empty.
func (db *DB) SeedDemoData(ctx context.Context) error {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		db.logger.Debug().Int("users", n).Msg("Users present, skipping demo seed")
		return nil
	}

	profiles := DemoProfiles()
	for i := range profiles {
		if err := db.SaveProfile(ctx, &profiles[i]); err != nil {
			return fmt.Errorf("seed %s: %w", profiles[i].ID, err)
		}
	}
	db.logger.Info().Int("users", len(profiles)).Msg("Seeded demo rating corpus")
	return nil
}
