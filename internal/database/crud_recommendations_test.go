// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package database

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

func sampleResult(userID string, at time.Time) *recommend.Result {
	poster := "/poster.jpg"
	vote := 8.4
	return &recommend.Result{
		UserID:            userID,
		Status:            recommend.StatusSuccess,
		MetaJustification: "A mix of mind-bending sci-fi and crime classics.",
		GeneratedAt:       at,
		Sections: []recommend.Section{
			{
				Title: "Top Picks for You",
				Type:  "mixed",
				Items: []recommend.HydratedItem{
					{ItemID: "603", Title: "The Matrix", ArtworkRef: &poster, VoteAverage: &vote, Origin: recommend.OriginCollaborative, AIReason: "Because you loved Inception."},
					{ItemID: "680", Title: "Pulp Fiction", Origin: recommend.OriginTrending, AIReason: "Recommended for you."},
				},
			},
		},
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	at := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	want := sampleResult("u1", at)
	if err := db.Upsert(ctx, want); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := db.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.GeneratedAt.Equal(at) {
		t.Errorf("GeneratedAt = %v, want %v", got.GeneratedAt, at)
	}
	got.GeneratedAt = want.GeneratedAt
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Get() = %+v\nwant %+v", got, want)
	}
}

func TestUpsert_ReplacesPrevious(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := sampleResult("u1", time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC))
	second := sampleResult("u1", time.Date(2026, 3, 15, 1, 0, 0, 0, time.UTC))
	second.MetaJustification = "Fresh picks."
	second.Sections = second.Sections[:1]
	second.Sections[0].Items = second.Sections[0].Items[:1]

	for _, r := range []*recommend.Result{first, second} {
		if err := db.Upsert(ctx, r); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM recommendation_cache`).Scan(&n); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}

	got, err := db.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.MetaJustification != "Fresh picks." || got.ItemCount() != 1 {
		t.Errorf("result not replaced: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Get(context.Background(), "nobody")
	if !errors.Is(err, recommend.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestUpsert_RequiresUserID(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Upsert(context.Background(), &recommend.Result{Status: recommend.StatusSuccess}); err == nil {
		t.Error("Upsert() without user id should fail")
	}
	if err := db.Upsert(context.Background(), nil); err == nil {
		t.Error("Upsert(nil) should fail")
	}
}

func TestUpsert_NilSectionsStoredAsEmpty(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	if err := db.Upsert(ctx, &recommend.Result{UserID: "u1", Status: recommend.StatusSuccess, GeneratedAt: time.Now()}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	got, err := db.Get(ctx, "u1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Sections == nil || len(got.Sections) != 0 {
		t.Errorf("Sections = %v, want empty non-nil", got.Sections)
	}
}

// Compile-time interface check.
var _ recommend.ResultStore = (*DB)(nil)
