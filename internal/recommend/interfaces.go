// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import "context"

// This package depends only on leaf packages (cache, logging, metrics).
// Storage, metadata and oracle clients implement the interfaces below from
// their own packages.

// ProfileStore reads user profiles.
type ProfileStore interface {
	// GetUser returns the profile or an error wrapping ErrNotFound.
	GetUser(ctx context.Context, userID string) (*UserProfile, error)

	// ListProfiles returns every profile projected to ratings and genres,
	// in a stable corpus order.
	ListProfiles(ctx context.Context) ([]UserProfile, error)

	// ListUserIDs returns every user id in corpus order.
	ListUserIDs(ctx context.Context) ([]string, error)
}

// MetadataService is the external item catalogue.
type MetadataService interface {
	// GetItem returns display metadata or an error wrapping ErrNotFound.
	GetItem(ctx context.Context, id ItemID) (*Metadata, error)

	// FindSimilar returns items similar to seed, most relevant first.
	FindSimilar(ctx context.Context, seed ItemID) ([]Metadata, error)

	// Discover returns items matching the query, most popular first.
	Discover(ctx context.Context, q DiscoverQuery) ([]Metadata, error)
}

// RankingOracle organizes a candidate pool into labeled sections.
type RankingOracle interface {
	Rank(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

// ResultStore persists generated results, one per user.
type ResultStore interface {
	// Upsert replaces any previous result for the same user.
	Upsert(ctx context.Context, result *Result) error

	// Get returns the stored result or an error wrapping ErrNotFound.
	Get(ctx context.Context, userID string) (*Result, error)
}

// EventPublisher announces newly generated results.
type EventPublisher interface {
	PublishGenerated(ctx context.Context, result *Result) error
}

// ArtworkResolver turns an item's artwork reference into a full URL, or ""
// when the item has no artwork.
type ArtworkResolver interface {
	PosterURL(ref *string) string
}

// ItemLookup resolves item metadata; absent means unknown or failed.
type ItemLookup interface {
	Lookup(ctx context.Context, id ItemID) (*Metadata, bool)
}
