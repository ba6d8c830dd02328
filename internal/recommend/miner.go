// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/metrics"
)

// Candidate reasons. Trending and content reasons are prefixes completed
// with the genre name or seed id.
const (
	ReasonCollaborative = "Liked by users with similar taste"
	reasonContentFmt    = "Similar to a movie you rated highly (TMDB ID: %s)"
	reasonTrendingFmt   = "Trending now in %s"
)

// Discovery sort order used by the trending strategy.
const sortPopularityDesc = "popularity.desc"

// Miner runs the three candidate strategies for one user.
type Miner struct {
	cfg      *Config
	items    ItemLookup
	metadata MetadataService
	logger   zerolog.Logger
}

// NewMiner creates a miner. items resolves collaborative candidates
// (normally a *MetadataCache); metadata serves similarity and discovery.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewMiner(cfg *Config, items ItemLookup, metadata MetadataService, logger zerolog.Logger) *Miner {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Miner{
		cfg:      cfg,
		items:    items,
		metadata: metadata,
		logger:   logger.With().Str("component", "miner").Logger(),
	}
}

// Mine runs every strategy concurrently and returns one bucket per
// BucketKey in BucketOrder. A failing strategy leaves its bucket empty with
// Err set; Mine itself never fails.
func (m *Miner) Mine(ctx context.Context, target *UserProfile, corpus []UserProfile) []Bucket {
	genres := EffectiveGenres(target.FavoriteGenres, m.cfg.DefaultGenres)

	buckets := make([]Bucket, len(BucketOrder))
	for i, key := range BucketOrder {
		buckets[i] = Bucket{Key: key, Candidates: []Candidate{}}
	}
	buckets[2].Genre = genres[0]
	if len(genres) > 1 {
		buckets[3].Genre = genres[1]
	}

	tasks := []func(context.Context) ([]Candidate, error){
		func(ctx context.Context) ([]Candidate, error) { return m.Collaborative(ctx, target, corpus) },
		func(ctx context.Context) ([]Candidate, error) { return m.ContentBased(ctx, target) },
		func(ctx context.Context) ([]Candidate, error) { return m.Trending(ctx, genres[0]) },
	}
	if len(genres) > 1 {
		tasks = append(tasks, func(ctx context.Context) ([]Candidate, error) { return m.Trending(ctx, genres[1]) })
	}

	log := logging.CtxFrom(ctx, m.logger)
	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			sctx, cancel := context.WithTimeout(ctx, m.cfg.StrategyTimeout)
			defer cancel()

			candidates, err := task(sctx)
			if err != nil {
				log.Warn().Err(err).Str("bucket", string(buckets[i].Key)).Msg("strategy failed, continuing with empty bucket")
				buckets[i].Err = err
				return nil
			}
			if candidates != nil {
				buckets[i].Candidates = candidates
			}
			return nil
		})
	}
	_ = g.Wait() // tasks absorb their own errors

	for i := range buckets {
		metrics.RecordBucket(string(buckets[i].Key), len(buckets[i].Candidates), buckets[i].Err != nil)
	}
	log.Debug().
		Int("collaborative", len(buckets[0].Candidates)).
		Int("content_based", len(buckets[1].Candidates)).
		Int("trending_primary", len(buckets[2].Candidates)).
		Int("trending_secondary", len(buckets[3].Candidates)).
		Strs("genres", genres).
		Msg("mining complete")

	return buckets
}

// Collaborative emits items liked by neighbors (other users sharing at least
// one liked item) that the target has not liked.
//
// Items are considered in corpus order, then in each neighbor's rating
// order. At most CollaborativeCap items are emitted in total across all
// neighbors; items whose metadata is absent are skipped and do not count.
// Because the cap is shared, neighbors earlier in the corpus take precedence.
func (m *Miner) Collaborative(ctx context.Context, target *UserProfile, corpus []UserProfile) ([]Candidate, error) {
	liked := target.LikedSet(m.cfg.LikedThreshold)
	if len(liked) == 0 {
		return nil, nil
	}

	ordered := m.neighborItems(target, liked, corpus)
	limit := m.cfg.CollaborativeCap
	out := make([]Candidate, 0, min(limit, len(ordered)))

	// Look items up a window at a time: the window never exceeds the
	// remaining cap, so every resolved item in it is emitted and the result
	// equals a sequential walk.
	for next := 0; next < len(ordered) && len(out) < limit; {
		end := min(next+limit-len(out), len(ordered))
		window := ordered[next:end]
		next = end

		resolved := make([]*Metadata, len(window))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.cfg.LookupConcurrency)
		for i, id := range window {
			g.Go(func() error {
				if md, ok := m.items.Lookup(gctx, id); ok {
					resolved[i] = md
				}
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collaborative lookup: %w", err)
		}
		for _, md := range resolved {
			if md != nil {
				out = append(out, candidateFromMetadata(md, OriginCollaborative, ReasonCollaborative))
			}
		}
	}

	return out, nil
}

// neighborItems returns, without duplicates, the items neighbors liked that
// the target did not, in corpus then rating order.
func (m *Miner) neighborItems(target *UserProfile, liked map[ItemID]struct{}, corpus []UserProfile) []ItemID {
	seen := make(map[ItemID]struct{})
	var ordered []ItemID

	for i := range corpus {
		other := &corpus[i]
		if other.ID == target.ID {
			continue
		}
		otherLiked := other.LikedItems(m.cfg.LikedThreshold)
		if !sharesAny(otherLiked, liked) {
			continue
		}
		for _, id := range otherLiked {
			if _, mine := liked[id]; mine {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}
	return ordered
}

func sharesAny(items []ItemID, set map[ItemID]struct{}) bool {
	for _, id := range items {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}

// ContentBased emits items similar to the user's top-rated item.
func (m *Miner) ContentBased(ctx context.Context, target *UserProfile) ([]Candidate, error) {
	top, ok := target.TopRated()
	if !ok || top.ItemID == "" {
		return nil, nil
	}

	similar, err := m.metadata.FindSimilar(ctx, top.ItemID)
	if err != nil {
		return nil, fmt.Errorf("find similar to %s: %w", top.ItemID, err)
	}

	reason := fmt.Sprintf(reasonContentFmt, top.ItemID)
	return toCandidates(similar, m.cfg.ContentCap, OriginContentBased, reason), nil
}

// Trending emits popular, well-rated items for a genre. Unknown genre names
// query discovery without a genre filter.
func (m *Miner) Trending(ctx context.Context, genre string) ([]Candidate, error) {
	q := DiscoverQuery{
		SortBy:         sortPopularityDesc,
		MinVoteCount:   m.cfg.TrendingMinVotes,
		MinVoteAverage: m.cfg.TrendingMinRating,
		Page:           1,
	}
	if code, ok := ResolveGenre(genre); ok {
		q.GenreCode = code
	}

	items, err := m.metadata.Discover(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("discover %q: %w", genre, err)
	}

	reason := fmt.Sprintf(reasonTrendingFmt, DisplayGenre(strings.ToUpper(genre)))
	return toCandidates(items, m.cfg.TrendingCap, OriginTrending, reason), nil
}

func toCandidates(items []Metadata, limit int, origin Origin, reason string) []Candidate {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]Candidate, 0, len(items))
	for i := range items {
		out = append(out, candidateFromMetadata(&items[i], origin, reason))
	}
	return out
}
