// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// ItemID is the canonical string form of a catalogue item identifier.
// Numeric identifiers from JSON payloads are normalized with strconv so that
// 550 and "550" compare equal.
type ItemID string

// ItemIDFromInt formats a numeric identifier.
func ItemIDFromInt(n int64) ItemID {
	return ItemID(strconv.FormatInt(n, 10))
}

// String implements fmt.Stringer.
func (id ItemID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string or number.
func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}

	if data[0] != '-' && (data[0] < '0' || data[0] > '9') {
		return fmt.Errorf("item id must be a string or number, got %s", data)
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*id = ItemIDFromInt(i)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("item id must be a string or number: %w", err)
	}
	*id = ItemID(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// Rating is one (item, score) pair. Scores are 1..5.
type Rating struct {
	ItemID ItemID `json:"movie_id" validate:"required"`
	Score  int    `json:"score" validate:"min=1,max=5"`
}

// UserProfile is a user's rating history and declared genre preferences in
// the order the profile store returned them. The pipeline never mutates it.
type UserProfile struct {
	ID             string   `json:"id" validate:"required"`
	Ratings        []Rating `json:"ratings" validate:"dive"`
	FavoriteGenres []string `json:"favorite_genres"`
}

// LikedItems returns the items scored at or above threshold, in rating order,
// without duplicates.
func (p *UserProfile) LikedItems(threshold int) []ItemID {
	seen := make(map[ItemID]struct{}, len(p.Ratings))
	liked := make([]ItemID, 0, len(p.Ratings))
	for _, r := range p.Ratings {
		if r.Score < threshold {
			continue
		}
		if _, dup := seen[r.ItemID]; dup {
			continue
		}
		seen[r.ItemID] = struct{}{}
		liked = append(liked, r.ItemID)
	}
	return liked
}

// LikedSet returns the items scored at or above threshold.
func (p *UserProfile) LikedSet(threshold int) map[ItemID]struct{} {
	set := make(map[ItemID]struct{})
	for _, r := range p.Ratings {
		if r.Score >= threshold {
			set[r.ItemID] = struct{}{}
		}
	}
	return set
}

// TopRated returns the highest-scored rating; the first occurrence wins ties.
func (p *UserProfile) TopRated() (Rating, bool) {
	if len(p.Ratings) == 0 {
		return Rating{}, false
	}
	best := p.Ratings[0]
	for _, r := range p.Ratings[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best, true
}

// Metadata is the display information for one item.
type Metadata struct {
	ID          ItemID   `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	Overview    string   `json:"overview,omitempty"`
}

// Origin records which mining strategy produced a candidate.
type Origin string

// Mining strategies.
const (
	OriginCollaborative Origin = "collaborative"
	OriginContentBased  Origin = "content_based"
	OriginTrending      Origin = "trending"
)

// Candidate is a mined item with provenance. Candidates are never modified
// after they enter a pool.
type Candidate struct {
	ItemID      ItemID   `json:"id"`
	Title       string   `json:"title"`
	ArtworkRef  *string  `json:"poster_path,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	Origin      Origin   `json:"origin"`
	Reason      string   `json:"reason"`
}

func candidateFromMetadata(m *Metadata, origin Origin, reason string) Candidate {
	return Candidate{
		ItemID:      m.ID,
		Title:       m.Title,
		ArtworkRef:  m.PosterPath,
		VoteAverage: m.VoteAverage,
		Origin:      origin,
		Reason:      reason,
	}
}

// BucketKey names a mining bucket. The set is closed; the secondary
// trending bucket has its own key whether or not a second genre exists.
type BucketKey string

// Bucket keys in merge order.
const (
	BucketCollaborative     BucketKey = "collaborative"
	BucketContentBased      BucketKey = "content_based"
	BucketTrendingPrimary   BucketKey = "trending_primary"
	BucketTrendingSecondary BucketKey = "trending_secondary"
)

// BucketOrder is the fixed order buckets are merged in.
var BucketOrder = []BucketKey{
	BucketCollaborative,
	BucketContentBased,
	BucketTrendingPrimary,
	BucketTrendingSecondary,
}

// Bucket is the ordered output of one mining strategy.
type Bucket struct {
	Key BucketKey `json:"key"`

	// Genre is the genre the trending bucket was mined for; empty otherwise.
	Genre      string      `json:"genre,omitempty"`
	Candidates []Candidate `json:"candidates"`

	// Err is set when the strategy failed and the bucket was left empty.
	Err error `json:"-"`
}

// MinimizedCandidate is the projection of a candidate sent to the oracle.
type MinimizedCandidate struct {
	ID     ItemID `json:"id"`
	Title  string `json:"title"`
	Origin Origin `json:"origin"`
	Info   string `json:"info"`
}

// UserSummary is the profile digest sent to the oracle.
type UserSummary struct {
	FavoriteGenres []string `json:"favorite_genres"`
	HistoryCount   int      `json:"history_count"`
}

// OracleRequest is the input to RankingOracle.Rank.
type OracleRequest struct {
	UserID     string
	Summary    UserSummary
	Candidates []MinimizedCandidate
}

// OracleResponse carries the oracle's raw JSON payload for hydration.
type OracleResponse struct {
	Raw              []byte
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// HydratedItem is a pool candidate confirmed by the oracle.
type HydratedItem struct {
	ItemID      ItemID   `json:"id"`
	Title       string   `json:"title"`
	ArtworkRef  *string  `json:"poster_path,omitempty"`
	ArtworkURL  string   `json:"poster_url,omitempty"`
	VoteAverage *float64 `json:"vote_average,omitempty"`
	Origin      Origin   `json:"origin_type"`
	AIReason    string   `json:"ai_reason"`
}

// Section is one labeled carousel of hydrated items. Sections are never empty.
type Section struct {
	Title string         `json:"title"`
	Type  string         `json:"type"`
	Items []HydratedItem `json:"movies"`
}

// StatusSuccess is the only status a stored Result carries.
const StatusSuccess = "success"

// Result is the persisted outcome of one pipeline run.
type Result struct {
	UserID            string    `json:"user_id"`
	Status            string    `json:"status"`
	MetaJustification string    `json:"meta_justification"`
	Sections          []Section `json:"sections"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// ItemCount returns the number of items across all sections.
func (r *Result) ItemCount() int {
	n := 0
	for i := range r.Sections {
		n += len(r.Sections[i].Items)
	}
	return n
}

// DiscoverQuery filters a metadata discovery request.
type DiscoverQuery struct {
	// GenreCode restricts results to one genre; empty means unfiltered.
	GenreCode      string
	SortBy         string
	MinVoteCount   int
	MinVoteAverage float64
	Page           int
}
