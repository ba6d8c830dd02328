// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package tmdb

import (
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// maxOverviewRunes bounds the overview kept on Metadata.
const maxOverviewRunes = 100

// Movie is the subset of a TMDB movie object the recommender uses. It is
// shared by /movie/{id}, /movie/{id}/recommendations and /discover/movie.
type Movie struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	PosterPath  *string  `json:"poster_path"`
	VoteAverage *float64 `json:"vote_average"`
	VoteCount   int      `json:"vote_count"`
	Overview    string   `json:"overview"`
	Popularity  float64  `json:"popularity"`
	GenreIDs    []int    `json:"genre_ids,omitempty"`
	ReleaseDate string   `json:"release_date,omitempty"`
}

// PagedMovies is a paginated list response.
type PagedMovies struct {
	Page         int     `json:"page"`
	Results      []Movie `json:"results"`
	TotalPages   int     `json:"total_pages"`
	TotalResults int     `json:"total_results"`
}

// statusResponse is TMDB's error body.
type statusResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Success       bool   `json:"success"`
}

// ToMetadata converts a TMDB movie, truncating the overview.
func (m *Movie) ToMetadata() recommend.Metadata {
	return recommend.Metadata{
		ID:          recommend.ItemIDFromInt(m.ID),
		Title:       m.Title,
		PosterPath:  m.PosterPath,
		VoteAverage: m.VoteAverage,
		Overview:    truncateRunes(m.Overview, maxOverviewRunes),
	}
}

func toMetadataList(movies []Movie) []recommend.Metadata {
	out := make([]recommend.Metadata, 0, len(movies))
	for i := range movies {
		out = append(out, movies[i].ToMetadata())
	}
	return out
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
