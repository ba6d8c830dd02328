// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package oracle

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/juliannp253/Movies-Recommender/internal/recommend"
)

// Fallback section genres when the profile has fewer than two.
const (
	fallbackPrimaryGenre   = "Cinema"
	fallbackSecondaryGenre = "Popular"
)

// TopPicksTitle is the title of the mixed first section.
const TopPicksTitle = "Top Picks for You"

// userMessage is the JSON body of the user turn.
type userMessage struct {
	UserGenres          []string                       `json:"user_genres"`
	AvailableCandidates []recommend.MinimizedCandidate `json:"available_candidates"`
}

// SectionGenres returns the genres for sections two and three.
func SectionGenres(summary recommend.UserSummary) (string, string) {
	first, second := fallbackPrimaryGenre, fallbackSecondaryGenre
	if len(summary.FavoriteGenres) > 0 {
		first = summary.FavoriteGenres[0]
	}
	if len(summary.FavoriteGenres) > 1 {
		second = summary.FavoriteGenres[1]
	}
	return first, second
}

// BuildSystemPrompt renders the curator instructions for one user.
func BuildSystemPrompt(summary recommend.UserSummary) (string, error) {
	profile, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("encode user summary: %w", err)
	}
	genre1, genre2 := SectionGenres(summary)

	var b strings.Builder
	b.WriteString("You are the Head Curator of a premium streaming platform.\n")
	b.WriteString("Your goal is to organize the user's Home Page into 3 SECTIONS (Carousels) ")
	b.WriteString("selecting the best movies from the provided candidates.\n\n")

	b.WriteString("INPUT:\n")
	fmt.Fprintf(&b, "User Profile: %s\n", profile)
	b.WriteString("Candidates: A list of movies pre-selected by algorithms (Collaborative, Content-Based, Trending).\n\n")

	b.WriteString("MANDATORY TASK:\n")
	b.WriteString("You must generate a JSON with exactly 3 sections:\n")
	fmt.Fprintf(&b, "1. '%s': Hybrid selection (Collaborative + Content). The best 8-10 movies for this specific user.\n", TopPicksTitle)
	fmt.Fprintf(&b, "2. 'Best in %s': The best 8-10 options for %s.\n", genre1, genre1)
	fmt.Fprintf(&b, "3. 'Best in %s': The best 8-10 options for %s.\n\n", genre2, genre2)

	b.WriteString("CURATION RULES:\n")
	b.WriteString("- LANGUAGE: All output (titles, reasons) must be in ENGLISH.\n")
	b.WriteString("- You can ONLY recommend IDs that exist in the candidates list.\n")
	b.WriteString("- DO NOT invent titles.\n")
	b.WriteString("- Generate a short, persuasive 'ai_reason' for each movie (e.g., 'Because you enjoyed Inception...').\n")
	b.WriteString("- Prioritize movies with 'origin': 'collaborative' or 'content_based' for section 1.\n\n")

	b.WriteString("OUTPUT JSON FORMAT:\n")
	b.WriteString("{\n")
	b.WriteString("  \"meta_justification\": \"Brief summary of the strategy used\",\n")
	b.WriteString("  \"sections\": [\n")
	b.WriteString("    {\n")
	fmt.Fprintf(&b, "      \"title\": \"%s\",\n", TopPicksTitle)
	b.WriteString("      \"type\": \"mixed\",\n")
	b.WriteString("      \"items\": [ {\"id\": \"12345\", \"ai_reason\": \"...\"}, ... ]\n")
	b.WriteString("    },\n")
	b.WriteString("    { ... section 2 ... },\n")
	b.WriteString("    { ... section 3 ... }\n")
	b.WriteString("  ]\n")
	b.WriteString("}")
	return b.String(), nil
}

// BuildUserMessage encodes the candidates sent with the prompt.
func BuildUserMessage(req recommend.OracleRequest) (string, error) {
	genres := req.Summary.FavoriteGenres
	if genres == nil {
		genres = []string{}
	}
	candidates := req.Candidates
	if candidates == nil {
		candidates = []recommend.MinimizedCandidate{}
	}
	data, err := json.Marshal(userMessage{UserGenres: genres, AvailableCandidates: candidates})
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}
	return string(data), nil
}
