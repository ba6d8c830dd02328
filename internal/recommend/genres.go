// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"strings"
	"unicode"
)

// genreCodes maps upper-case genre names to metadata service genre codes.
var genreCodes = map[string]string{
	"ACTION":      "28",
	"ADVENTURE":   "12",
	"ANIMATION":   "16",
	"COMEDY":      "35",
	"CRIME":       "80",
	"DOCUMENTARY": "99",
	"DRAMA":       "18",
	"FAMILY":      "10751",
	"FANTASY":     "14",
	"HISTORY":     "36",
	"HORROR":      "27",
	"MUSIC":       "10402",
	"MYSTERY":     "9648",
	"ROMANCE":     "10749",
	"SCI-FI":      "878",
	"TV MOVIE":    "10770",
	"THRILLER":    "53",
	"WAR":         "10752",
	"WESTERN":     "37",
}

// ResolveGenre maps a genre name to its code. Names are matched
// case-insensitively; an all-digit name is taken as the code itself. ok is
// false for unknown names, which means discovery runs unfiltered.
func ResolveGenre(name string) (code string, ok bool) {
	key := strings.ToUpper(name)
	if code, ok := genreCodes[key]; ok {
		return code, true
	}
	if isDigits(key) {
		return key, true
	}
	return "", false
}

// EffectiveGenres returns at most two genres: the profile's favorites, or
// defaults when it has none.
func EffectiveGenres(favorites, defaults []string) []string {
	genres := favorites
	if len(genres) == 0 {
		genres = defaults
	}
	if len(genres) > 2 {
		genres = genres[:2]
	}
	out := make([]string, len(genres))
	copy(out, genres)
	return out
}

// DisplayGenre renders a genre name in title case: "SCI-FI" -> "Sci-Fi",
// "tv movie" -> "Tv Movie". Every letter that follows a non-letter is
// upper-cased and the rest lower-cased.
func DisplayGenre(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	prevLetter := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) && !prevLetter:
			b.WriteRune(unicode.ToUpper(r))
			prevLetter = true
		case unicode.IsLetter(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
			prevLetter = false
		}
	}
	return b.String()
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
