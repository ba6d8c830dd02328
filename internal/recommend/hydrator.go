// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/juliannp253/Movies-Recommender/internal/metrics"
)

// Defaults for fields the oracle left out.
const (
	DefaultAIReason     = "Recommended for you."
	DefaultSectionTitle = "Recommendations"
	DefaultSectionType  = "general"
)

// ExpectedSections is the number of sections the oracle is asked to return.
const ExpectedSections = 3

// oraclePayload mirrors the oracle's output. Sections and items stay raw so
// one malformed entry does not reject the whole payload.
type oraclePayload struct {
	MetaJustification string            `json:"meta_justification"`
	Sections          []json.RawMessage `json:"sections"`
}

type oracleSection struct {
	Title *string           `json:"title"`
	Type  *string           `json:"type"`
	Items []json.RawMessage `json:"items"`
}

type oracleItem struct {
	ID       ItemID  `json:"id"`
	AIReason *string `json:"ai_reason"`
}

// HydrationReport counts what the hydrator discarded.
type HydrationReport struct {
	SectionsReceived int
	SectionsDropped  int
	ItemsReceived    int
	ItemsDropped     int
}

// Hydrate turns an oracle payload into a Result using only candidates from
// pool. Unknown ids, undecodable entries and sections left empty are
// dropped. The payload must be a JSON object with a "sections" array;
// anything else is a *ValidationError carrying raw.
//
// Hydrate is deterministic for the same payload and pool. UserID and
// GeneratedAt are left for the caller to set.
func Hydrate(raw []byte, pool *CandidatePool) (*Result, *HydrationReport, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, &ValidationError{Reason: "oracle output is not a JSON object", Raw: raw}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, nil, &ValidationError{Reason: "oracle output is not valid JSON", Raw: raw, Err: err}
	}
	if _, ok := fields["sections"]; !ok {
		return nil, nil, &ValidationError{Reason: "oracle output has no sections", Raw: raw}
	}

	var payload oraclePayload
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return nil, nil, &ValidationError{Reason: "oracle sections are malformed", Raw: raw, Err: err}
	}
	// "sections": null decodes to nil; only an array (possibly empty) is accepted.
	if payload.Sections == nil {
		return nil, nil, &ValidationError{Reason: "oracle output has no sections", Raw: raw}
	}

	report := &HydrationReport{SectionsReceived: len(payload.Sections)}
	result := &Result{
		Status:            StatusSuccess,
		MetaJustification: payload.MetaJustification,
		Sections:          make([]Section, 0, len(payload.Sections)),
	}

	for _, rawSection := range payload.Sections {
		var s oracleSection
		if err := json.Unmarshal(rawSection, &s); err != nil {
			report.SectionsDropped++
			continue
		}

		section := Section{
			Title: stringOr(s.Title, DefaultSectionTitle),
			Type:  stringOr(s.Type, DefaultSectionType),
			Items: make([]HydratedItem, 0, len(s.Items)),
		}
		for _, rawItem := range s.Items {
			report.ItemsReceived++
			item, ok := hydrateItem(rawItem, pool)
			if !ok {
				report.ItemsDropped++
				continue
			}
			section.Items = append(section.Items, item)
		}

		if len(section.Items) == 0 {
			report.SectionsDropped++
			continue
		}
		result.Sections = append(result.Sections, section)
	}

	metrics.HydrationDropped.Add(float64(report.ItemsDropped))
	metrics.HydratedSections.Observe(float64(len(result.Sections)))
	return result, report, nil
}

func hydrateItem(raw json.RawMessage, pool *CandidatePool) (HydratedItem, bool) {
	var it oracleItem
	if err := json.Unmarshal(raw, &it); err != nil {
		return HydratedItem{}, false
	}
	c, ok := pool.Get(it.ID)
	if !ok {
		return HydratedItem{}, false
	}
	return HydratedItem{
		ItemID:      c.ItemID,
		Title:       c.Title,
		ArtworkRef:  c.ArtworkRef,
		VoteAverage: c.VoteAverage,
		Origin:      c.Origin,
		AIReason:    stringOr(it.AIReason, DefaultAIReason),
	}, true
}

// stringOr returns *s, or def when s is nil or empty.
func stringOr(s *string, def string) string {
	if s == nil || *s == "" {
		return def
	}
	return *s
}
