// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package recommend

// CandidatePool is an insertion-ordered, deduplicated set of candidates.
// The first candidate inserted for an item wins; later duplicates are
// ignored, so bucket order decides provenance. A pool belongs to a single
// pipeline run and is not safe for concurrent mutation.
type CandidatePool struct {
	order []ItemID
	byID  map[ItemID]Candidate
}

// NewCandidatePool returns an empty pool.
func NewCandidatePool() *CandidatePool {
	return &CandidatePool{byID: make(map[ItemID]Candidate)}
}

// MergeBuckets builds a pool from buckets in the order given.
func MergeBuckets(buckets []Bucket) *CandidatePool {
	p := NewCandidatePool()
	for i := range buckets {
		for _, c := range buckets[i].Candidates {
			p.Add(c)
		}
	}
	return p
}

// Add inserts c unless its item is already present. It reports whether c
// was inserted.
func (p *CandidatePool) Add(c Candidate) bool {
	if c.ItemID == "" {
		return false
	}
	if _, exists := p.byID[c.ItemID]; exists {
		return false
	}
	p.byID[c.ItemID] = c
	p.order = append(p.order, c.ItemID)
	return true
}

// Get returns the pooled candidate for id.
func (p *CandidatePool) Get(id ItemID) (Candidate, bool) {
	c, ok := p.byID[id]
	return c, ok
}

// Len returns the number of unique candidates.
func (p *CandidatePool) Len() int {
	return len(p.order)
}

// Minimized returns the oracle projection of the pool in insertion order.
func (p *CandidatePool) Minimized() []MinimizedCandidate {
	out := make([]MinimizedCandidate, 0, len(p.order))
	for _, id := range p.order {
		c := p.byID[id]
		out = append(out, MinimizedCandidate{
			ID:     c.ItemID,
			Title:  c.Title,
			Origin: c.Origin,
			Info:   c.Reason,
		})
	}
	return out
}

// CountByOrigin returns how many pooled candidates came from each strategy.
func (p *CandidatePool) CountByOrigin() map[Origin]int {
	counts := make(map[Origin]int, 3)
	for _, id := range p.order {
		counts[p.byID[id].Origin]++
	}
	return counts
}
