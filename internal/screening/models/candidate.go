package models

import (
	"cmp"
	"slices"
)

// Provenance records where a candidate came from.
type Provenance struct {
	SourceID     string    `json:"source_id"`
	SourceName   string    `json:"source_name"`
	Issuer       string    `json:"issuer"`
	SourceURL    string    `json:"source_url"`
	Jurisdiction string    `json:"jurisdiction"`
	Authority    Authority `json:"authority"`
}

// MatchCandidate is one scored hit from one source.
type MatchCandidate struct {
	RecordID     string     `json:"record_id"`
	Name         string     `json:"name"`
	Aliases      []string   `json:"aliases,omitempty"`
	MatchRate    int        `json:"match_rate"`
	EntityKind   EntityKind `json:"entity_kind"`
	Tag          Tag        `json:"tag"`
	Jurisdiction string     `json:"jurisdiction,omitempty"`
	Identifiers  []string   `json:"identifiers,omitempty"`
	Remark       string     `json:"remark,omitempty"`
	Associates   []string   `json:"associates,omitempty"`
	Provenance   Provenance `json:"provenance"`
}

// DedupeKey identifies the underlying source record.
func (m MatchCandidate) DedupeKey() string {
	return m.Provenance.SourceID + "\x00" + m.RecordID
}

// CompareCandidates orders by match rate desc, then authority desc, then
// source and name for a stable result.
func CompareCandidates(a, b MatchCandidate) int {
	if c := cmp.Compare(b.MatchRate, a.MatchRate); c != 0 {
		return c
	}
	if c := cmp.Compare(b.Provenance.Authority, a.Provenance.Authority); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Provenance.SourceID, b.Provenance.SourceID); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Name, b.Name); c != 0 {
		return c
	}
	return cmp.Compare(a.RecordID, b.RecordID)
}

// RankCandidates deduplicates by source record keeping the higher rate,
// sorts with CompareCandidates and truncates to topN. topN <= 0 keeps all.
func RankCandidates(in []MatchCandidate, topN int) []MatchCandidate {
	best := make(map[string]int, len(in))
	out := make([]MatchCandidate, 0, len(in))
	for _, c := range in {
		key := c.DedupeKey()
		if idx, ok := best[key]; ok {
			if CompareCandidates(c, out[idx]) < 0 {
				out[idx] = c
			}
			continue
		}
		best[key] = len(out)
		out = append(out, c)
	}
	slices.SortStableFunc(out, CompareCandidates)
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}
