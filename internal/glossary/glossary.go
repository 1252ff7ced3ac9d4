// Package glossary models extracted terminology and the confirmation gate the
// pipeline blocks on before translation-dependent stages proceed.
package glossary

import (
	"sort"
	"strings"
)

// Item is one glossary entry: a source term and its fixed translation.
type Item struct {
	Term        string `json:"term"`
	Translation string `json:"translation"`
	Note        string `json:"note,omitempty"`
}

// ChunkResult is the extraction outcome for one sampled chunk.
type ChunkResult struct {
	ChunkIndex int    `json:"chunkIndex"`
	Terms      []Item `json:"terms"`
	Error      string `json:"error,omitempty"`
}

// ExtractionMetadata aggregates per-chunk extraction results. It is created
// once per run when extraction completes across the sampled chunks and is
// consumed exactly once by the gate.
type ExtractionMetadata struct {
	Results     []ChunkResult `json:"results"`
	TotalTerms  int           `json:"totalTerms"`
	HasFailures bool          `json:"hasFailures"`
}

// NewMetadata aggregates chunk results into extraction metadata.
func NewMetadata(results []ChunkResult) ExtractionMetadata {
	meta := ExtractionMetadata{Results: results}
	for _, result := range results {
		meta.TotalTerms += len(result.Terms)
		if result.Error != "" {
			meta.HasFailures = true
		}
	}
	return meta
}

// Terms flattens all extracted terms in chunk order.
func (m ExtractionMetadata) Terms() []Item {
	items := make([]Item, 0, m.TotalTerms)
	for _, result := range m.Results {
		items = append(items, result.Terms...)
	}
	return items
}

// MergeItems merges extracted terms into the active glossary. Existing
// entries win on term collisions (case-insensitive); the result is sorted by
// term so the merge is deterministic.
func MergeItems(active, extracted []Item) []Item {
	seen := make(map[string]struct{}, len(active))
	merged := make([]Item, 0, len(active)+len(extracted))
	for _, item := range active {
		key := strings.ToLower(strings.TrimSpace(item.Term))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	for _, item := range extracted {
		key := strings.ToLower(strings.TrimSpace(item.Term))
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Term < merged[j].Term })
	return merged
}
