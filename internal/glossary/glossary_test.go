package glossary

import "testing"

func TestNewMetadataAggregates(t *testing.T) {
	meta := NewMetadata([]ChunkResult{
		{ChunkIndex: 0, Terms: []Item{{Term: "a"}, {Term: "b"}}},
		{ChunkIndex: 2, Terms: []Item{{Term: "c"}}},
		{ChunkIndex: 3, Error: "boom"},
	})
	if meta.TotalTerms != 3 {
		t.Fatalf("TotalTerms = %d, want 3", meta.TotalTerms)
	}
	if !meta.HasFailures {
		t.Fatal("expected HasFailures")
	}
	terms := meta.Terms()
	if len(terms) != 3 || terms[0].Term != "a" || terms[2].Term != "c" {
		t.Fatalf("unexpected terms: %+v", terms)
	}
}

func TestMergeItemsExistingWins(t *testing.T) {
	active := []Item{{Term: "STARRY", Translation: "old"}}
	extracted := []Item{
		{Term: "starry", Translation: "new"},
		{Term: "Bocchi", Translation: "ぼっち"},
	}
	merged := MergeItems(active, extracted)
	if len(merged) != 2 {
		t.Fatalf("expected 2 items, got %+v", merged)
	}
	// Sorted by term: Bocchi, STARRY.
	if merged[0].Term != "Bocchi" {
		t.Fatalf("unexpected order: %+v", merged)
	}
	if merged[1].Translation != "old" {
		t.Fatalf("existing entry must win collisions: %+v", merged[1])
	}
}

func TestMergeItemsSkipsBlankTerms(t *testing.T) {
	merged := MergeItems(nil, []Item{{Term: "  "}, {Term: "ok"}})
	if len(merged) != 1 || merged[0].Term != "ok" {
		t.Fatalf("unexpected merge: %+v", merged)
	}
}
