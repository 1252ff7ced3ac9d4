package stage

import (
	"testing"

	"miosub/internal/chunk"
	"miosub/internal/postcheck"
	"miosub/internal/subtitle"
)

func testChunk() chunk.Descriptor {
	return chunk.Descriptor{Index: 2, Start: 600, End: 900}
}

func TestCheckEmptyOutputIsRetryable(t *testing.T) {
	_, result := Check(nil, testChunk(), false, 0.7)
	if result.Valid {
		t.Fatal("expected invalid result for empty output")
	}
	if !result.Retryable() {
		t.Fatal("empty output should be retryable")
	}
	if result.Issues[0].Kind != postcheck.IssueEmptyOutput {
		t.Fatalf("unexpected issue kind %q", result.Issues[0].Kind)
	}
}

func TestCheckCleanSegmentsPass(t *testing.T) {
	segments := []subtitle.Segment{
		{ID: 1, Start: 600, End: 603, Original: "one", AlignmentScore: 0.9},
		{ID: 2, Start: 603, End: 606, Original: "two", AlignmentScore: 0.95},
	}
	out, result := Check(segments, testChunk(), false, 0.7)
	if !result.Valid {
		t.Fatalf("expected valid result, got issues %v", result.Issues)
	}
	for _, seg := range out {
		if seg.LowConfidence {
			t.Fatalf("segment %d wrongly flagged low confidence", seg.ID)
		}
	}
}

func TestCheckDerivesLowConfidence(t *testing.T) {
	segments := []subtitle.Segment{
		{ID: 1, Start: 600, End: 603, Original: "mumble", AlignmentScore: 0.4},
	}
	out, result := Check(segments, testChunk(), false, 0.7)
	if !result.Valid {
		t.Fatalf("low confidence alone must not invalidate: %v", result.Issues)
	}
	if !out[0].LowConfidence {
		t.Fatal("expected low-confidence flag below threshold")
	}
}

func TestCheckCorruptedRange(t *testing.T) {
	tests := []struct {
		name    string
		segment subtitle.Segment
	}{
		{"inverted", subtitle.Segment{ID: 1, Start: 650, End: 640}},
		{"too long", subtitle.Segment{ID: 1, Start: 600, End: 700}},
		{"escapes chunk", subtitle.Segment{ID: 1, Start: 100, End: 104}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, result := Check([]subtitle.Segment{tt.segment}, testChunk(), false, 0)
			if result.Valid {
				t.Fatal("expected corrupted range to invalidate")
			}
			if !result.Retryable() {
				t.Fatal("corrupted range should be retryable")
			}
			if out[0].HasCorruptedRangeIssue {
				t.Fatal("marker must not be applied before the final attempt")
			}

			out, _ = Check([]subtitle.Segment{tt.segment}, testChunk(), true, 0)
			if !out[0].HasCorruptedRangeIssue {
				t.Fatal("marker missing on final attempt")
			}
		})
	}
}

func TestCheckTimestampRegression(t *testing.T) {
	segments := []subtitle.Segment{
		{ID: 1, Start: 650, End: 653, Original: "later"},
		{ID: 2, Start: 610, End: 613, Original: "earlier"},
	}
	out, result := Check(segments, testChunk(), false, 0)
	if result.Valid {
		t.Fatal("expected regression to invalidate")
	}
	if result.Retryable() {
		t.Fatal("regression alone must not be retryable")
	}
	if !out[1].HasRegressionIssue {
		t.Fatal("regression marker must be applied immediately")
	}
	if out[0].HasRegressionIssue {
		t.Fatal("marker hit the wrong segment")
	}
}

func TestCheckDoesNotMutateInput(t *testing.T) {
	segments := []subtitle.Segment{
		{ID: 1, Start: 650, End: 640, Original: "bad"},
	}
	Check(segments, testChunk(), true, 0)
	if segments[0].HasCorruptedRangeIssue {
		t.Fatal("input slice mutated")
	}
}
