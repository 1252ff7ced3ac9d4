package stage

import (
	"testing"

	"miosub/internal/postcheck"
	"miosub/internal/subtitle"
)

func TestAdaptResolvesSpeakers(t *testing.T) {
	raws := []RawSegment{
		{Start: "00:00:01,000", End: "00:00:03,000", Text: "hi", Speaker: "SPEAKER_00"},
		{Start: "00:00:03,500", End: "00:00:05,000", Text: "hello", Speaker: "SPEAKER_01"},
		{Start: "00:00:05,500", End: "00:00:07,000", Text: "again", Speaker: "SPEAKER_00"},
	}
	registry := subtitle.NewSpeakerRegistry()
	alloc := &IDAllocator{}

	segments, issues := Adapt(raws, registry, alloc)
	if len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].SpeakerID != segments[2].SpeakerID {
		t.Fatal("repeated speaker label should map to one profile")
	}
	if segments[0].SpeakerID == segments[1].SpeakerID {
		t.Fatal("distinct labels should map to distinct profiles")
	}
	seen := map[int64]bool{}
	for _, seg := range segments {
		if seen[seg.ID] {
			t.Fatalf("duplicate segment ID %d", seg.ID)
		}
		seen[seg.ID] = true
	}
}

func TestAdaptDropsUnparsableTimestamps(t *testing.T) {
	raws := []RawSegment{
		{Start: "00:00:01,000", End: "00:00:03,000", Text: "good"},
		{Start: "around 4s", End: "00:00:05,000", Text: "bad"},
	}
	segments, issues := Adapt(raws, subtitle.NewSpeakerRegistry(), &IDAllocator{})
	if len(segments) != 1 {
		t.Fatalf("expected 1 surviving segment, got %d", len(segments))
	}
	if len(issues) != 1 || issues[0].Kind != postcheck.IssueMalformedPayload {
		t.Fatalf("expected one malformed-payload issue, got %v", issues)
	}
	if !issues[0].Retryable {
		t.Fatal("malformed payload should be retryable")
	}
}

func TestAdaptTrimsWhitespace(t *testing.T) {
	raws := []RawSegment{
		{Start: "00:00:01,000", End: "00:00:02,000", Text: "  padded \n", Translation: " tr "},
	}
	segments, _ := Adapt(raws, nil, &IDAllocator{})
	if segments[0].Original != "padded" || segments[0].Translated != "tr" {
		t.Fatalf("whitespace not trimmed: %q / %q", segments[0].Original, segments[0].Translated)
	}
}
