package subtitle

// Segment is a single timed subtitle unit carrying original/translated text
// and per-segment metadata. IDs are assigned once per run and never reused.
type Segment struct {
	ID    int64   `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`

	Original   string `json:"original"`
	Translated string `json:"translated"`

	// SpeakerID is a weak reference to a speaker profile. Speaker caches the
	// profile's display name and is refreshed whenever the profile is renamed.
	SpeakerID string `json:"speakerId,omitempty"`
	Speaker   string `json:"speaker,omitempty"`

	// Comment is a transient user instruction for a future refinement pass.
	// It is cleared once consumed and never survives reconciliation.
	Comment string `json:"comment,omitempty"`

	// Internal quality fields. These are never semantic payload: they travel
	// across stage boundaries only on a clean 1:1 correspondence.
	AlignmentScore         float64 `json:"alignmentScore,omitempty"`
	LowConfidence          bool    `json:"lowConfidence,omitempty"`
	HasRegressionIssue     bool    `json:"hasRegressionIssue,omitempty"`
	HasCorruptedRangeIssue bool    `json:"hasCorruptedRangeIssue,omitempty"`
}

// Duration returns the segment's length in seconds.
func (s Segment) Duration() float64 {
	d := s.End - s.Start
	if d < 0 {
		return 0
	}
	return d
}

// HasSpeaker reports whether speaker identity has been populated.
func (s Segment) HasSpeaker() bool {
	return s.SpeakerID != "" || s.Speaker != ""
}

// Overlap returns the absolute overlap duration between two time ranges.
func Overlap(aStart, aEnd, bStart, bEnd float64) float64 {
	start := aStart
	if bStart > start {
		start = bStart
	}
	end := aEnd
	if bEnd < end {
		end = bEnd
	}
	if end <= start {
		return 0
	}
	return end - start
}
