// Package reconcile carries per-segment metadata across stage boundaries.
//
// A later stage may split one prior segment into several, merge several into
// one, or keep a 1:1 correspondence. Matching is an explicit temporal-overlap
// pass: every stage can emit a plain, unannotated result and still end up
// carrying forward speaker identity and, where safe, quality signals.
package reconcile

import (
	"miosub/internal/subtitle"
)

// DefaultOverlapThreshold is the minimum overlap ratio, relative to the
// current segment's duration, for a prior segment to count as a match.
const DefaultOverlapThreshold = 0.5

// Options tunes the matching pass.
type Options struct {
	// OverlapThreshold overrides DefaultOverlapThreshold when positive.
	OverlapThreshold float64
}

func (o Options) threshold() float64 {
	if o.OverlapThreshold > 0 {
		return o.OverlapThreshold
	}
	return DefaultOverlapThreshold
}

// Merge returns curr with metadata inherited from prev. Speaker identity is
// inherited from the dominant match regardless of mapping cardinality;
// internal confidence fields transfer only on a clean 1:1 correspondence.
// Current-stage values always win over inherited ones, and Comment is never
// inherited. Neither input slice is mutated.
func Merge(prev, curr []subtitle.Segment, opts Options) []subtitle.Segment {
	out := make([]subtitle.Segment, len(curr))
	copy(out, curr)
	if len(prev) == 0 || len(curr) == 0 {
		return out
	}

	threshold := opts.threshold()

	type match struct {
		prevIndex int
		overlap   float64
	}

	matchesByCurr := make([][]match, len(curr))
	prevMatchCount := make([]int, len(prev))

	for j := range curr {
		currDur := curr[j].Duration()
		if currDur <= 0 {
			continue
		}
		for i := range prev {
			overlap := subtitle.Overlap(prev[i].Start, prev[i].End, curr[j].Start, curr[j].End)
			if overlap/currDur < threshold {
				continue
			}
			matchesByCurr[j] = append(matchesByCurr[j], match{prevIndex: i, overlap: overlap})
			prevMatchCount[i]++
		}
	}

	for j := range out {
		matches := matchesByCurr[j]
		if len(matches) == 0 {
			continue
		}

		// Dominant match: largest absolute overlap, first seen wins ties.
		dominant := matches[0]
		for _, m := range matches[1:] {
			if m.overlap > dominant.overlap {
				dominant = m
			}
		}
		source := prev[dominant.prevIndex]

		oneToOne := len(matches) == 1 && prevMatchCount[dominant.prevIndex] == 1

		inheritSemantic(&out[j], source)
		if oneToOne {
			inheritInternal(&out[j], source)
		}
	}
	return out
}

// inheritSemantic carries speaker identity. Identity survives splits and
// merges, so cardinality is irrelevant here.
func inheritSemantic(dst *subtitle.Segment, src subtitle.Segment) {
	if !dst.HasSpeaker() && src.HasSpeaker() {
		dst.SpeakerID = src.SpeakerID
		dst.Speaker = src.Speaker
	}
}

// inheritInternal carries confidence and issue markers. A score computed for
// one segment is not meaningfully transferable to a split or merged result,
// so callers gate this on a 1:1 correspondence.
func inheritInternal(dst *subtitle.Segment, src subtitle.Segment) {
	if dst.AlignmentScore == 0 && src.AlignmentScore != 0 {
		dst.AlignmentScore = src.AlignmentScore
		dst.LowConfidence = src.LowConfidence
	}
	if !dst.HasRegressionIssue {
		dst.HasRegressionIssue = src.HasRegressionIssue
	}
	if !dst.HasCorruptedRangeIssue {
		dst.HasCorruptedRangeIssue = src.HasCorruptedRangeIssue
	}
}
