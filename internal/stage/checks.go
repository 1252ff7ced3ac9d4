package stage

import (
	"fmt"

	"miosub/internal/chunk"
	"miosub/internal/postcheck"
	"miosub/internal/subtitle"
)

// maxSegmentSeconds is the longest plausible single subtitle. Ranges beyond
// it are treated as corrupted rather than merely unusual.
const maxSegmentSeconds = 30.0

// chunkBoundsSlack tolerates model timestamps drifting slightly past the
// chunk edge before the range counts as corrupted.
const chunkBoundsSlack = 2.0

// Check validates one stage attempt's segments for a chunk. finalAttempt
// gates the visible corrupted-range markers: they must not be applied while
// the result may still be discarded for a retry. Regression markers are
// applied immediately because a retry cannot fix an isolated anomaly.
// LowConfidence is derived here from the alignment score.
func Check(segments []subtitle.Segment, c chunk.Descriptor, finalAttempt bool, confidenceThreshold float64) ([]subtitle.Segment, postcheck.Result) {
	out := make([]subtitle.Segment, len(segments))
	copy(out, segments)

	var issues []postcheck.Issue

	if len(out) == 0 {
		issues = append(issues, postcheck.Issue{
			Kind:      postcheck.IssueEmptyOutput,
			Message:   fmt.Sprintf("chunk %d produced no segments", c.Index),
			Retryable: true,
		})
		return out, postcheck.Invalid(issues...)
	}

	prevStart := -1.0
	for i := range out {
		seg := &out[i]

		if seg.AlignmentScore > 0 && confidenceThreshold > 0 {
			seg.LowConfidence = seg.AlignmentScore < confidenceThreshold
		}

		if corrupted, reason := corruptedRange(*seg, c); corrupted {
			issues = append(issues, postcheck.Issue{
				Kind:      postcheck.IssueCorruptedRange,
				Message:   reason,
				Retryable: true,
				SegmentID: seg.ID,
			})
			if finalAttempt {
				seg.HasCorruptedRangeIssue = true
			}
			continue
		}

		if prevStart >= 0 && seg.Start < prevStart {
			issues = append(issues, postcheck.Issue{
				Kind:      postcheck.IssueTimestampRegression,
				Message:   fmt.Sprintf("segment %d starts at %s before previous %s", seg.ID, subtitle.FormatTimestamp(seg.Start), subtitle.FormatTimestamp(prevStart)),
				Retryable: false,
				SegmentID: seg.ID,
			})
			seg.HasRegressionIssue = true
			continue
		}
		prevStart = seg.Start
	}

	if len(issues) == 0 {
		return out, postcheck.OK()
	}
	return out, postcheck.Invalid(issues...)
}

func corruptedRange(seg subtitle.Segment, c chunk.Descriptor) (bool, string) {
	switch {
	case seg.Start > seg.End:
		return true, fmt.Sprintf("segment %d range inverted: %s > %s", seg.ID, subtitle.FormatTimestamp(seg.Start), subtitle.FormatTimestamp(seg.End))
	case seg.End-seg.Start > maxSegmentSeconds:
		return true, fmt.Sprintf("segment %d spans %.1fs, above the %.0fs ceiling", seg.ID, seg.End-seg.Start, maxSegmentSeconds)
	case seg.Start < c.Start-chunkBoundsSlack || seg.End > c.End+chunkBoundsSlack:
		return true, fmt.Sprintf("segment %d range %s..%s escapes chunk %d bounds", seg.ID, subtitle.FormatTimestamp(seg.Start), subtitle.FormatTimestamp(seg.End), c.Index)
	default:
		return false, ""
	}
}
