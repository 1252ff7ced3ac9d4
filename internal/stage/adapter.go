package stage

import (
	"fmt"
	"strings"

	"miosub/internal/postcheck"
	"miosub/internal/subtitle"
)

// Adapt converts raw stage output into pipeline segments. Raw entries whose
// timestamps cannot be parsed are dropped and reported, not guessed at.
// Speakers are resolved through the run's registry so repeated labels map to
// one profile.
func Adapt(raws []RawSegment, speakers *subtitle.SpeakerRegistry, alloc *IDAllocator) ([]subtitle.Segment, []postcheck.Issue) {
	segments := make([]subtitle.Segment, 0, len(raws))
	var issues []postcheck.Issue

	for i, raw := range raws {
		start, errStart := subtitle.ParseTimestamp(raw.Start)
		end, errEnd := subtitle.ParseTimestamp(raw.End)
		if errStart != nil || errEnd != nil {
			issues = append(issues, postcheck.Issue{
				Kind:      postcheck.IssueMalformedPayload,
				Message:   fmt.Sprintf("entry %d: unparsable timestamps %q..%q", i, raw.Start, raw.End),
				Retryable: true,
			})
			continue
		}

		segment := subtitle.Segment{
			ID:             alloc.Next(),
			Start:          start,
			End:            end,
			Original:       strings.TrimSpace(raw.Text),
			Translated:     strings.TrimSpace(raw.Translation),
			AlignmentScore: raw.Score,
		}
		if speakers != nil {
			if profile := speakers.Ensure(raw.Speaker); profile != nil {
				segment.SpeakerID = profile.ID
				segment.Speaker = profile.Name
			}
		}
		segments = append(segments, segment)
	}
	return segments, issues
}
