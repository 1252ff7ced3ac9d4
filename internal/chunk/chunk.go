// Package chunk splits total media duration into the fixed-size time windows
// the pipeline processes independently.
package chunk

import "fmt"

// Descriptor is one planned chunk. Boundaries never change once planned.
type Descriptor struct {
	Index int     `json:"index"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns the chunk's length in seconds.
func (d Descriptor) Duration() float64 {
	return d.End - d.Start
}

// Plan splits totalSeconds into consecutive windows of chunkSeconds. The last
// window is clamped to the total duration. A non-positive total yields an
// empty plan.
func Plan(totalSeconds, chunkSeconds float64) ([]Descriptor, error) {
	if chunkSeconds <= 0 {
		return nil, fmt.Errorf("chunk duration must be positive, got %v", chunkSeconds)
	}
	if totalSeconds <= 0 {
		return nil, nil
	}

	var chunks []Descriptor
	for start := 0.0; start < totalSeconds; start += chunkSeconds {
		end := start + chunkSeconds
		if end > totalSeconds {
			end = totalSeconds
		}
		chunks = append(chunks, Descriptor{Index: len(chunks), Start: start, End: end})
	}
	return chunks, nil
}
