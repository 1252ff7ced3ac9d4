// Package stage defines the per-chunk AI transformation steps (transcribe,
// refine, align, translate, extract terms) as contracts the orchestrator
// wraps with postcheck retries. Implementations treat the model as an opaque
// service; adapters convert raw model output into pipeline segments.
package stage

import (
	"context"
	"sync/atomic"

	"miosub/internal/chunk"
	"miosub/internal/glossary"
	"miosub/internal/media"
	"miosub/internal/subtitle"
)

// Class separates the concurrency pools stages draw from.
type Class string

const (
	// ClassHeavy covers transcription, the expensive audio-bound call.
	ClassHeavy Class = "heavy"
	// ClassFast covers the text-bound calls downstream of transcription.
	ClassFast Class = "fast"
)

// Name identifies a pipeline stage in logs and progress updates.
type Name string

const (
	NameTranscribe Name = "transcribe"
	NameRefine     Name = "refine"
	NameAlign      Name = "align"
	NameTranslate  Name = "translate"
	NameGlossary   Name = "glossary"
)

// Request carries one chunk's input into a stage call.
type Request struct {
	Chunk    chunk.Descriptor
	Audio    *media.AudioHandle
	Segments []subtitle.Segment
	Glossary []glossary.Item

	SourceLanguage string
	TargetLanguage string
}

// RawSegment is the loose shape stage functions return before adaptation.
// Timestamps are SRT strings because that is what the models emit reliably.
type RawSegment struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Text        string  `json:"text"`
	Translation string  `json:"translation,omitempty"`
	Speaker     string  `json:"speaker,omitempty"`
	Score       float64 `json:"score,omitempty"`
}

// Transcriber produces raw segments from a chunk's audio.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) ([]RawSegment, error)
}

// Refiner rewrites segment text (punctuation, sentence boundaries) and may
// split or merge segments.
type Refiner interface {
	Refine(ctx context.Context, req Request) ([]RawSegment, error)
}

// Aligner re-times segments against the audio and scores each result.
type Aligner interface {
	Align(ctx context.Context, req Request) ([]RawSegment, error)
}

// Translator fills the translated payload of each segment.
type Translator interface {
	Translate(ctx context.Context, req Request) ([]RawSegment, error)
}

// Extractor pulls candidate glossary terms out of a chunk's transcript.
type Extractor interface {
	ExtractTerms(ctx context.Context, req Request) ([]glossary.Item, error)
}

// Functions bundles the stage implementations a run uses.
type Functions struct {
	Transcriber Transcriber
	Refiner     Refiner
	Aligner     Aligner
	Translator  Translator
	Extractor   Extractor
}

// IDAllocator hands out segment IDs unique within a run. IDs are never
// reused, including after deletions.
type IDAllocator struct {
	next atomic.Int64
}

// Next returns the next unused ID.
func (a *IDAllocator) Next() int64 {
	return a.next.Add(1)
}
