package stage

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"miosub/internal/glossary"
	"miosub/internal/services"
	"miosub/internal/services/llm"
	"miosub/internal/subtitle"
)

// Completer is the slice of the model client the stages need.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AIStages implements every stage contract over one chat-completion client.
type AIStages struct {
	client Completer
}

// NewAIStages wires the stage set to a model client.
func NewAIStages(client Completer) *AIStages {
	return &AIStages{client: client}
}

const rawSegmentSchema = `Respond with a JSON array only. Each element:
{"start":"HH:MM:SS,mmm","end":"HH:MM:SS,mmm","text":"...","translation":"...","speaker":"...","score":0.0}
Omit fields you do not produce. No prose outside the JSON.`

// Transcribe asks the model for timed segments covering the chunk's audio.
func (s *AIStages) Transcribe(ctx context.Context, req Request) ([]RawSegment, error) {
	system := fmt.Sprintf(`You are a transcription engine for %s audio.
Transcribe the supplied audio into subtitle segments with absolute timestamps
between %s and %s. Tag each segment with a stable speaker label.
%s`, languageOrAny(req.SourceLanguage),
		subtitle.FormatTimestamp(req.Chunk.Start), subtitle.FormatTimestamp(req.Chunk.End),
		rawSegmentSchema)

	user := fmt.Sprintf("Chunk %d audio (base64):\n%s", req.Chunk.Index, encodeAudio(req))
	return s.completeSegments(ctx, NameTranscribe, system, user)
}

// Refine rewrites segment text for punctuation and sentence boundaries. The
// model may split and merge segments; timestamps stay within the chunk.
func (s *AIStages) Refine(ctx context.Context, req Request) ([]RawSegment, error) {
	system := fmt.Sprintf(`You are a subtitle editor for %s.
Fix punctuation, casing, and sentence boundaries. Split segments that hold two
sentences and merge fragments that form one. Keep speaker labels. Lines of the
form [note: ...] are one-off editing instructions for the segment that
follows: apply them and do not echo them in the output. Keep every
timestamp inside %s..%s.
%s`, languageOrAny(req.SourceLanguage),
		subtitle.FormatTimestamp(req.Chunk.Start), subtitle.FormatTimestamp(req.Chunk.End),
		rawSegmentSchema)

	return s.completeSegments(ctx, NameRefine, system, renderSegmentsPrompt(req.Segments, false))
}

// Align re-times each segment against the audio and scores the fit from 0 to 1.
func (s *AIStages) Align(ctx context.Context, req Request) ([]RawSegment, error) {
	system := fmt.Sprintf(`You are a forced-alignment engine.
Adjust each segment's start and end to match the audio exactly and set "score"
to your alignment confidence between 0 and 1. Do not change text or speakers.
Keep every timestamp inside %s..%s.
%s`, subtitle.FormatTimestamp(req.Chunk.Start), subtitle.FormatTimestamp(req.Chunk.End),
		rawSegmentSchema)

	user := fmt.Sprintf("Segments:\n%s\n\nChunk %d audio (base64):\n%s",
		renderSegmentsPrompt(req.Segments, false), req.Chunk.Index, encodeAudio(req))
	return s.completeSegments(ctx, NameAlign, system, user)
}

// Translate fills the translation of every segment, honoring glossary terms.
func (s *AIStages) Translate(ctx context.Context, req Request) ([]RawSegment, error) {
	var b strings.Builder
	fmt.Fprintf(&b, `You are a subtitle translator from %s to %s.
Set "translation" on every segment. Do not change timestamps, text, or speakers.
`, languageOrAny(req.SourceLanguage), languageOrAny(req.TargetLanguage))
	if len(req.Glossary) > 0 {
		b.WriteString("Use these fixed translations for the listed terms:\n")
		for _, item := range req.Glossary {
			fmt.Fprintf(&b, "- %s => %s", item.Term, item.Translation)
			if item.Note != "" {
				fmt.Fprintf(&b, " (%s)", item.Note)
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(rawSegmentSchema)

	return s.completeSegments(ctx, NameTranslate, b.String(), renderSegmentsPrompt(req.Segments, false))
}

// ExtractTerms pulls recurring names and terms of art out of a chunk's
// transcript for glossary review.
func (s *AIStages) ExtractTerms(ctx context.Context, req Request) ([]glossary.Item, error) {
	system := fmt.Sprintf(`You extract glossary candidates from %s subtitles for
translation into %s: proper names, recurring terms of art, and anything whose
translation must stay consistent. Respond with a JSON array only. Each element:
{"term":"...","translation":"...","note":"..."}
Return an empty array when nothing qualifies.`,
		languageOrAny(req.SourceLanguage), languageOrAny(req.TargetLanguage))

	content, err := s.client.CompleteJSON(ctx, system, renderSegmentsPrompt(req.Segments, true))
	if err != nil {
		return nil, err
	}
	var items []glossary.Item
	if err := llm.DecodeJSON(content, &items); err != nil {
		return nil, services.Wrap(services.ErrValidation, string(NameGlossary), "decode", "model returned unusable glossary payload", err)
	}
	out := items[:0]
	for _, item := range items {
		if strings.TrimSpace(item.Term) != "" {
			out = append(out, item)
		}
	}
	return out, nil
}

func (s *AIStages) completeSegments(ctx context.Context, name Name, system, user string) ([]RawSegment, error) {
	content, err := s.client.CompleteJSON(ctx, system, user)
	if err != nil {
		return nil, err
	}
	var raws []RawSegment
	if err := llm.DecodeJSON(content, &raws); err != nil {
		return nil, services.Wrap(services.ErrValidation, string(name), "decode", "model returned unusable segment payload", err)
	}
	return raws, nil
}

// renderSegmentsPrompt flattens segments into the SRT-like block the prompts
// feed back to the model. textOnly drops timestamps for text-bound stages.
func renderSegmentsPrompt(segments []subtitle.Segment, textOnly bool) string {
	var b strings.Builder
	for _, seg := range segments {
		if textOnly {
			b.WriteString(seg.Original)
			b.WriteString("\n")
			continue
		}
		fmt.Fprintf(&b, "%s --> %s", subtitle.FormatTimestamp(seg.Start), subtitle.FormatTimestamp(seg.End))
		if seg.Speaker != "" {
			fmt.Fprintf(&b, " [%s]", seg.Speaker)
		}
		b.WriteString("\n")
		// A comment rides along exactly once; stage output is rebuilt from
		// raw model segments, so it is gone after this consumption.
		if seg.Comment != "" {
			fmt.Fprintf(&b, "[note: %s]\n", seg.Comment)
		}
		b.WriteString(seg.Original)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func encodeAudio(req Request) string {
	if req.Audio == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(req.Audio.Data)
}

func languageOrAny(tag string) string {
	if tag == "" {
		return "auto-detected"
	}
	return tag
}
