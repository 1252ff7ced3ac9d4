package subtitle

import (
	"math"
	"strings"
	"testing"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"00:00:00,000", 0},
		{"00:00:04,000", 4},
		{"00:05:46,345", 346.345},
		{"01:02:03,450", 3723.45},
		{"00:00:01.500", 1.5},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.input)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tt.input, err)
		}
		if math.Abs(got-tt.want) > 0.0005 {
			t.Errorf("ParseTimestamp(%q) = %f, want %f", tt.input, got, tt.want)
		}
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "12:34", "aa:bb:cc,ddd", "00:00:00"} {
		if _, err := ParseTimestamp(input); err == nil {
			t.Errorf("ParseTimestamp(%q) succeeded, want error", input)
		}
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	for _, seconds := range []float64{0, 4, 346.345, 3723.45, 86399.999} {
		formatted := FormatTimestamp(seconds)
		parsed, err := ParseTimestamp(formatted)
		if err != nil {
			t.Fatalf("parse %q: %v", formatted, err)
		}
		if math.Abs(parsed-seconds) > 0.0005 {
			t.Errorf("round trip %f -> %q -> %f", seconds, formatted, parsed)
		}
	}
	if got := FormatTimestamp(-3); got != "00:00:00,000" {
		t.Errorf("negative timestamp = %q", got)
	}
}

func TestAssembleOrdersSegments(t *testing.T) {
	segments := []Segment{
		{ID: 3, Start: 10, End: 12},
		{ID: 1, Start: 0, End: 4},
		{ID: 2, Start: 4, End: 10},
	}
	out := Assemble(segments)
	if out[0].ID != 1 || out[1].ID != 2 || out[2].ID != 3 {
		t.Fatalf("unexpected order: %+v", out)
	}
	// input untouched
	if segments[0].ID != 3 {
		t.Fatal("Assemble mutated its input")
	}
}

func TestRenderSRTBilingual(t *testing.T) {
	segments := []Segment{
		{ID: 1, Start: 0, End: 4, Original: "hello", Translated: "你好"},
		{ID: 2, Start: 4, End: 8, Original: "world"},
	}
	out := RenderSRT(segments, true)

	want := "1\n00:00:00,000 --> 00:00:04,000\n你好\nhello\n\n2\n00:00:04,000 --> 00:00:08,000\nworld\n"
	if out != want {
		t.Fatalf("unexpected srt output:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderSRTMonolingual(t *testing.T) {
	segments := []Segment{{ID: 9, Start: 1, End: 2, Original: "hi", Translated: "こんにちは"}}
	out := RenderSRT(segments, false)
	if strings.Contains(out, "hi") {
		t.Fatalf("expected translated-only output, got %q", out)
	}
	if !strings.Contains(out, "こんにちは") {
		t.Fatalf("missing translation in %q", out)
	}
}

func TestOverlap(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     float64
		want                           float64
	}{
		{"full", 0, 4, 0, 4, 4},
		{"partial", 0, 4, 2, 6, 2},
		{"disjoint", 0, 4, 5, 9, 0},
		{"touching", 0, 4, 4, 8, 0},
		{"contained", 0, 10, 2, 5, 3},
	}
	for _, tt := range tests {
		if got := Overlap(tt.aStart, tt.aEnd, tt.bStart, tt.bEnd); got != tt.want {
			t.Errorf("%s: Overlap = %f, want %f", tt.name, got, tt.want)
		}
	}
}
