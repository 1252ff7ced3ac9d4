// Package media probes source files and caches per-run audio handles. The
// pipeline consumes typed results only; extraction and encoding live outside
// this repository.
package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Info is the probe result the pipeline consumes.
type Info struct {
	Path            string
	DurationSeconds float64
	FormatName      string
	AudioStreams    int
}

// Prober inspects a media file. The ffprobe implementation is the production
// one; tests substitute fakes.
type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

// FFProbe probes media through the ffprobe executable.
type FFProbe struct {
	Binary string
}

type ffprobeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
	} `json:"streams"`
	Format struct {
		Duration   string `json:"duration"`
		FormatName string `json:"format_name"`
	} `json:"format"`
}

// Probe executes ffprobe against the provided path and decodes the response.
func (p FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	binary := strings.TrimSpace(p.Binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Info{}, errors.New("media probe: empty path")
	}

	cmd := exec.CommandContext(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return Info{}, fmt.Errorf("media probe: %w: %s", err, strings.TrimSpace(string(output)))
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(output, &parsed); err != nil {
		return Info{}, fmt.Errorf("media probe parse: %w", err)
	}

	info := Info{Path: path, FormatName: parsed.Format.FormatName}
	if parsed.Format.Duration != "" {
		seconds, err := strconv.ParseFloat(parsed.Format.Duration, 64)
		if err != nil {
			return Info{}, fmt.Errorf("media probe duration %q: %w", parsed.Format.Duration, err)
		}
		info.DurationSeconds = seconds
	}
	for _, stream := range parsed.Streams {
		if strings.EqualFold(stream.CodecType, "audio") {
			info.AudioStreams++
		}
	}
	if info.DurationSeconds <= 0 {
		return Info{}, fmt.Errorf("media probe: no duration reported for %s", path)
	}
	return info, nil
}
