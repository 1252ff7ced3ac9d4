package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"miosub/internal/config"
)

func TestLoadDefaultsUsesEnvKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("MIOSUB_LLM_API_KEY", "test-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWork := filepath.Join(tempHome, ".local", "share", "miosub", "work")
	if cfg.Paths.WorkDir != wantWork {
		t.Fatalf("unexpected work dir: got %q want %q", cfg.Paths.WorkDir, wantWork)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.ChunkSeconds != 300 {
		t.Fatalf("unexpected chunk seconds: %v", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.OverlapThreshold != 0.5 {
		t.Fatalf("unexpected overlap threshold: %v", cfg.Pipeline.OverlapThreshold)
	}
	if cfg.Pipeline.ConfidenceThreshold != 0.7 {
		t.Fatalf("unexpected confidence threshold: %v", cfg.Pipeline.ConfidenceThreshold)
	}
	if cfg.Glossary.AutoConfirm {
		t.Fatal("expected auto confirm disabled by default")
	}
}

func TestLoadParsesExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[languages]
source = "ja"
target = "en"

[llm]
api_key = "file-key"

[pipeline]
chunk_seconds = 120.0
max_retries = 1

[glossary]
auto_confirm = true
sample_chunks = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected existing config at %q", path)
	}
	if cfg.Languages.Source != "ja" || cfg.Languages.Target != "en" {
		t.Fatalf("unexpected languages: %+v", cfg.Languages)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("unexpected api key: %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.ChunkSeconds != 120 {
		t.Fatalf("unexpected chunk seconds: %v", cfg.Pipeline.ChunkSeconds)
	}
	if cfg.Pipeline.MaxRetries != 1 {
		t.Fatalf("unexpected max retries: %d", cfg.Pipeline.MaxRetries)
	}
	if !cfg.Glossary.AutoConfirm || cfg.Glossary.SampleChunks != 5 {
		t.Fatalf("unexpected glossary config: %+v", cfg.Glossary)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*config.Config)
		fragment string
	}{
		{
			name:     "missing api key",
			mutate:   func(c *config.Config) { c.LLM.APIKey = "" },
			fragment: "llm.api_key",
		},
		{
			name:     "bad source language",
			mutate:   func(c *config.Config) { c.Languages.Source = "not a tag" },
			fragment: "languages.source",
		},
		{
			name:     "same languages",
			mutate:   func(c *config.Config) { c.Languages.Target = c.Languages.Source },
			fragment: "must differ",
		},
		{
			name:     "chunk too small",
			mutate:   func(c *config.Config) { c.Pipeline.ChunkSeconds = 5 },
			fragment: "chunk_seconds",
		},
		{
			name:     "overlap out of range",
			mutate:   func(c *config.Config) { c.Pipeline.OverlapThreshold = 1.5 },
			fragment: "overlap_threshold",
		},
		{
			name:     "bad log format",
			mutate:   func(c *config.Config) { c.Logging.Format = "pretty" },
			fragment: "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.LLM.APIKey = "key"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.fragment) {
				t.Fatalf("expected %q in error %q", tt.fragment, err.Error())
			}
		})
	}
}

func TestCreateSampleWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[pipeline]") {
		t.Fatal("expected pipeline section in sample config")
	}
}

func TestExpandPathTilde(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	got, err := config.ExpandPath("~/media/file.mkv")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(tempHome, "media", "file.mkv") {
		t.Fatalf("unexpected expansion: %q", got)
	}
}
