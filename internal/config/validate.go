package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLanguages(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLanguages() error {
	if _, err := language.Parse(c.Languages.Source); err != nil {
		return fmt.Errorf("languages.source: invalid language tag %q: %w", c.Languages.Source, err)
	}
	if _, err := language.Parse(c.Languages.Target); err != nil {
		return fmt.Errorf("languages.target: invalid language tag %q: %w", c.Languages.Target, err)
	}
	if c.Languages.Source == c.Languages.Target {
		return errors.New("languages.source and languages.target must differ")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/miosub/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set MIOSUB_LLM_API_KEY env var or edit %s (create with 'miosub config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.ChunkSeconds < 30 {
		return errors.New("pipeline.chunk_seconds must be at least 30")
	}
	if c.Pipeline.OverlapThreshold > 1 {
		return errors.New("pipeline.overlap_threshold must be between 0 and 1")
	}
	if c.Pipeline.ConfidenceThreshold > 1 {
		return errors.New("pipeline.confidence_threshold must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
