package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLanguages()
	c.normalizeLLM()
	c.normalizePipeline()
	c.normalizeGlossary()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLanguages() {
	c.Languages.Source = strings.TrimSpace(c.Languages.Source)
	c.Languages.Target = strings.TrimSpace(c.Languages.Target)
	if c.Languages.Source == "" {
		c.Languages.Source = defaultSourceLanguage
	}
	if c.Languages.Target == "" {
		c.Languages.Target = defaultTargetLanguage
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("MIOSUB_LLM_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.ChunkSeconds <= 0 {
		c.Pipeline.ChunkSeconds = defaultChunkSeconds
	}
	if c.Pipeline.FastConcurrency <= 0 {
		c.Pipeline.FastConcurrency = defaultFastConcurrency
	}
	if c.Pipeline.HeavyConcurrency <= 0 {
		c.Pipeline.HeavyConcurrency = defaultHeavyConcurrency
	}
	if c.Pipeline.MaxRetries < 0 {
		c.Pipeline.MaxRetries = defaultMaxRetries
	}
	if c.Pipeline.OverlapThreshold <= 0 {
		c.Pipeline.OverlapThreshold = defaultOverlapThreshold
	}
	if c.Pipeline.ConfidenceThreshold <= 0 {
		c.Pipeline.ConfidenceThreshold = defaultConfidenceThreshold
	}
}

func (c *Config) normalizeGlossary() {
	if c.Glossary.SampleChunks <= 0 {
		c.Glossary.SampleChunks = defaultGlossarySamples
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
