package config

const (
	defaultWorkDir             = "~/.local/share/miosub/work"
	defaultLogDir              = "~/.local/share/miosub/logs"
	defaultCacheDir            = "~/.cache/miosub/audio"
	defaultSourceLanguage      = "en"
	defaultTargetLanguage      = "zh-Hans"
	defaultLLMBaseURL          = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel            = "google/gemini-3-flash-preview"
	defaultLLMReferer          = "https://github.com/corvo007/miosub"
	defaultLLMTitle            = "MioSub"
	defaultLLMTimeoutSeconds   = 120
	defaultChunkSeconds        = 300.0
	defaultFastConcurrency     = 4
	defaultHeavyConcurrency    = 2
	defaultMaxRetries          = 2
	defaultOverlapThreshold    = 0.5
	defaultConfidenceThreshold = 0.7
	defaultGlossarySamples     = 3
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			CacheDir: defaultCacheDir,
		},
		Languages: Languages{
			Source: defaultSourceLanguage,
			Target: defaultTargetLanguage,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			Referer:        defaultLLMReferer,
			Title:          defaultLLMTitle,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Pipeline: Pipeline{
			ChunkSeconds:        defaultChunkSeconds,
			FastConcurrency:     defaultFastConcurrency,
			HeavyConcurrency:    defaultHeavyConcurrency,
			MaxRetries:          defaultMaxRetries,
			OverlapThreshold:    defaultOverlapThreshold,
			ConfidenceThreshold: defaultConfidenceThreshold,
		},
		Glossary: Glossary{
			AutoConfirm:  false,
			SampleChunks: defaultGlossarySamples,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
