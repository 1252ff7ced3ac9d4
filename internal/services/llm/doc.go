// Package llm provides an OpenRouter-compatible chat client for the
// AI-backed stage functions.
//
// This package is used by:
//   - Transcription, refinement, alignment, and translation stages
//   - Glossary extraction over sampled chunks
//
// # Configuration
//
// Requires api_key, model, and optionally base_url, referer, title, timeout.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.CompleteJSON: send system/user prompts, receive JSON response.
// Client.HealthCheck: verify API key and model availability.
//
// # Retry Behaviour
//
// The client retries on HTTP 408/429/5xx errors and network timeouts with
// exponential backoff (base 1s, max 10s, up to 5 attempts by default).
// Context cancellation aborts retries immediately. This transport retry is
// separate from the pipeline's quality-driven postcheck retries: exhausting
// it here surfaces as a terminal stage failure.
package llm
