// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, chunk indexes, and stage names for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper that classify failures
//     into consistent run outcomes (failed vs cancelled vs input error).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
