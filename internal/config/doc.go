// Package config loads, normalizes, and validates miosub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MIOSUB_LLM_API_KEY. The Config type centralizes every knob the pipeline and
// CLI need, from chunk sizing and concurrency bounds to quality thresholds.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
