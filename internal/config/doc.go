// Package config loads, normalizes, and validates chatpipe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// an ASR credential variable. The Config type centralizes every knob the
// orchestrator and CLI need: resolver scoring weights, audio normalization
// and chunking parameters, ASR client settings, run directory layout, and
// logging.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
