// Package asr defines the provider-agnostic speech-to-text client
// interface used by the audio transcriber, a stub backend for offline
// development and tests, an HTTP backend for hosted providers, error
// classification shared across backends, bounded retry with exponential
// backoff, and deterministic cost estimation.
package asr
