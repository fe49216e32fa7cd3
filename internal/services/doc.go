// Package services defines shared utilities consumed by every pipeline
// stage.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, step names, and message indices
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper and Classify* functions
//     that translate failures into consistent status_reason codes.
//
// Use these helpers when wiring new stage logic so operational behavior
// (error handling, observability, retries) stays uniform across the
// pipeline.
package services
