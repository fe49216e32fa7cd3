// Package logging builds the structured loggers used across the pipeline:
// a console/JSON slog.Logger for interactive CLI output, and a per-step
// JSON file logger opened under <run_dir>/logs/<step>.log while the
// orchestrator executes that step.
package logging
