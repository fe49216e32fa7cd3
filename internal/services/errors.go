// Package services holds the error-taxonomy and context-propagation
// primitives shared by every pipeline stage: sentinel markers, a Wrap
// helper that tags an error with stage/operation context, and a Classify
// function mapping a wrapped error to a message status_reason code.
package services

import (
	"errors"
	"fmt"
	"strings"

	"chatpipe/internal/message"
)

var (
	// ErrExternalTool marks failures from an invoked subprocess (normalizer,
	// ASR backend performing a local call).
	ErrExternalTool = errors.New("external tool error")
	// ErrValidation marks malformed or unsupported input data.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks a misconfigured component (missing credential,
	// unknown provider, incompatible schema version).
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing file or resource.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks a deadline exceeded on an external call.
	ErrTimeout = errors.New("timeout")
	// ErrTransient marks a retryable, non-terminal failure.
	ErrTransient = errors.New("transient failure")
	// ErrInfra marks an infrastructure-level failure (disk I/O, missing
	// directories) that must fail the step and the run, not just an item.
	ErrInfra = errors.New("infrastructure error")
)

// Wrap builds an error that includes stage/operation context while tagging
// it with the provided marker for later classification. marker should be
// one of the exported sentinels above.
func Wrap(marker error, stage, operation, msg string, err error) error {
	detail := buildDetail(stage, operation, msg)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StepLevel reports whether err represents a step/run-level failure
// (config, infra, validation) rather than an absorbable per-item failure (spec §7
// "Propagation policy").
func StepLevel(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInfra) || errors.Is(err, ErrValidation)
}

// ClassifyFfmpeg maps a normalizer failure to the status_reason the
// transcriber should record, distinguishing timeout from any other failure
// (spec §4.2 "Normalize").
func ClassifyFfmpeg(err error) message.StatusReason {
	if errors.Is(err, ErrTimeout) {
		return message.ReasonTimeoutFfmpeg
	}
	return message.ReasonFfmpegFailed
}

// ClassifyChunking maps a chunker failure to a status_reason; unsupported
// source formats get their own dedicated reason, everything else reads as
// a generic ASR failure (spec §4.2 "Chunk").
func ClassifyChunking(unsupportedFormat bool) message.StatusReason {
	if unsupportedFormat {
		return message.ReasonAudioUnsupportedFormat
	}
	return message.ReasonAsrFailed
}

// ClassifyASR maps the last chunk error kind observed during transcription
// to the status_reason the transcriber records (spec §4.3 "client mapping").
func ClassifyASR(lastErrorKind string) message.StatusReason {
	if lastErrorKind == "timeout" {
		return message.ReasonTimeoutAsr
	}
	return message.ReasonAsrFailed
}

func buildDetail(stage, operation, msg string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if msg = strings.TrimSpace(msg); msg != "" {
		parts = append(parts, msg)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
