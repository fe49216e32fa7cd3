package asr

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
)

// ClassifyError inspects an arbitrary backend error and returns the
// ErrorKind it represents. Backends that already know their failure mode
// should return a *Error directly instead of relying on this heuristic.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorKindUnknown
	}
	var asrErr *Error
	if errors.As(err, &asrErr) {
		return asrErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorKindTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return ErrorKindTimeout
	}

	text := strings.ToLower(err.Error())
	switch {
	case containsAny(text, "timeout", "timed out"):
		return ErrorKindTimeout
	case containsAny(text, "auth", "unauthorized", "401", "api key", "invalid_api_key"):
		return ErrorKindAuth
	case containsAny(text, "quota", "rate limit", "429", "exceeded"):
		return ErrorKindQuota
	case containsAny(text, "400", "bad request", "invalid"):
		return ErrorKindClient
	case containsAny(text, "500", "502", "503", "504", "server error", "internal"):
		return ErrorKindServer
	default:
		return ErrorKindUnknown
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
