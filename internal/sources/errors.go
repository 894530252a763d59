package sources

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for everything that can go wrong between a URL and a
// persisted record. Strategies wrap their failures with one of these so the
// importer can decide whether to fall back, and display code can explain
// what happened without parsing message text.
var (
	ErrNotFound      = errors.New("event not found")
	ErrRateLimited   = errors.New("rate limited")
	ErrUpstream      = errors.New("upstream failure")
	ErrParseFailure  = errors.New("parse failure")
	ErrSecurityBlock = errors.New("blocked by security check")
	ErrTimeout       = errors.New("timeout")
	ErrValidation    = errors.New("validation error")
	ErrStorage       = errors.New("storage error")
	ErrTotalTimeout  = errors.New("total import timeout")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes source context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, source, operation, message string, err error) error {
	detail := buildDetail(source, operation, message)
	if marker == nil {
		marker = ErrUpstream
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTerminal reports whether an error ends the whole import rather than one
// attempt. Falling back to another strategy cannot help these.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTotalTimeout) || errors.Is(err, ErrConfiguration)
}

// Code names the taxonomy bucket an error belongs to, for attempt records
// and structured logs.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTotalTimeout):
		return "total_timeout"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrSecurityBlock):
		return "security_block"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrStorage):
		return "storage"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "unknown"
	}
}

func buildDetail(source, operation, message string) string {
	parts := make([]string, 0, 3)
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, source)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "source failure"
	}
	return strings.Join(parts, ": ")
}
