// Package sources defines the extraction strategy contract shared by the
// API, web, and image sources, together with the error taxonomy the
// importer uses to route failures.
package sources

import (
	"context"

	"eventimporter/internal/events"
)

// Method names how a record was obtained. The importer orders strategies by
// method and records the winning method with each import.
type Method string

const (
	MethodAPI   Method = "api"
	MethodWeb   Method = "web"
	MethodImage Method = "image"
)

// ParseMethod validates a user-supplied method name, typically from a
// --method flag. The empty string means "no preference".
func ParseMethod(raw string) (Method, bool) {
	switch Method(raw) {
	case "":
		return "", true
	case MethodAPI, MethodWeb, MethodImage:
		return Method(raw), true
	default:
		return "", false
	}
}

// Request carries one extraction attempt. Report is optional; strategies
// use it for sub-step progress and may leave it nil.
type Request struct {
	URL      string
	EventID  string
	ImportID string
	Report   func(message string, fraction float64)
}

// Progress forwards a sub-step update when a reporter is attached.
func (r Request) Progress(message string, fraction float64) {
	if r.Report != nil {
		r.Report(message, fraction)
	}
}

// Source extracts canonical event data from one class of URL.
type Source interface {
	// Name identifies the source in logs and attempt records.
	Name() string
	// Method is the import method recorded when this source succeeds.
	Method() Method
	// Extract fetches and normalizes event data for the request. The
	// context carries the per-attempt deadline; implementations must
	// honor cancellation on every network call.
	Extract(ctx context.Context, req Request) (*events.Record, error)
}
