package importer

import (
	"time"

	"eventimporter/internal/events"
	"eventimporter/internal/sources"
	"eventimporter/internal/store"
)

// MethodCache marks results served straight from the event cache, without
// running any strategy.
const MethodCache sources.Method = "cache"

// Attempt records one strategy try. A successful attempt has an empty Code
// and Error; failed attempts keep the taxonomy bucket and message so the
// final result can explain the whole fallback chain.
type Attempt struct {
	Source  string         `json:"source"`
	Method  sources.Method `json:"method"`
	Code    string         `json:"code,omitempty"`
	Error   string         `json:"error,omitempty"`
	Elapsed time.Duration  `json:"elapsed"`
}

// Result aggregates one import run. Record and Entry are set only on
// success. Err holds the decisive failure; earlier strategy failures stay
// in Attempts as diagnostic detail.
type Result struct {
	ImportID   string
	URL        string
	Success    bool
	FromCache  bool
	MethodUsed sources.Method
	ImportTime time.Duration
	Record     *events.Record
	Entry      *store.Entry
	Err        error
	Attempts   []Attempt
}

// ErrorMessage renders Err for display, empty on success.
func (r *Result) ErrorMessage() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}
