package sources_test

import (
	"errors"
	"fmt"
	"testing"

	"eventimporter/internal/sources"
)

func TestWrapTagsMarkerAndKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := sources.Wrap(sources.ErrUpstream, "web", "render", "fetching page", cause)

	if !errors.Is(err, sources.ErrUpstream) {
		t.Fatalf("wrapped error should match marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error should match cause, got %v", err)
	}
	want := "upstream failure: web: render: fetching page: connection reset"
	if err.Error() != want {
		t.Fatalf("message = %q, want %q", err.Error(), want)
	}
}

func TestWrapDefaultsToUpstream(t *testing.T) {
	err := sources.Wrap(nil, "ra", "query", "", nil)
	if !errors.Is(err, sources.ErrUpstream) {
		t.Fatalf("nil marker should default to upstream, got %v", err)
	}
	if err.Error() != "upstream failure: ra: query" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := sources.Wrap(sources.ErrTotalTimeout, "importer", "run", "budget exhausted", nil)
	if !sources.IsTerminal(terminal) {
		t.Error("total timeout should be terminal")
	}
	if !sources.IsTerminal(sources.ErrConfiguration) {
		t.Error("configuration errors should be terminal")
	}
	if sources.IsTerminal(sources.Wrap(sources.ErrTimeout, "web", "render", "", nil)) {
		t.Error("per-attempt timeout should not be terminal")
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{sources.Wrap(sources.ErrSecurityBlock, "web", "render", "", nil), "security_block"},
		{sources.Wrap(sources.ErrValidation, "web", "extract", "", errors.New("missing title")), "validation"},
		{fmt.Errorf("outer: %w", sources.ErrRateLimited), "rate_limited"},
		{errors.New("mystery"), "unknown"},
	}
	for _, tt := range tests {
		if got := sources.Code(tt.err); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
