// Package render fetches fully rendered page HTML and screenshots, either
// through a remote rendering API or a locally controlled headless browser.
// Event pages are overwhelmingly client-rendered, so plain GET bodies are
// useless to the web strategy; everything goes through a renderer.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"eventimporter/internal/config"
	"eventimporter/internal/logging"
)

// Renderer produces the rendered DOM and screenshots for a page.
type Renderer interface {
	// HTML returns the rendered document for the URL.
	HTML(ctx context.Context, pageURL string) (string, error)
	// Screenshot returns a PNG capture of the rendered page.
	Screenshot(ctx context.Context, pageURL string) ([]byte, error)
}

// Backend names accepted by New.
const (
	BackendRemote  = "remote"
	BackendBrowser = "browser"
)

// New builds the renderer selected by the configuration.
func New(cfg config.Render, logger *slog.Logger) (Renderer, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendRemote:
		return NewRemote(cfg.Endpoint, cfg.APIKey, timeout, logger)
	case BackendBrowser:
		return NewBrowser(cfg.BrowserURL, logger), nil
	default:
		return nil, fmt.Errorf("unknown render backend %q", cfg.Backend)
	}
}
