package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

// Remote renders pages through a browser-rendering HTTP API. The API takes
// a JSON body naming the target URL and the artifacts wanted, authenticated
// with the API key as the basic-auth username.
type Remote struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// RemoteOption configures a Remote renderer.
type RemoteOption func(*Remote)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) RemoteOption {
	return func(r *Remote) {
		if client != nil {
			r.httpClient = client
		}
	}
}

// NewRemote creates a renderer backed by a remote rendering API.
func NewRemote(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger, opts ...RemoteOption) (*Remote, error) {
	if endpoint == "" {
		return nil, errors.New("render endpoint required")
	}
	if apiKey == "" {
		return nil, errors.New("render api key required")
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	remote := &Remote{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With(logging.String(logging.FieldComponent, "render")),
	}
	for _, opt := range opts {
		opt(remote)
	}
	return remote, nil
}

type renderRequest struct {
	URL               string             `json:"url"`
	BrowserHTML       bool               `json:"browserHtml,omitempty"`
	Screenshot        bool               `json:"screenshot,omitempty"`
	ScreenshotOptions *screenshotOptions `json:"screenshotOptions,omitempty"`
}

type screenshotOptions struct {
	FullPage bool `json:"fullPage"`
}

type renderResponse struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"statusCode"`
	BrowserHTML string `json:"browserHtml"`
	Screenshot  string `json:"screenshot"`
}

// HTML renders the page and returns its DOM.
func (r *Remote) HTML(ctx context.Context, pageURL string) (string, error) {
	payload, err := r.do(ctx, "html", renderRequest{URL: pageURL, BrowserHTML: true})
	if err != nil {
		return "", err
	}
	if payload.BrowserHTML == "" {
		return "", sources.Wrap(sources.ErrUpstream, "render", "html", "empty document for "+pageURL, nil)
	}
	return payload.BrowserHTML, nil
}

// Screenshot renders the page and returns a PNG capture of the viewport.
func (r *Remote) Screenshot(ctx context.Context, pageURL string) ([]byte, error) {
	payload, err := r.do(ctx, "screenshot", renderRequest{
		URL:               pageURL,
		Screenshot:        true,
		ScreenshotOptions: &screenshotOptions{FullPage: false},
	})
	if err != nil {
		return nil, err
	}
	if payload.Screenshot == "" {
		return nil, sources.Wrap(sources.ErrUpstream, "render", "screenshot", "empty capture for "+pageURL, nil)
	}
	raw, err := base64.StdEncoding.DecodeString(payload.Screenshot)
	if err != nil {
		return nil, sources.Wrap(sources.ErrParseFailure, "render", "screenshot", "decode capture", err)
	}
	return raw, nil
}

func (r *Remote) do(ctx context.Context, op string, body renderRequest) (*renderResponse, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, sources.Wrap(sources.ErrConfiguration, "render", op, "encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, sources.Wrap(sources.ErrConfiguration, "render", op, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(r.apiKey, "")

	requestStart := time.Now()
	resp, err := r.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := sources.ErrUpstream
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			marker = sources.ErrTimeout
		}
		return nil, sources.Wrap(marker, "render", op, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := sources.ErrUpstream
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			marker = sources.ErrConfiguration
		case http.StatusTooManyRequests:
			marker = sources.ErrRateLimited
		}
		return nil, sources.Wrap(marker, "render", op,
			fmt.Sprintf("render api returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, sources.Wrap(sources.ErrParseFailure, "render", op, "decode response", err)
	}
	r.logger.Debug("page rendered",
		logging.String(logging.FieldURL, body.URL),
		logging.String("op", op),
		logging.Int("status", payload.StatusCode),
		logging.Duration("latency", latency))
	return &payload, nil
}
