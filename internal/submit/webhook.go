package submit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"eventimporter/internal/events"
)

const defaultWebhookTimeout = 30 * time.Second

// WebhookSink posts event JSON to a service endpoint with bearer
// authentication. It carries the generic delivery contract ticketing
// services expose; anything beyond a JSON POST needs its own Sink.
type WebhookSink struct {
	service    string
	endpoint   string
	authToken  string
	httpClient *http.Client
}

// WebhookOption customizes the sink.
type WebhookOption func(*WebhookSink)

// WithWebhookHTTPClient overrides the default HTTP client.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(s *WebhookSink) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewWebhookSink builds a live delivery sink. The service name labels ledger
// rows; the endpoint receives one POST per event.
func NewWebhookSink(service, endpoint, authToken string, timeout time.Duration, opts ...WebhookOption) (*WebhookSink, error) {
	service = strings.TrimSpace(service)
	endpoint = strings.TrimSpace(endpoint)
	if service == "" {
		return nil, errors.New("webhook sink: service name required")
	}
	if endpoint == "" {
		return nil, errors.New("webhook sink: endpoint required")
	}
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	sink := &WebhookSink{
		service:    service,
		endpoint:   endpoint,
		authToken:  strings.TrimSpace(authToken),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// Name returns the service label ledger rows carry.
func (s *WebhookSink) Name() string { return s.service }

// Submit posts the event and returns the raw response body. An empty body on
// success is treated as a failed delivery so the ledger never records a
// success without proof.
func (s *WebhookSink) Submit(ctx context.Context, record *events.Record) (string, error) {
	if record == nil {
		return "", errors.New("webhook submit: record required")
	}
	encoded, err := events.CanonicalJSON(record)
	if err != nil {
		return "", fmt.Errorf("webhook submit: encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("webhook submit: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if s.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.authToken)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("webhook submit: http error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("webhook submit: read response: %w", err)
	}
	trimmed := strings.TrimSpace(string(body))
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("webhook submit: http %d: %s", resp.StatusCode, snippet(trimmed))
	}
	if trimmed == "" {
		return "", fmt.Errorf("webhook submit: empty response from %s", s.service)
	}
	return trimmed, nil
}

func snippet(body string) string {
	const limit = 512
	if len(body) <= limit {
		return body
	}
	return body[:limit] + "..."
}
