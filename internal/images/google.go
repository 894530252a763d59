// Package images finds and rates flyer and poster candidates for an event,
// combining Google Custom Search results with the image already on the
// record. Candidates are scored on domain reputation, size, format, and
// how well their surrounding text matches the event.
package images

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultSearchBaseURL = "https://www.googleapis.com/customsearch/v1"

// ccRights keeps results reusable; stock-photo hits are mostly filtered by
// the avoid list, licensing does the rest.
const ccRights = "cc_publicdomain,cc_attribute,cc_sharealike,cc_noncommercial,cc_nonderived"

// SearchResult is one image hit. Title and Snippet describe the page the
// image was found on and feed the context score.
type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

type searchResponse struct {
	Items []SearchResult `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// SearchClient calls the Google Custom Search JSON API in image mode.
type SearchClient struct {
	apiKey     string
	cseID      string
	baseURL    string
	httpClient *http.Client
}

// SearchOption configures a SearchClient.
type SearchOption func(*SearchClient)

// WithSearchHTTPClient overrides the default HTTP client.
func WithSearchHTTPClient(client *http.Client) SearchOption {
	return func(c *SearchClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSearchBaseURL overrides the API endpoint.
func WithSearchBaseURL(baseURL string) SearchOption {
	return func(c *SearchClient) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// NewSearchClient creates a Custom Search client.
func NewSearchClient(apiKey, cseID string, opts ...SearchOption) (*SearchClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("google api key required")
	}
	cseID = strings.TrimSpace(cseID)
	if cseID == "" {
		return nil, errors.New("google cse id required")
	}
	client := &SearchClient{
		apiKey:     apiKey,
		cseID:      cseID,
		baseURL:    defaultSearchBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchImages runs one image query. The API caps page size at 10.
func (c *SearchClient) SearchImages(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("search query required")
	}
	if limit <= 0 || limit > 10 {
		limit = 10
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cseID)
	params.Set("q", query)
	params.Set("searchType", "image")
	params.Set("num", strconv.Itoa(limit))
	params.Set("imgSize", "large")
	params.Set("imgType", "photo")
	params.Set("safe", "off")
	params.Set("fileType", "jpg,png,webp")
	params.Set("rights", ccRights)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if payload.Error != nil {
		return nil, fmt.Errorf("custom search returned %d: %s", payload.Error.Code, payload.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("custom search returned %d (latency=%v)", resp.StatusCode, latency)
	}
	return payload.Items, nil
}
