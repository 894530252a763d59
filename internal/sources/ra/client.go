// Package ra extracts events from the Resident Advisor GraphQL API.
package ra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"eventimporter/internal/sources"
)

const sourceName = "ra"

// getEventQuery mirrors the query the ra.co event page issues itself; the
// endpoint accepts it without authentication as long as the origin headers
// look like a browser.
const getEventQuery = `query GET_EVENT($id: ID!) {
  event(id: $id) {
    id
    title
    content
    contentUrl
    date
    startTime
    endTime
    cost
    flyerFront
    images {
      filename
      type
    }
    venue {
      name
      area {
        name
        country {
          name
        }
      }
    }
    artists {
      name
    }
    promoters {
      name
    }
    genres {
      name
    }
  }
}`

// Event is the GraphQL event payload.
type Event struct {
	ID         string       `json:"id"`
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	ContentURL string       `json:"contentUrl"`
	Date       string       `json:"date"`
	StartTime  string       `json:"startTime"`
	EndTime    string       `json:"endTime"`
	Cost       string       `json:"cost"`
	FlyerFront string       `json:"flyerFront"`
	Images     []EventImage `json:"images"`
	Venue      *Venue       `json:"venue"`
	Artists    []Named      `json:"artists"`
	Promoters  []Named      `json:"promoters"`
	Genres     []Named      `json:"genres"`
}

// EventImage is one entry of the event image gallery.
type EventImage struct {
	Filename string `json:"filename"`
	Type     string `json:"type"`
}

// Venue is the event venue with its geographic area.
type Venue struct {
	Name string `json:"name"`
	Area *Area  `json:"area"`
}

// Area is a city-level region.
type Area struct {
	Name    string `json:"name"`
	Country *Named `json:"country"`
}

// Named is any GraphQL object referenced only by name.
type Named struct {
	Name string `json:"name"`
}

type graphQLRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

type graphQLResponse struct {
	Data struct {
		Event *Event `json:"event"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client calls the Resident Advisor GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a Resident Advisor GraphQL client.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, errors.New("ra endpoint required")
	}
	client := &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Event fetches a single event by its numeric identifier. A null event in
// the response means the identifier does not exist.
func (c *Client) Event(ctx context.Context, eventID string) (*Event, error) {
	body, err := json.Marshal(graphQLRequest{
		OperationName: "GET_EVENT",
		Variables:     map[string]any{"id": eventID},
		Query:         getEventQuery,
	})
	if err != nil {
		return nil, sources.Wrap(sources.ErrUpstream, sourceName, "event", "encode query", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, sources.Wrap(sources.ErrUpstream, sourceName, "event", "build request", err)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://ra.co")
	req.Header.Set("ra-content-language", "en")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := sources.ErrUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			marker = sources.ErrTimeout
		}
		return nil, sources.Wrap(marker, sourceName, "event", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, sources.Wrap(sources.ErrRateLimited, sourceName, "event", fmt.Sprintf("graphql returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, sources.Wrap(sources.ErrUpstream, sourceName, "event", fmt.Sprintf("graphql returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, sources.Wrap(sources.ErrParseFailure, sourceName, "event", "decode response", err)
	}
	if len(payload.Errors) > 0 {
		return nil, sources.Wrap(sources.ErrUpstream, sourceName, "event", "graphql error: "+payload.Errors[0].Message, nil)
	}
	if payload.Data.Event == nil {
		return nil, sources.Wrap(sources.ErrNotFound, sourceName, "event", fmt.Sprintf("event %s does not exist", eventID), nil)
	}
	return payload.Data.Event, nil
}
