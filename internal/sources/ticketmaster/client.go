// Package ticketmaster extracts events from the Ticketmaster Discovery API.
package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eventimporter/internal/sources"
)

const sourceName = "ticketmaster"

// Event is the Discovery API event payload, trimmed to the fields the
// record mapping reads.
type Event struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	Dates           Dates            `json:"dates"`
	Classifications []Classification `json:"classifications"`
	PriceRanges     []PriceRange     `json:"priceRanges"`
	Images          []Image          `json:"images"`
	AgeRestrictions *AgeRestrictions `json:"ageRestrictions"`
	Promoters       []Named          `json:"promoters"`
	Promoter        *Named           `json:"promoter"`
	Embedded        *EventEmbedded   `json:"_embedded"`
}

// Venue returns the first embedded venue, or nil.
func (e *Event) Venue() *Venue {
	if e.Embedded == nil || len(e.Embedded.Venues) == 0 {
		return nil
	}
	return &e.Embedded.Venues[0]
}

// Dates carries the event schedule. Timezone is an IANA zone name.
type Dates struct {
	Start    *DateBoundary `json:"start"`
	End      *DateBoundary `json:"end"`
	Timezone string        `json:"timezone"`
}

// DateBoundary is one end of the schedule in venue-local terms.
type DateBoundary struct {
	LocalDate string `json:"localDate"`
	LocalTime string `json:"localTime"`
}

// Classification buckets the event; only the genre leaf is used.
type Classification struct {
	Genre *Named `json:"genre"`
}

// PriceRange is one advertised price band.
type PriceRange struct {
	Type     string  `json:"type"`
	Currency string  `json:"currency"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Image is one rendition of the event artwork.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AgeRestrictions flags entry limits on the event.
type AgeRestrictions struct {
	LegalAgeEnforced bool `json:"legalAgeEnforced"`
}

// Named is any Discovery object referenced only by name.
type Named struct {
	Name string `json:"name"`
}

// EventEmbedded carries the sub-resources expanded into the event payload.
type EventEmbedded struct {
	Venues      []Venue `json:"venues"`
	Attractions []Named `json:"attractions"`
}

// Venue is the event venue with its address and geo point.
type Venue struct {
	Name     string    `json:"name"`
	Address  *Address  `json:"address"`
	City     *Named    `json:"city"`
	State    *State    `json:"state"`
	Country  *Country  `json:"country"`
	Location *GeoPoint `json:"location"`
}

// Address is the street address of a venue.
type Address struct {
	Line1 string `json:"line1"`
}

// State carries the two-letter state code.
type State struct {
	StateCode string `json:"stateCode"`
}

// Country carries the ISO country code.
type Country struct {
	CountryCode string `json:"countryCode"`
}

// GeoPoint is a venue coordinate pair. Discovery serves both values as
// strings.
type GeoPoint struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

type searchResponse struct {
	Embedded struct {
		Events []Event `json:"events"`
	} `json:"_embedded"`
}

// Client calls the Ticketmaster Discovery API.
type Client struct {
	apiKey     string
	baseURL    string
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

// NewClient creates a Discovery API client.
func NewClient(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("ticketmaster api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("ticketmaster base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// EventByID fetches a single event by its Discovery identifier.
func (c *Client) EventByID(ctx context.Context, eventID string) (*Event, error) {
	endpoint := fmt.Sprintf("%s/events/%s.json?apikey=%s", c.baseURL, url.PathEscape(eventID), url.QueryEscape(c.apiKey))
	var event Event
	if err := c.getJSON(ctx, "event", endpoint, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// SearchEvents runs a keyword search, scoped by state and a day window
// around the query date when those are known.
func (c *Client) SearchEvents(ctx context.Context, query SearchQuery) ([]Event, error) {
	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("keyword", query.Keyword)
	params.Set("size", "50")
	params.Set("sort", "date,asc")
	if query.StateCode != "" {
		params.Set("stateCode", query.StateCode)
	}
	if window := query.dateWindow(); window != "" {
		params.Set("localStartDateTime", window)
	}

	var payload searchResponse
	if err := c.getJSON(ctx, "search", c.baseURL+"/events.json?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return payload.Embedded.Events, nil
}

func (c *Client) getJSON(ctx context.Context, op, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return sources.Wrap(sources.ErrUpstream, sourceName, op, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		marker := sources.ErrUpstream
		if errors.Is(err, context.DeadlineExceeded) {
			marker = sources.ErrTimeout
		}
		return sources.Wrap(marker, sourceName, op, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return sources.Wrap(sources.ErrNotFound, sourceName, op, "discovery returned 404", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return sources.Wrap(sources.ErrRateLimited, sourceName, op, fmt.Sprintf("discovery returned %d", resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return sources.Wrap(sources.ErrUpstream, sourceName, op, fmt.Sprintf("discovery returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return sources.Wrap(sources.ErrParseFailure, sourceName, op, "decode response", err)
	}
	return nil
}
