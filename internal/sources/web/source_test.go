package web_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventimporter/internal/config"
	"eventimporter/internal/images"
	"eventimporter/internal/llm"
	"eventimporter/internal/sources"
	"eventimporter/internal/sources/web"
)

type stubRenderer struct {
	html            string
	htmlErr         error
	screenshot      []byte
	screenshotErr   error
	htmlCalls       int
	screenshotCalls int
}

func (r *stubRenderer) HTML(ctx context.Context, pageURL string) (string, error) {
	r.htmlCalls++
	return r.html, r.htmlErr
}

func (r *stubRenderer) Screenshot(ctx context.Context, pageURL string) ([]byte, error) {
	r.screenshotCalls++
	return r.screenshot, r.screenshotErr
}

type stubExtractor struct {
	pagePayload  map[string]any
	pageErr      error
	imagePayload map[string]any
	imageErr     error

	gotMarkdown string
	gotImage    []byte
	gotMime     string
	gotKind     llm.ImageKind
}

func (e *stubExtractor) ExtractFromMarkdown(ctx context.Context, markdown, sourceURL string) (map[string]any, error) {
	e.gotMarkdown = markdown
	if e.pageErr != nil {
		return nil, e.pageErr
	}
	return e.pagePayload, nil
}

func (e *stubExtractor) ExtractFromImage(ctx context.Context, img []byte, mimeType, sourceURL string, kind llm.ImageKind) (map[string]any, error) {
	e.gotImage = img
	e.gotMime = mimeType
	e.gotKind = kind
	if e.imageErr != nil {
		return nil, e.imageErr
	}
	return e.imagePayload, nil
}

func newRequest(url string, messages *[]string) sources.Request {
	return sources.Request{URL: url, Report: func(message string, fraction float64) {
		if messages != nil {
			*messages = append(*messages, message)
		}
	}}
}

func TestSourceIdentity(t *testing.T) {
	s := web.NewSource(nil, nil, nil, nil)
	if s.Name() != "web" {
		t.Fatalf("unexpected name %q", s.Name())
	}
	if s.Method() != sources.MethodWeb {
		t.Fatalf("unexpected method %q", s.Method())
	}
}

func TestExtractFromHTMLPath(t *testing.T) {
	renderer := &stubRenderer{html: eventPageHTML}
	ext := &stubExtractor{pagePayload: map[string]any{
		"title":    "Four Tet All Night",
		"date":     "2026-09-12",
		"time":     map[string]any{"start": "22:00"},
		"location": map[string]any{"city": "Los Angeles", "country": "United States"},
	}}
	s := web.NewSource(renderer, ext, nil, nil)

	var messages []string
	record, err := s.Extract(context.Background(), newRequest("https://whp.example.com/events/four-tet", &messages))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if record.Title != "Four Tet All Night" {
		t.Fatalf("unexpected title %q", record.Title)
	}
	if record.SourceURL != "https://whp.example.com/events/four-tet" {
		t.Fatalf("unexpected source url %q", record.SourceURL)
	}
	if record.Time == nil || record.Time.Timezone != "America/Los_Angeles" {
		t.Fatalf("timezone not filled from location: %+v", record.Time)
	}
	if renderer.screenshotCalls != 0 {
		t.Fatalf("screenshot path should not run, called %d times", renderer.screenshotCalls)
	}
	if !strings.Contains(ext.gotMarkdown, "Four Tet") || !strings.Contains(ext.gotMarkdown, "Warehouse Project") {
		t.Fatalf("markdown lost page content:\n%s", ext.gotMarkdown)
	}
	if strings.Contains(ext.gotMarkdown, "<p>") {
		t.Fatalf("extractor received html, not markdown:\n%s", ext.gotMarkdown)
	}
	if len(messages) == 0 || messages[0] != "Initializing web scraper" {
		t.Fatalf("unexpected progress messages: %v", messages)
	}
}

func TestExtractSecurityBlockSkipsScreenshot(t *testing.T) {
	renderer := &stubRenderer{html: `<html><head><title>Hold on</title></head><body><p>Rate limit
exceeded. You have sent too many requests from this address. Try again later.</p></body></html>`}
	s := web.NewSource(renderer, &stubExtractor{}, nil, nil)

	_, err := s.Extract(context.Background(), newRequest("https://tickets.example.com/e/1", nil))
	if !errors.Is(err, sources.ErrSecurityBlock) {
		t.Fatalf("expected security block, got %v", err)
	}
	if renderer.screenshotCalls != 0 {
		t.Fatalf("screenshot fallback must not run on security blocks, called %d times", renderer.screenshotCalls)
	}
}

func TestExtractFallsBackToScreenshot(t *testing.T) {
	renderer := &stubRenderer{html: eventPageHTML, screenshot: []byte{0x89, 'P', 'N', 'G'}}
	ext := &stubExtractor{
		pageErr:      errors.New("model refused"),
		imagePayload: map[string]any{"title": "Rooftop Rave", "venue": "El Techo"},
	}
	s := web.NewSource(renderer, ext, nil, nil)

	var messages []string
	record, err := s.Extract(context.Background(), newRequest("https://venue.example.com/rave", &messages))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if record.Title != "Rooftop Rave" || record.Venue != "El Techo" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if renderer.screenshotCalls != 1 {
		t.Fatalf("expected 1 screenshot call, got %d", renderer.screenshotCalls)
	}
	if ext.gotKind != llm.ImageKindScreenshot {
		t.Fatalf("unexpected image kind %q", ext.gotKind)
	}
	if ext.gotMime != "image/png" {
		t.Fatalf("unexpected mime type %q", ext.gotMime)
	}
	if !bytes.Equal(ext.gotImage, renderer.screenshot) {
		t.Fatal("screenshot bytes not passed to the extractor")
	}
	found := false
	for _, message := range messages {
		if strings.Contains(message, "trying screenshot") {
			found = true
		}
	}
	if !found {
		t.Fatalf("fallback progress not reported: %v", messages)
	}
}

func TestExtractInvalidPayloadFallsBack(t *testing.T) {
	renderer := &stubRenderer{html: eventPageHTML, screenshot: []byte{1, 2, 3}}
	ext := &stubExtractor{
		pagePayload:  map[string]any{"venue": "Nowhere"},
		imagePayload: map[string]any{"title": "Open Air"},
	}
	s := web.NewSource(renderer, ext, nil, nil)

	record, err := s.Extract(context.Background(), newRequest("https://venue.example.com/openair", nil))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if record.Title != "Open Air" {
		t.Fatalf("unexpected title %q", record.Title)
	}
	if renderer.screenshotCalls != 1 {
		t.Fatalf("expected screenshot fallback after validation failure, got %d calls", renderer.screenshotCalls)
	}
}

func TestExtractBothPathsFail(t *testing.T) {
	renderer := &stubRenderer{html: eventPageHTML, screenshot: []byte{1}}
	ext := &stubExtractor{
		pageErr:  errors.New("model refused"),
		imageErr: errors.New("vision refused"),
	}
	s := web.NewSource(renderer, ext, nil, nil)

	_, err := s.Extract(context.Background(), newRequest("https://venue.example.com/x", nil))
	if !errors.Is(err, sources.ErrParseFailure) {
		t.Fatalf("expected parse failure, got %v", err)
	}
}

func TestExtractAppliesEnhancedImage(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 600, 600)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(buf.Bytes())
	}))
	defer imageHost.Close()

	cse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"link":"` + imageHost.URL + `/flyer.jpg","title":"Warehouse Party flyer"}]}`))
	}))
	defer cse.Close()

	search, err := images.NewSearchClient("key", "cse", images.WithSearchBaseURL(cse.URL))
	if err != nil {
		t.Fatalf("NewSearchClient: %v", err)
	}
	finder := images.NewFinder(config.ImageSearch{}, nil, images.WithSearchClient(search))

	renderer := &stubRenderer{html: eventPageHTML}
	ext := &stubExtractor{pagePayload: map[string]any{"title": "Warehouse Party"}}
	s := web.NewSource(renderer, ext, finder, nil)

	var messages []string
	record, err := s.Extract(context.Background(), newRequest("https://venue.example.com/wp", &messages))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if record.ImageSearch == nil || record.ImageSearch.Selected == nil {
		t.Fatalf("image search result not attached: %+v", record.ImageSearch)
	}
	wantURL := imageHost.URL + "/flyer.jpg"
	if record.Images["full"] != wantURL || record.Images["thumbnail"] != wantURL {
		t.Fatalf("winning candidate not applied to images: %+v", record.Images)
	}
	if record.ImageSearch.Selected.Score != 110 {
		t.Fatalf("unexpected selected score %d", record.ImageSearch.Selected.Score)
	}
	found := false
	for _, message := range messages {
		if strings.Contains(message, "Using enhanced image (score: 110)") {
			found = true
		}
	}
	if !found {
		t.Fatalf("enhancement result not reported: %v", messages)
	}
}

func TestExtractSkipsEnhancementWithoutFinder(t *testing.T) {
	renderer := &stubRenderer{html: eventPageHTML}
	ext := &stubExtractor{pagePayload: map[string]any{"title": "Warehouse Party"}}
	s := web.NewSource(renderer, ext, nil, nil)

	var messages []string
	record, err := s.Extract(context.Background(), newRequest("https://venue.example.com/wp", &messages))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if record.ImageSearch != nil {
		t.Fatalf("enhancement should be skipped without a finder: %+v", record.ImageSearch)
	}
	found := false
	for _, message := range messages {
		if strings.Contains(message, "Image enhancement disabled") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected disabled notice in progress: %v", messages)
	}
}
