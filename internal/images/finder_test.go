package images_test

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"eventimporter/internal/config"
	"eventimporter/internal/events"
	"eventimporter/internal/images"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, width, height int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, width, height)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestFinder(t *testing.T, searchURL string) *images.Finder {
	t.Helper()
	search, err := images.NewSearchClient("test-key", "test-cse", images.WithSearchBaseURL(searchURL))
	if err != nil {
		t.Fatalf("NewSearchClient: %v", err)
	}
	return images.NewFinder(config.ImageSearch{}, nil, images.WithSearchClient(search))
}

func TestFinderDisabledWithoutCredentials(t *testing.T) {
	finder := images.NewFinder(config.ImageSearch{}, nil)
	if finder.Enabled() {
		t.Fatal("finder should be disabled without search credentials")
	}
	record := &events.Record{Title: "Warehouse Party"}
	if result := finder.Enhance(context.Background(), record, nil); result != nil {
		t.Fatalf("expected nil result from disabled finder, got %+v", result)
	}
}

func TestEnhanceSelectsBestCandidate(t *testing.T) {
	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/original.png", "/poster.png":
			w.Write(encodePNG(t, 600, 600))
		case "/artist.jpg":
			w.Write(encodeJPEG(t, 800, 800))
		default:
			http.NotFound(w, r)
		}
	}))
	defer imageHost.Close()

	var queries []string
	cse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		w.Write([]byte(`{"items":[` +
			`{"link":"` + imageHost.URL + `/artist.jpg","title":"Octo Octa press photo"},` +
			`{"link":"` + imageHost.URL + `/poster.png","title":"Buy tickets events calendar"}]}`))
	}))
	defer cse.Close()

	finder := newTestFinder(t, cse.URL)
	record := &events.Record{
		Title:  "Octo Octa at Nowadays",
		Venue:  "Nowadays",
		Lineup: []string{"Octo Octa"},
		Images: map[string]string{events.ImageFull: imageHost.URL + "/original.png"},
	}

	var messages []string
	result := finder.Enhance(context.Background(), record, func(message string, fraction float64) {
		messages = append(messages, message)
	})
	if result == nil {
		t.Fatal("expected a search result")
	}
	if len(queries) != 3 {
		t.Fatalf("expected 3 search queries, got %d: %v", len(queries), queries)
	}
	if queries[0] != `"Octo Octa" press photo` {
		t.Fatalf("unexpected first query %q", queries[0])
	}
	if result.Original == nil {
		t.Fatal("expected the original image to be rated")
	}
	if result.Original.Score != 100 || result.Original.Source != "original" {
		t.Fatalf("unexpected original rating: %+v", result.Original)
	}
	if len(result.Candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d: %+v", len(result.Candidates), result.Candidates)
	}
	if result.Selected == nil {
		t.Fatal("expected a selected image")
	}
	if result.Selected.URL != imageHost.URL+"/artist.jpg" {
		t.Fatalf("unexpected selection %q", result.Selected.URL)
	}
	if result.Selected.Score != 119 {
		t.Fatalf("unexpected selected score %d (reason %q)", result.Selected.Score, result.Selected.Reason)
	}
	if !strings.Contains(result.Selected.Reason, "JPEG format") || !strings.Contains(result.Selected.Reason, "matches event text") {
		t.Fatalf("unexpected selected reason %q", result.Selected.Reason)
	}
	if result.Selected.Dimensions != "800x800" {
		t.Fatalf("unexpected dimensions %q", result.Selected.Dimensions)
	}
	if record.ImageSearch != nil {
		t.Fatal("Enhance should not mutate the record")
	}
	if len(messages) == 0 || messages[0] != "Rating original image" {
		t.Fatalf("unexpected progress messages: %v", messages)
	}
}

func TestEnhanceSkipsUnusableCandidates(t *testing.T) {
	var requested []string
	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		switch r.URL.Path {
		case "/small.png":
			w.Write(encodePNG(t, 100, 100))
		case "/good.jpg":
			w.Write(encodeJPEG(t, 600, 600))
		default:
			http.NotFound(w, r)
		}
	}))
	defer imageHost.Close()

	cse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[` +
			`{"link":"https://www.shutterstock.com/stock/party.jpg","title":"Party stock photo"},` +
			`{"link":"` + imageHost.URL + `/small.png","title":"Tiny thumbnail"},` +
			`{"link":"` + imageHost.URL + `/good.jpg","title":"Warehouse Party flyer artwork"}]}`))
	}))
	defer cse.Close()

	finder := newTestFinder(t, cse.URL)
	record := &events.Record{Title: "Warehouse Party", Venue: "Bar Standard"}

	result := finder.Enhance(context.Background(), record, nil)
	if result == nil {
		t.Fatal("expected a search result")
	}
	if result.Original != nil {
		t.Fatalf("record has no image, original should be nil: %+v", result.Original)
	}
	if len(result.Candidates) != 1 {
		t.Fatalf("expected 1 surviving candidate, got %d: %+v", len(result.Candidates), result.Candidates)
	}
	if result.Selected == nil || result.Selected.URL != imageHost.URL+"/good.jpg" {
		t.Fatalf("unexpected selection: %+v", result.Selected)
	}
	if result.Selected.Score != 110 {
		t.Fatalf("unexpected score %d (reason %q)", result.Selected.Score, result.Selected.Reason)
	}
	for _, path := range requested {
		if strings.Contains(path, "stock") {
			t.Fatalf("blacklisted candidate should not be downloaded, requested %v", requested)
		}
	}
}

func TestEnhanceRewardsLargeFiles(t *testing.T) {
	// DecodeConfig stops at the header, so padding after the image stream
	// raises the byte count without changing the dimensions.
	padded := append(encodePNG(t, 600, 600), make([]byte, 150*1024)...)
	imageHost := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(padded)
	}))
	defer imageHost.Close()

	cse := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[{"link":"` + imageHost.URL + `/big.png","title":"Deep house warehouse rave"}]}`))
	}))
	defer cse.Close()

	finder := newTestFinder(t, cse.URL)
	record := &events.Record{Title: "Warehouse Party"}

	result := finder.Enhance(context.Background(), record, nil)
	if result == nil || len(result.Candidates) != 1 {
		t.Fatalf("expected 1 candidate, got %+v", result)
	}
	if result.Candidates[0].Score != 130 {
		t.Fatalf("unexpected score %d (reason %q)", result.Candidates[0].Score, result.Candidates[0].Reason)
	}
	if result.Candidates[0].Reason != "Good size" {
		t.Fatalf("unexpected reason %q", result.Candidates[0].Reason)
	}
}

func TestFetchReturnsMIMEType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(encodeJPEG(t, 600, 600))
	}))
	defer srv.Close()

	finder := images.NewFinder(config.ImageSearch{}, nil)
	data, mime, err := finder.Fetch(context.Background(), srv.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if mime != "image/jpeg" {
		t.Fatalf("expected image/jpeg, got %q", mime)
	}
	if len(data) == 0 {
		t.Fatal("expected image bytes")
	}
}

func TestFetchEnforcesSizeCap(t *testing.T) {
	payload := append(encodePNG(t, 600, 600), make([]byte, 2<<20)...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	finder := images.NewFinder(config.ImageSearch{MaxImageMiB: 2}, nil)
	_, _, err := finder.Fetch(context.Background(), srv.URL+"/huge.png")
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("expected size cap error, got %v", err)
	}
}

func TestFetchRejectsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	finder := images.NewFinder(config.ImageSearch{}, nil)
	_, _, err := finder.Fetch(context.Background(), srv.URL+"/missing.jpg")
	if err == nil || !strings.Contains(err.Error(), "404") {
		t.Fatalf("expected download error, got %v", err)
	}
}

func TestValidateChecksDimensions(t *testing.T) {
	finder := images.NewFinder(config.ImageSearch{MinWidth: 500, MinHeight: 500}, nil)
	if _, _, err := finder.Validate(encodePNG(t, 100, 100)); err == nil {
		t.Fatal("expected error for undersized image")
	}
	width, height, err := finder.Validate(encodePNG(t, 640, 512))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if width != 640 || height != 512 {
		t.Fatalf("unexpected dimensions %dx%d", width, height)
	}
}
