package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"eventimporter/internal/config"
	"eventimporter/internal/llm"
)

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		APIKey:         "test-key",
		BaseURL:        baseURL,
		Model:          "test/text-model",
		VisionModel:    "test/vision-model",
		Referer:        "https://importer.example.com",
		Title:          "Event Importer",
		TimeoutSeconds: 5,
	}
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestCompleteJSONSendsAuthAndModel(t *testing.T) {
	var gotAuth, gotTitle, gotReferer string
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")
		gotReferer = r.Header.Get("HTTP-Referer")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(completionBody(`{"ok":true}`)))
	}))
	defer server.Close()

	client := llm.NewClient(testConfig(server.URL))
	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("content = %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotTitle != "Event Importer" {
		t.Errorf("x-title = %q", gotTitle)
	}
	if gotReferer != "https://importer.example.com" {
		t.Errorf("referer = %q", gotReferer)
	}
	if gotBody["model"] != "test/text-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	format, _ := gotBody["response_format"].(map[string]any)
	if format["type"] != "json_object" {
		t.Errorf("response_format = %v", gotBody["response_format"])
	}
}

func TestCompleteVisionJSONUsesVisionModelAndDataURL(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(completionBody(`{"title":"Flyer Night"}`)))
	}))
	defer server.Close()

	client := llm.NewClient(testConfig(server.URL))
	content, err := client.CompleteVisionJSON(context.Background(), "system", "user", []byte{0x89, 0x50}, "image/png")
	if err != nil {
		t.Fatalf("CompleteVisionJSON: %v", err)
	}
	if !strings.Contains(content, "Flyer Night") {
		t.Fatalf("content = %q", content)
	}
	if gotBody["model"] != "test/vision-model" {
		t.Errorf("model = %v", gotBody["model"])
	}
	messages, _ := gotBody["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("messages = %v", messages)
	}
	user, _ := messages[1].(map[string]any)
	parts, _ := user["content"].([]any)
	if len(parts) != 2 {
		t.Fatalf("vision content parts = %v", user["content"])
	}
	imagePart, _ := parts[1].(map[string]any)
	ref, _ := imagePart["image_url"].(map[string]any)
	url, _ := ref["url"].(string)
	if !strings.HasPrefix(url, "data:image/png;base64,") {
		t.Errorf("image url = %q", url)
	}
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	}))
	defer server.Close()

	var slept []time.Duration
	client := llm.NewClient(testConfig(server.URL), llm.WithSleeper(func(d time.Duration) {
		slept = append(slept, d)
	}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want [2s]", slept)
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := llm.NewClient(testConfig(server.URL), llm.WithSleeper(func(time.Duration) {}))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err == nil {
		t.Fatal("expected error for 400")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryBacksOffOnServerError(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(completionBody(`{"ok":true}`)))
	}))
	defer server.Close()

	var slept []time.Duration
	client := llm.NewClient(testConfig(server.URL),
		llm.WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		llm.WithRetryBackoff(100*time.Millisecond, time.Second))
	if _, err := client.CompleteJSON(context.Background(), "system", "user"); err != nil {
		t.Fatalf("CompleteJSON: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != 100*time.Millisecond || slept[1] != 200*time.Millisecond {
		t.Fatalf("slept = %v, want doubling from 100ms", slept)
	}
}

func TestExtractFromMarkdownParsesFencedPayload(t *testing.T) {
	fenced := "```json\n{\"title\": \"Basement Night\", \"venue\": \"The Spot\"}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(fenced)))
	}))
	defer server.Close()

	client := llm.NewClient(testConfig(server.URL))
	payload, err := client.ExtractFromMarkdown(context.Background(), "# Basement Night", "https://example.com/e")
	if err != nil {
		t.Fatalf("ExtractFromMarkdown: %v", err)
	}
	if payload["title"] != "Basement Night" || payload["venue"] != "The Spot" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestInferGenres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(completionBody(`{"genres": ["Techno", "Ambient"]}`)))
	}))
	defer server.Close()

	client := llm.NewClient(testConfig(server.URL))
	genres, err := client.InferGenres(context.Background(), "Some Artist", "Some Night", "Some Venue")
	if err != nil {
		t.Fatalf("InferGenres: %v", err)
	}
	if len(genres) != 2 || genres[0] != "Techno" {
		t.Fatalf("genres = %v", genres)
	}
}

func TestAvailableRequiresKey(t *testing.T) {
	client := llm.NewClient(config.LLMConfig{BaseURL: "https://example.com"})
	if client.Available() {
		t.Error("client without key should not be available")
	}
	if _, err := client.CompleteJSON(context.Background(), "s", "u"); err == nil {
		t.Error("CompleteJSON without key should fail")
	}
}
