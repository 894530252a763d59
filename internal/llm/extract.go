package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ExtractFromMarkdown reads markdown page content and returns the raw event
// payload the model produced. Callers normalize it into a Record; keeping
// the map shape here lets validation decide what survives.
func (c *Client) ExtractFromMarkdown(ctx context.Context, markdown, sourceURL string) (map[string]any, error) {
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, errors.New("llm extract: content required")
	}
	content, err := c.CompleteJSON(ctx, extractionSystemPrompt, buildPagePrompt(markdown, sourceURL))
	if err != nil {
		return nil, err
	}
	return decodeEventPayload(content)
}

// ImageKind tells the vision prompt what it is looking at.
type ImageKind string

const (
	ImageKindFlyer      ImageKind = "flyer"
	ImageKindScreenshot ImageKind = "screenshot"
)

// ExtractFromImage reads a flyer, poster, or page screenshot and returns
// the raw event payload the model produced.
func (c *Client) ExtractFromImage(ctx context.Context, image []byte, mimeType, sourceURL string, kind ImageKind) (map[string]any, error) {
	content, err := c.CompleteVisionJSON(ctx, extractionSystemPrompt, buildImagePrompt(string(kind), sourceURL), image, mimeType)
	if err != nil {
		return nil, err
	}
	return decodeEventPayload(content)
}

// InferGenres asks the text model for an artist's genres given the event
// context. The caller filters the answer against the genre vocabulary.
func (c *Client) InferGenres(ctx context.Context, artist, eventTitle, venue string) ([]string, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return nil, errors.New("llm genres: artist required")
	}
	content, err := c.CompleteJSON(ctx, genreSystemPrompt, buildGenrePrompt(artist, eventTitle, venue))
	if err != nil {
		return nil, err
	}
	var parsed struct {
		Genres []string `json:"genres"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return nil, fmt.Errorf("llm genres: parse payload: %w", err)
	}
	return parsed.Genres, nil
}

func decodeEventPayload(content string) (map[string]any, error) {
	var payload map[string]any
	if err := DecodeJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("llm extract: parse payload: %w", err)
	}
	if len(payload) == 0 {
		return nil, errors.New("llm extract: model returned no fields")
	}
	return payload, nil
}
