// Package web implements the fallback scraping strategy for arbitrary event
// pages. The rendered document is converted to markdown for model
// extraction; when that path fails the strategy retries from a full-page
// screenshot. Bot checks and captcha interstitials abort both paths, since
// a blocked page screenshots just as uselessly as it renders.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"

	"eventimporter/internal/events"
	"eventimporter/internal/images"
	"eventimporter/internal/llm"
	"eventimporter/internal/logging"
	"eventimporter/internal/render"
	"eventimporter/internal/sources"
)

const sourceName = "web"

// Extractor is the model surface the strategy needs: structured field
// extraction from markdown and from page screenshots.
type Extractor interface {
	ExtractFromMarkdown(ctx context.Context, markdown, sourceURL string) (map[string]any, error)
	ExtractFromImage(ctx context.Context, image []byte, mimeType, sourceURL string, kind llm.ImageKind) (map[string]any, error)
}

// Source scrapes event pages that no structured API covers.
type Source struct {
	renderer    render.Renderer
	extractor   Extractor
	finder      *images.Finder
	logger      *slog.Logger
	mdConverter *converter.Converter
}

// NewSource creates the web strategy. The finder may be nil; image
// enhancement is skipped without it.
func NewSource(renderer render.Renderer, extractor Extractor, finder *images.Finder, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		renderer:    renderer,
		extractor:   extractor,
		finder:      finder,
		logger:      logger.With(logging.String(logging.FieldComponent, "source.web")),
		mdConverter: newConverter(),
	}
}

// Name implements sources.Source.
func (s *Source) Name() string { return sourceName }

// Method implements sources.Source.
func (s *Source) Method() sources.Method { return sources.MethodWeb }

// Extract implements sources.Source. The HTML path runs first; any failure
// other than a security block falls back to the screenshot path.
func (s *Source) Extract(ctx context.Context, req sources.Request) (*events.Record, error) {
	req.Progress("Initializing web scraper", 0.05)

	record, err := s.extractFromHTML(ctx, req)
	if err != nil {
		if errors.Is(err, sources.ErrSecurityBlock) || sources.IsTerminal(err) || ctx.Err() != nil {
			return nil, err
		}
		s.logger.Warn("html path failed, trying screenshot",
			logging.String(logging.FieldURL, req.URL),
			logging.Error(err))
		req.Progress("HTML extraction failed, trying screenshot", 0.6)
		record, err = s.extractFromScreenshot(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	s.enhanceImages(ctx, req, record)
	return record, nil
}

func (s *Source) extractFromHTML(ctx context.Context, req sources.Request) (*events.Record, error) {
	req.Progress("Fetching web page HTML", 0.1)
	html, err := s.renderer.HTML(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	if reason, blocked := DetectSecurityPage(html, req.URL); blocked {
		s.logger.Warn("security page detected",
			logging.String(logging.FieldURL, req.URL),
			logging.String("reason", reason))
		return nil, sources.Wrap(sources.ErrSecurityBlock, sourceName, "fetch", reason, nil)
	}

	req.Progress("Cleaning page content", 0.2)
	markdown, err := s.toMarkdown(html, req.URL)
	if err != nil {
		return nil, sources.Wrap(sources.ErrParseFailure, sourceName, "clean", "convert page to markdown", err)
	}

	req.Progress("Extracting event data from page content", 0.3)
	payload, err := s.extractor.ExtractFromMarkdown(ctx, markdown, req.URL)
	if err != nil {
		return nil, wrapModelError("extract", err)
	}
	return s.buildRecord(payload, req.URL)
}

func (s *Source) extractFromScreenshot(ctx context.Context, req sources.Request) (*events.Record, error) {
	req.Progress("Taking page screenshot", 0.65)
	shot, err := s.renderer.Screenshot(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	req.Progress("Extracting event data from screenshot", 0.75)
	payload, err := s.extractor.ExtractFromImage(ctx, shot, "image/png", req.URL, llm.ImageKindScreenshot)
	if err != nil {
		return nil, wrapModelError("screenshot", err)
	}
	return s.buildRecord(payload, req.URL)
}

// buildRecord normalizes a model payload and fills the fields the model
// cannot know: the source URL and, when location allows, the timezone.
func (s *Source) buildRecord(payload map[string]any, sourceURL string) (*events.Record, error) {
	record, err := events.Normalize(payload)
	if err != nil {
		return nil, sources.Wrap(sources.ErrValidation, sourceName, "normalize", "", err)
	}
	record.SourceURL = sourceURL
	if record.Time != nil && record.Time.Timezone == "" && !record.Location.IsZero() {
		record.Time.Timezone = events.TimezoneForLocation(record.Location)
	}
	s.logger.Debug("extracted event",
		logging.String(logging.FieldURL, sourceURL),
		logging.String("title", record.Title))
	return record, nil
}

// enhanceImages attaches candidate artwork when search is configured. A
// winning candidate replaces the record's images; failures and rejections
// never fail the import.
func (s *Source) enhanceImages(ctx context.Context, req sources.Request, record *events.Record) {
	if !s.finder.Enabled() {
		req.Progress("Image enhancement disabled", 0.9)
		return
	}
	req.Progress("Starting image enhancement", 0.85)
	result := s.finder.Enhance(ctx, record, func(message string, fraction float64) {
		req.Progress(message, 0.85+fraction*0.13)
	})
	if result == nil {
		return
	}
	record.ImageSearch = result

	selected := result.Selected
	switch {
	case selected == nil:
		req.Progress("Image enhancement complete", 0.98)
	case selected.Source == images.SourceOriginal:
		req.Progress(fmt.Sprintf("Keeping original image (score: %d)", selected.Score), 0.98)
	default:
		record.Images = map[string]string{
			events.ImageFull:      selected.URL,
			events.ImageThumbnail: selected.URL,
		}
		req.Progress(fmt.Sprintf("Using enhanced image (score: %d)", selected.Score), 0.98)
	}
}

// wrapModelError tags extraction failures: a blown deadline is a timeout,
// anything else means no fields were recoverable.
func wrapModelError(op string, err error) error {
	marker := sources.ErrParseFailure
	if errors.Is(err, context.DeadlineExceeded) {
		marker = sources.ErrTimeout
	}
	return sources.Wrap(marker, sourceName, op, "", err)
}
