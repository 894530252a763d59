// Package imagesrc implements the last-resort strategy for URLs that point
// at an image rather than a page: flyers, posters, and promo artwork. The
// bytes are downloaded and dimension checked, then the vision model reads
// the event straight off the artwork.
package imagesrc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"eventimporter/internal/events"
	"eventimporter/internal/images"
	"eventimporter/internal/llm"
	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

const sourceName = "image"

// Extractor is the model surface the strategy needs: structured field
// extraction from flyer images.
type Extractor interface {
	ExtractFromImage(ctx context.Context, image []byte, mimeType, sourceURL string, kind llm.ImageKind) (map[string]any, error)
}

// Source reads event data off flyer and poster images.
type Source struct {
	finder    *images.Finder
	extractor Extractor
	logger    *slog.Logger
}

// NewSource creates the image strategy. The finder handles download and
// dimension checks; it does not need search credentials for that.
func NewSource(finder *images.Finder, extractor Extractor, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		finder:    finder,
		extractor: extractor,
		logger:    logger.With(logging.String(logging.FieldComponent, "source.image")),
	}
}

// Name implements sources.Source.
func (s *Source) Name() string { return sourceName }

// Method implements sources.Source.
func (s *Source) Method() sources.Method { return sources.MethodImage }

// Extract implements sources.Source.
func (s *Source) Extract(ctx context.Context, req sources.Request) (*events.Record, error) {
	req.Progress("Downloading image", 0.2)
	data, mimeType, err := s.finder.Fetch(ctx, req.URL)
	if err != nil {
		return nil, wrapFetchError(err)
	}
	if _, _, err := s.finder.Validate(data); err != nil {
		return nil, sources.Wrap(sources.ErrValidation, sourceName, "validate", "", err)
	}

	req.Progress(fmt.Sprintf("Processing %dKB image", len(data)/1024), 0.5)
	payload, err := s.extractor.ExtractFromImage(ctx, data, mimeType, req.URL, llm.ImageKindFlyer)
	if err != nil {
		marker := sources.ErrParseFailure
		if errors.Is(err, context.DeadlineExceeded) {
			marker = sources.ErrTimeout
		}
		return nil, sources.Wrap(marker, sourceName, "extract", "", err)
	}
	return s.buildRecord(payload, req.URL)
}

// buildRecord normalizes the model payload and fills what the model cannot
// know. The source URL doubles as the event image unless the model found
// explicit ones on the flyer.
func (s *Source) buildRecord(payload map[string]any, sourceURL string) (*events.Record, error) {
	record, err := events.Normalize(payload)
	if err != nil {
		return nil, sources.Wrap(sources.ErrValidation, sourceName, "normalize", "", err)
	}
	record.SourceURL = sourceURL
	if len(record.Images) == 0 {
		record.Images = map[string]string{
			events.ImageFull:      sourceURL,
			events.ImageThumbnail: sourceURL,
		}
	}
	if record.Time != nil && record.Time.Timezone == "" && !record.Location.IsZero() {
		record.Time.Timezone = events.TimezoneForLocation(record.Location)
	}
	s.logger.Debug("extracted event",
		logging.String(logging.FieldURL, sourceURL),
		logging.String("title", record.Title))
	return record, nil
}

// wrapFetchError tags download failures: the host not answering in time is
// a timeout, anything else is the image host's problem.
func wrapFetchError(err error) error {
	marker := sources.ErrUpstream
	if errors.Is(err, context.DeadlineExceeded) {
		marker = sources.ErrTimeout
	}
	return sources.Wrap(marker, sourceName, "download", "", err)
}
