package ticketmaster

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"eventimporter/internal/events"
	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"CAD": "CA$",
	"AUD": "A$",
	"MXN": "MX$",
	"GBP": "£",
	"EUR": "€",
}

// Source extracts Ticketmaster events through the Discovery API.
type Source struct {
	client *Client
	logger *slog.Logger
}

// NewSource wraps a Discovery client in the extraction contract.
func NewSource(client *Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		client: client,
		logger: logger.With(logging.String(logging.FieldComponent, "source.ticketmaster")),
	}
}

// Name implements sources.Source.
func (s *Source) Name() string { return sourceName }

// Method implements sources.Source.
func (s *Source) Method() sources.Method { return sources.MethodAPI }

// Extract looks the event up by its Discovery ID, falling back to a
// keyword search built from the URL slug. Stale and region-locked IDs 404
// even when the event is still listed, and the slug usually carries enough
// to find it again.
func (s *Source) Extract(ctx context.Context, req sources.Request) (*events.Record, error) {
	if req.EventID == "" {
		return nil, sources.Wrap(sources.ErrNotFound, sourceName, "extract", "no event id in url "+req.URL, nil)
	}

	req.Progress("Looking up event "+req.EventID, 0.2)
	event, err := s.client.EventByID(ctx, req.EventID)
	if err != nil {
		if !errors.Is(err, sources.ErrNotFound) {
			return nil, err
		}
		event = s.searchFallback(ctx, req)
		if event == nil {
			return nil, err
		}
	}

	req.Progress("Processing event data", 0.7)
	record, normErr := events.NormalizeRecord(buildRecord(event, req.URL))
	if normErr != nil {
		return nil, sources.Wrap(sources.ErrValidation, sourceName, "extract", "event "+req.EventID, normErr)
	}
	s.logger.Debug("event extracted",
		logging.String(logging.FieldURL, req.URL),
		logging.String("event_id", event.ID),
		logging.Int("lineup", len(record.Lineup)))
	return record, nil
}

func (s *Source) searchFallback(ctx context.Context, req sources.Request) *Event {
	query := QueryFromURL(req.URL)
	if query.Keyword == "" {
		return nil
	}

	req.Progress("Searching for event by name", 0.4)
	matches, err := s.client.SearchEvents(ctx, query)
	if err != nil {
		s.logger.Warn("event search failed",
			logging.String(logging.FieldURL, req.URL),
			logging.Error(err))
		return nil
	}
	match := bestMatch(matches, query.Keyword)
	if match == nil {
		return nil
	}
	s.logger.Info("matched event via search",
		logging.String(logging.FieldURL, req.URL),
		logging.String("event_id", match.ID),
		logging.String("keyword", query.Keyword))
	return match
}

func buildRecord(event *Event, sourceURL string) *events.Record {
	record := &events.Record{
		Title:     event.Name,
		Genres:    genreNames(event.Classifications),
		Cost:      formatPriceRanges(event.PriceRanges),
		Images:    eventImages(event.Images),
		Promoters: promoterNames(event),
		TicketURL: event.URL,
		SourceURL: sourceURL,
	}
	if venue := event.Venue(); venue != nil {
		record.Venue = venue.Name
		record.Location = venueLocation(venue)
	}
	if event.Embedded != nil {
		for _, attraction := range event.Embedded.Attractions {
			if attraction.Name != "" {
				record.Lineup = append(record.Lineup, attraction.Name)
			}
		}
	}

	var startTime, endTime string
	if start := event.Dates.Start; start != nil {
		record.Date = start.LocalDate
		startTime = start.LocalTime
	}
	if end := event.Dates.End; end != nil {
		record.EndDate = end.LocalDate
		endTime = end.LocalTime
	}
	if startTime != "" || endTime != "" {
		timezone := event.Dates.Timezone
		if timezone == "" {
			timezone = events.TimezoneForLocation(record.Location)
		}
		record.Time = &events.Time{Start: startTime, End: endTime, Timezone: timezone}
	}
	if event.AgeRestrictions != nil && event.AgeRestrictions.LegalAgeEnforced {
		record.MinimumAge = "18+"
	}
	return record
}

func venueLocation(venue *Venue) *events.Location {
	loc := &events.Location{}
	if venue.Address != nil {
		loc.Address = venue.Address.Line1
	}
	if venue.City != nil {
		loc.City = venue.City.Name
	}
	if venue.State != nil {
		loc.State = venue.State.StateCode
	}
	if venue.Country != nil {
		loc.Country = venue.Country.CountryCode
	}
	if point := venue.Location; point != nil {
		lat, latErr := strconv.ParseFloat(point.Latitude, 64)
		lng, lngErr := strconv.ParseFloat(point.Longitude, 64)
		if latErr == nil && lngErr == nil {
			loc.Coordinates = &events.Coordinates{Lat: lat, Lng: lng}
		}
	}
	if loc.IsZero() {
		return nil
	}
	return loc
}

func genreNames(classifications []Classification) []string {
	var names []string
	for _, classification := range classifications {
		if classification.Genre != nil && classification.Genre.Name != "" {
			names = append(names, classification.Genre.Name)
		}
	}
	return names
}

func promoterNames(event *Event) []string {
	var names []string
	for _, promoter := range event.Promoters {
		if promoter.Name != "" {
			names = append(names, promoter.Name)
		}
	}
	if len(names) == 0 && event.Promoter != nil && event.Promoter.Name != "" {
		names = append(names, event.Promoter.Name)
	}
	return names
}

// formatPriceRanges renders the standard price band, or the first one when
// no band is marked standard.
func formatPriceRanges(ranges []PriceRange) string {
	if len(ranges) == 0 {
		return ""
	}
	band := ranges[0]
	for _, candidate := range ranges {
		if strings.EqualFold(candidate.Type, "standard") {
			band = candidate
			break
		}
	}
	code := strings.ToUpper(strings.TrimSpace(band.Currency))
	symbol, known := currencySymbols[code]
	amount := func(value float64) string {
		return symbol + strconv.FormatFloat(value, 'f', -1, 64)
	}
	cost := amount(band.Min)
	if band.Max > band.Min {
		cost += " - " + amount(band.Max)
	}
	if !known && code != "" {
		cost += " " + code
	}
	return cost
}

// eventImages keeps the largest rendition as the full image and the
// smallest as the thumbnail.
func eventImages(images []Image) map[string]string {
	var full, thumbnail *Image
	for i := range images {
		image := &images[i]
		if image.URL == "" {
			continue
		}
		if full == nil || image.Width*image.Height > full.Width*full.Height {
			full = image
		}
		if thumbnail == nil || image.Width*image.Height < thumbnail.Width*thumbnail.Height {
			thumbnail = image
		}
	}
	if full == nil {
		return nil
	}
	return map[string]string{events.ImageFull: full.URL, events.ImageThumbnail: thumbnail.URL}
}
