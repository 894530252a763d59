package ra

import (
	"context"
	"log/slog"

	"eventimporter/internal/events"
	"eventimporter/internal/logging"
	"eventimporter/internal/sources"
)

// Source extracts Resident Advisor events through the GraphQL API.
type Source struct {
	client *Client
	logger *slog.Logger
}

// NewSource wraps a GraphQL client in the extraction contract.
func NewSource(client *Client, logger *slog.Logger) *Source {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Source{
		client: client,
		logger: logger.With(logging.String(logging.FieldComponent, "source.ra")),
	}
}

// Name implements sources.Source.
func (s *Source) Name() string { return sourceName }

// Method implements sources.Source.
func (s *Source) Method() sources.Method { return sources.MethodAPI }

// Extract fetches the event behind req.EventID and maps it onto the
// canonical record.
func (s *Source) Extract(ctx context.Context, req sources.Request) (*events.Record, error) {
	if req.EventID == "" {
		return nil, sources.Wrap(sources.ErrNotFound, sourceName, "extract", "no event id in url "+req.URL, nil)
	}

	req.Progress("Fetching event "+req.EventID+" from the RA API", 0.3)
	event, err := s.client.Event(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	req.Progress("Parsing event data", 0.7)
	record, err := events.NormalizeRecord(buildRecord(event, req.URL))
	if err != nil {
		return nil, sources.Wrap(sources.ErrValidation, sourceName, "extract", "event "+req.EventID, err)
	}
	s.logger.Debug("event extracted",
		logging.String(logging.FieldURL, req.URL),
		logging.String("event_id", req.EventID),
		logging.Int("lineup", len(record.Lineup)))
	return record, nil
}

// buildRecord maps the GraphQL payload onto a raw record. Dates and times
// arrive as ISO datetimes and are cut down during normalization.
func buildRecord(event *Event, sourceURL string) *events.Record {
	record := &events.Record{
		Title:           event.Title,
		Date:            event.Date,
		EndDate:         event.EndTime,
		Lineup:          namesOf(event.Artists),
		Promoters:       namesOf(event.Promoters),
		Genres:          namesOf(event.Genres),
		LongDescription: event.Content,
		Cost:            event.Cost,
		SourceURL:       sourceURL,
		Images:          eventImages(event),
	}
	if event.Venue != nil {
		record.Venue = event.Venue.Name
		if area := event.Venue.Area; area != nil {
			record.Location = &events.Location{City: area.Name}
			if area.Country != nil {
				record.Location.Country = area.Country.Name
			}
		}
	}
	if event.StartTime != "" || event.EndTime != "" {
		record.Time = &events.Time{
			Start:    event.StartTime,
			End:      event.EndTime,
			Timezone: events.TimezoneForLocation(record.Location),
		}
	}
	if event.ContentURL != "" {
		record.TicketURL = "https://ra.co" + event.ContentURL
	}
	return record
}

func namesOf(entries []Named) []string {
	if len(entries) == 0 {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Name != "" {
			names = append(names, entry.Name)
		}
	}
	return names
}

// eventImages picks the first gallery image, falling back to the flyer.
func eventImages(event *Event) map[string]string {
	url := ""
	for _, image := range event.Images {
		if image.Filename != "" {
			url = image.Filename
			break
		}
	}
	if url == "" {
		url = event.FlyerFront
	}
	if url == "" {
		return nil
	}
	return map[string]string{events.ImageFull: url, events.ImageThumbnail: url}
}
