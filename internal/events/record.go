// Package events defines the canonical event record shared by every
// extraction strategy, the normalization rules that fold heterogeneous
// source output into it, and the canonical content hash used for change
// detection in the cache.
package events

import (
	"strings"
	"time"
)

// Time holds wall-clock boundaries for an event. Values are normalized to
// 24-hour HH:MM strings.
type Time struct {
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// IsZero reports whether no time information is present.
func (t *Time) IsZero() bool {
	return t == nil || (t.Start == "" && t.End == "" && t.Timezone == "")
}

// Coordinates carries a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location describes where an event takes place.
type Location struct {
	Address     string       `json:"address,omitempty"`
	City        string       `json:"city,omitempty"`
	State       string       `json:"state,omitempty"`
	Country     string       `json:"country,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// IsZero reports whether no location information is present.
func (l *Location) IsZero() bool {
	return l == nil || (l.Address == "" && l.City == "" && l.State == "" && l.Country == "" && l.Coordinates == nil)
}

// String formats the location as a comma-joined line for display.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	parts := make([]string, 0, 4)
	for _, part := range []string{l.Address, l.City, l.State, l.Country} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}

// ImageCandidate scores one potential flyer or poster image.
type ImageCandidate struct {
	URL        string `json:"url"`
	Score      int    `json:"score"`
	Source     string `json:"source,omitempty"`
	Dimensions string `json:"dimensions,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// ImageSearch records the candidate set considered while enhancing an
// event's images, including the original image and the selected winner.
type ImageSearch struct {
	Original   *ImageCandidate  `json:"original,omitempty"`
	Candidates []ImageCandidate `json:"candidates,omitempty"`
	Selected   *ImageCandidate  `json:"selected,omitempty"`
}

// Best returns the highest scoring candidate with a positive score, or nil.
func (s *ImageSearch) Best() *ImageCandidate {
	if s == nil {
		return nil
	}
	var best *ImageCandidate
	if s.Original != nil && s.Original.Score > 0 {
		best = s.Original
	}
	for i := range s.Candidates {
		candidate := &s.Candidates[i]
		if candidate.Score <= 0 {
			continue
		}
		if best == nil || candidate.Score > best.Score {
			best = candidate
		}
	}
	return best
}

// Image map keys used across strategies and display code.
const (
	ImageFull      = "full"
	ImageThumbnail = "thumbnail"
)

// Record is the canonical event artifact. Title is the only required field;
// every other field may be absent, in which case display code reports it as
// missing rather than empty.
type Record struct {
	Title            string            `json:"title"`
	Venue            string            `json:"venue,omitempty"`
	Date             string            `json:"date,omitempty"`
	EndDate          string            `json:"end_date,omitempty"`
	Time             *Time             `json:"time,omitempty"`
	Promoters        []string          `json:"promoters,omitempty"`
	Lineup           []string          `json:"lineup,omitempty"`
	LongDescription  string            `json:"long_description,omitempty"`
	ShortDescription string            `json:"short_description,omitempty"`
	Genres           []string          `json:"genres,omitempty"`
	Location         *Location         `json:"location,omitempty"`
	Images           map[string]string `json:"images,omitempty"`
	ImageSearch      *ImageSearch      `json:"image_search,omitempty"`
	MinimumAge       string            `json:"minimum_age,omitempty"`
	Cost             string            `json:"cost,omitempty"`
	TicketURL        string            `json:"ticket_url,omitempty"`
	SourceURL        string            `json:"source_url,omitempty"`
	ImportedAt       time.Time         `json:"imported_at,omitzero"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Time != nil {
		t := *r.Time
		clone.Time = &t
	}
	if r.Location != nil {
		loc := *r.Location
		if r.Location.Coordinates != nil {
			coords := *r.Location.Coordinates
			loc.Coordinates = &coords
		}
		clone.Location = &loc
	}
	clone.Promoters = append([]string(nil), r.Promoters...)
	clone.Lineup = append([]string(nil), r.Lineup...)
	clone.Genres = append([]string(nil), r.Genres...)
	if r.Images != nil {
		clone.Images = make(map[string]string, len(r.Images))
		for key, value := range r.Images {
			clone.Images[key] = value
		}
	}
	if r.ImageSearch != nil {
		search := ImageSearch{}
		if r.ImageSearch.Original != nil {
			original := *r.ImageSearch.Original
			search.Original = &original
		}
		if r.ImageSearch.Selected != nil {
			selected := *r.ImageSearch.Selected
			search.Selected = &selected
		}
		search.Candidates = append([]ImageCandidate(nil), r.ImageSearch.Candidates...)
		clone.ImageSearch = &search
	}
	return &clone
}

// PrimaryImage returns the best available image URL for the record.
func (r *Record) PrimaryImage() string {
	if r == nil || len(r.Images) == 0 {
		return ""
	}
	if url := r.Images[ImageFull]; url != "" {
		return url
	}
	return r.Images[ImageThumbnail]
}

// IsComplete reports whether the record carries enough detail to stand on
// its own: title, venue, date, and either a lineup or a description.
func (r *Record) IsComplete() bool {
	if r == nil {
		return false
	}
	return r.Title != "" && r.Venue != "" && r.Date != "" &&
		(len(r.Lineup) > 0 || r.LongDescription != "")
}

// MissingFields lists the descriptive fields absent from the record, in
// display order. Title is excluded: records without titles are never
// persisted.
func (r *Record) MissingFields() []string {
	if r == nil {
		return nil
	}
	var missing []string
	if r.Venue == "" {
		missing = append(missing, "venue")
	}
	if r.Date == "" {
		missing = append(missing, "date")
	}
	if r.Time.IsZero() {
		missing = append(missing, "time")
	}
	if len(r.Lineup) == 0 {
		missing = append(missing, "lineup")
	}
	if len(r.Genres) == 0 {
		missing = append(missing, "genres")
	}
	if r.Cost == "" {
		missing = append(missing, "cost")
	}
	if r.MinimumAge == "" {
		missing = append(missing, "minimum_age")
	}
	if r.Location.IsZero() {
		missing = append(missing, "location")
	}
	if r.PrimaryImage() == "" {
		missing = append(missing, "images")
	}
	if r.LongDescription == "" && r.ShortDescription == "" {
		missing = append(missing, "description")
	}
	return missing
}
