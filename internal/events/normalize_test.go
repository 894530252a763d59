package events_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"eventimporter/internal/events"
)

func TestCleanTextStripsMarkupAndWhitespace(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"markup", "<p>Warehouse   party</p>", "Warehouse party"},
		{"entities", "Drum &amp; Bass night", "Drum & Bass night"},
		{"script dropped", `before<script>alert("x")</script> after`, "before after"},
		{"newlines", "line one\n\n\tline two", "line one line two"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := events.CleanText(tt.input); got != tt.want {
				t.Fatalf("CleanText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanDescriptionDropsTrailingPeriods(t *testing.T) {
	got := events.CleanDescription("<b>Doors at 9pm.</b>..")
	if got != "Doors at 9pm" {
		t.Fatalf("CleanDescription = %q, want %q", got, "Doors at 9pm")
	}
}

func TestCleanListDeduplicatesCaseInsensitively(t *testing.T) {
	got := events.CleanList([]string{"Objekt", " objekt ", "", "Call Super", "OBJEKT"})
	want := []string{"Objekt", "Call Super"}
	if len(got) != len(want) {
		t.Fatalf("CleanList returned %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CleanList[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"19:00", "19:00"},
		{"7pm", "19:00"},
		{"7:30 PM", "19:30"},
		{"7.30pm", "19:30"},
		{"11 p.m.", "23:00"},
		{"23:59:59", "23:59"},
		{"12am", "00:00"},
		{"12pm", "12:00"},
		{"2026-03-06T23:00:00.000", "23:00"},
		{"2026-03-07T04:00:00Z", "04:00"},
		{"2026-03-06 19:30:00", "19:30"},
		{"midnightish", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := events.ParseClock(tt.input); got != tt.want {
				t.Fatalf("ParseClock(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDateExplicitYears(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-09-12", "2026-09-12"},
		{"2026-09-12T20:00:00", "2026-09-12"},
		{"09/12/2026", "2026-09-12"},
		{"September 12, 2026", "2026-09-12"},
		{"sep 12 2026", "2026-09-12"},
		{"Friday, March 6th, 2026", "2026-03-06"},
		{"12 September 2026", "2026-09-12"},
		{"not a date", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := events.ParseDate(tt.input); got != tt.want {
				t.Fatalf("ParseDate(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeCost(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"0", "Free"},
		{"0.00", "Free"},
		{"$0", "Free"},
		{"$ 0.00", "Free"},
		{"0 USD", "Free"},
		{"FREE", "Free"},
		{"Free entry!", "Free"},
		{"no cover", "Free"},
		{"Donations welcome", "Free"},
		{"pay what you want", "Free"},
		{"free w/ RSVP", "Free"},
		{"TBD", ""},
		{"n/a", ""},
		{"none", ""},
		{"", ""},
		{"$25", "$25"},
		{"15.00", "15.00"},
		{"£10 advance / £15 door", "£10 advance / £15 door"},
		{"10 dinars", "10 dinars"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := events.NormalizeCost(tt.input); got != tt.want {
				t.Fatalf("NormalizeCost(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeAge(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"all ages", "All Ages"},
		{"All Ages Welcome", "All Ages"},
		{"family friendly", "All Ages"},
		{"21+", "21+"},
		{"18", "18+"},
		{"0", "All Ages"},
		{"0+", "All Ages"},
		{"Must be 21 or older", "21+"},
		{"adults only", "adults only"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := events.NormalizeAge(tt.input); got != tt.want {
				t.Fatalf("NormalizeAge(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeFoldsAliasesAndDegradesShapes(t *testing.T) {
	payload := map[string]any{
		"title":       "  <b>Warehouse Night</b>  ",
		"venue":       "The Depot",
		"date":        "2026-10-03",
		"artists":     []any{"Objekt", "Objekt", "Call Super"},
		"price":       float64(0),
		"description": "All night long.",
		"genre":       []any{"Techno"},
		"images":      "not-a-map",
		"age":         "21",
		"tickets":     "https://tickets.example.com/123",
		"location":    map[string]any{"city": "Detroit", "coordinates": map[string]any{"lat": 42.33, "lng": -83.04}},
	}

	rec, err := events.Normalize(payload)
	if err != nil {
		t.Fatalf("Normalize returned error: %v", err)
	}
	if rec.Title != "Warehouse Night" {
		t.Errorf("title = %q", rec.Title)
	}
	if len(rec.Lineup) != 2 || rec.Lineup[0] != "Objekt" || rec.Lineup[1] != "Call Super" {
		t.Errorf("lineup = %v", rec.Lineup)
	}
	if rec.Cost != "Free" {
		t.Errorf("cost = %q, want Free", rec.Cost)
	}
	if rec.LongDescription != "All night long" {
		t.Errorf("long description = %q", rec.LongDescription)
	}
	if rec.ShortDescription != "All night long" {
		t.Errorf("short description = %q", rec.ShortDescription)
	}
	if rec.Images != nil {
		t.Errorf("images should degrade to nil, got %v", rec.Images)
	}
	if rec.MinimumAge != "21+" {
		t.Errorf("minimum age = %q", rec.MinimumAge)
	}
	if rec.TicketURL != "https://tickets.example.com/123" {
		t.Errorf("ticket url = %q", rec.TicketURL)
	}
	if rec.Location == nil || rec.Location.City != "Detroit" {
		t.Fatalf("location = %+v", rec.Location)
	}
	if rec.Location.Coordinates == nil || rec.Location.Coordinates.Lat != 42.33 {
		t.Errorf("coordinates = %+v", rec.Location.Coordinates)
	}
	if rec.ImportedAt.IsZero() {
		t.Error("imported at should be stamped")
	}
}

func TestNormalizeRejectsMissingTitle(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"absent", map[string]any{"venue": "Somewhere"}},
		{"markup only", map[string]any{"title": "<p>  </p>"}},
		{"too short", map[string]any{"title": "ab"}},
		{"too long", map[string]any{"title": strings.Repeat("x", 201)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := events.Normalize(tt.payload)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !events.IsValidationError(err) {
				t.Fatalf("expected *ValidationError, got %T", err)
			}
			var verr *events.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("errors.As failed for %v", err)
			}
			if len(verr.Fields) == 0 || !strings.HasPrefix(verr.Fields[0], "title") {
				t.Fatalf("unexpected fields %v", verr.Fields)
			}
		})
	}
}

func TestNormalizeRecordEndDate(t *testing.T) {
	tests := []struct {
		name  string
		time  events.Time
		want  string
		date  string
		given string
	}{
		{"past midnight", events.Time{Start: "22:00", End: "02:00"}, "2026-03-15", "2026-03-14", ""},
		{"same evening", events.Time{Start: "19:00", End: "23:00"}, "2026-03-14", "2026-03-14", ""},
		{"midnight end unknown day", events.Time{Start: "22:00", End: "00:00"}, "2026-03-14", "2026-03-14", ""},
		{"explicit end kept", events.Time{Start: "22:00", End: "02:00"}, "2026-03-20", "2026-03-14", "2026-03-20"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeCopy := tt.time
			rec, err := events.NormalizeRecord(&events.Record{
				Title:   "End Date Fixture",
				Date:    tt.date,
				EndDate: tt.given,
				Time:    &timeCopy,
			})
			if err != nil {
				t.Fatalf("NormalizeRecord: %v", err)
			}
			if rec.EndDate != tt.want {
				t.Fatalf("end date = %q, want %q", rec.EndDate, tt.want)
			}
		})
	}
}

func TestNormalizeRecordTruncatesShortDescription(t *testing.T) {
	long := strings.Repeat("word ", 80) // well past the cap, no sentence break
	rec, err := events.NormalizeRecord(&events.Record{Title: "Caption Fixture", LongDescription: long})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if got := len([]rune(rec.ShortDescription)); got > events.MaxShortDescriptionLength {
		t.Fatalf("short description length = %d, want <= %d", got, events.MaxShortDescriptionLength)
	}
	if !strings.HasSuffix(rec.ShortDescription, "...") {
		t.Fatalf("short description should be truncated, got %q", rec.ShortDescription)
	}

	sentence := fmt.Sprintf("First sentence. %s", strings.Repeat("tail ", 60))
	rec, err = events.NormalizeRecord(&events.Record{Title: "Caption Fixture", LongDescription: sentence})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.ShortDescription != "First sentence." {
		t.Fatalf("short description = %q, want first sentence", rec.ShortDescription)
	}
}

func TestNormalizeRecordDropsBadURLs(t *testing.T) {
	rec, err := events.NormalizeRecord(&events.Record{
		Title:     "URL Fixture",
		TicketURL: "javascript:alert(1)",
		SourceURL: "https://ra.co/events/1234567",
		Images:    map[string]string{"full": "ftp://images.example.com/a.jpg", "thumbnail": "https://images.example.com/a.jpg"},
	})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	if rec.TicketURL != "" {
		t.Errorf("ticket url should be dropped, got %q", rec.TicketURL)
	}
	if rec.SourceURL != "https://ra.co/events/1234567" {
		t.Errorf("source url = %q", rec.SourceURL)
	}
	if len(rec.Images) != 1 || rec.Images["thumbnail"] == "" {
		t.Errorf("images = %v", rec.Images)
	}
}

func TestNormalizePrefersCanonicalKeyOverAlias(t *testing.T) {
	rec, err := events.Normalize(map[string]any{
		"title": "Alias Fixture",
		"cost":  "15",
		"price": "999",
	})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if rec.Cost != "15" {
		t.Fatalf("cost = %q, want canonical key to win over alias", rec.Cost)
	}
}

func TestNormalizeRoundTripsCanonicalPayload(t *testing.T) {
	original, err := events.NormalizeRecord(&events.Record{
		Title:  "Round Trip Fixture",
		Venue:  "Basement",
		Date:   "2026-03-06",
		Time:   &events.Time{Start: "22:00", End: "04:00"},
		Lineup: []string{"DJ Fixture"},
		Images: map[string]string{"full": "https://images.example.com/a.jpg"},
		ImageSearch: &events.ImageSearch{
			Original:   "https://images.example.com/a.jpg",
			Candidates: []events.ImageCandidate{{URL: "https://images.example.com/a.jpg", Score: 130, Source: "page"}},
			Selected:   "https://images.example.com/a.jpg",
		},
	})
	if err != nil {
		t.Fatalf("NormalizeRecord: %v", err)
	}
	payload, err := events.CanonicalJSON(original)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal canonical payload: %v", err)
	}
	restored, err := events.Normalize(decoded)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	wantHash, err := events.Hash(original)
	if err != nil {
		t.Fatalf("Hash(original): %v", err)
	}
	gotHash, err := events.Hash(restored)
	if err != nil {
		t.Fatalf("Hash(restored): %v", err)
	}
	if gotHash != wantHash {
		t.Fatalf("round trip changed hash: %s != %s", gotHash, wantHash)
	}
	if restored.ImportedAt.IsZero() || !restored.ImportedAt.Equal(original.ImportedAt) {
		t.Fatalf("imported at %v, want %v", restored.ImportedAt, original.ImportedAt)
	}
	if restored.ImageSearch == nil || restored.ImageSearch.Selected != original.ImageSearch.Selected {
		t.Fatalf("image search lost in round trip: %+v", restored.ImageSearch)
	}
}
