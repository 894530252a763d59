package events

import (
	"encoding/json"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/unicode/norm"
)

// Title length bounds, in runes, after cleaning.
const (
	MinTitleLength = 3
	MaxTitleLength = 200
)

// MaxShortDescriptionLength caps the short description, in runes.
const MaxShortDescriptionLength = 200

// ValidationError reports why a payload could not become a valid record.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// IsValidationError reports whether err is a record validation failure.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return err != nil && asValidationError(err, &verr)
}

func asValidationError(err error, target **ValidationError) bool {
	for err != nil {
		if verr, ok := err.(*ValidationError); ok {
			*target = verr
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

var (
	sanitizer         = bluemonday.StrictPolicy()
	whitespacePattern = regexp.MustCompile(`\s+`)
	yearPattern       = regexp.MustCompile(`(19|20)\d{2}|'\d{2}`)
	ordinalPattern    = regexp.MustCompile(`(\d{1,2})(st|nd|rd|th)\b`)
	agePattern        = regexp.MustCompile(`(\d+)\s*\+?`)
)

// CleanText strips markup, decodes HTML entities, normalizes the text to
// NFC, and collapses runs of whitespace.
func CleanText(value string) string {
	if value == "" {
		return ""
	}
	out := sanitizer.Sanitize(value)
	out = html.UnescapeString(out)
	out = norm.NFC.String(out)
	out = whitespacePattern.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// CleanDescription cleans free-form prose and drops trailing periods so
// descriptions render uniformly.
func CleanDescription(value string) string {
	out := CleanText(value)
	return strings.TrimRight(out, ".")
}

// CleanList cleans each entry and drops duplicates case-insensitively,
// keeping the first spelling seen.
func CleanList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		cleaned := CleanText(value)
		if cleaned == "" {
			continue
		}
		key := strings.ToLower(cleaned)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, cleaned)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var meridiemReplacer = strings.NewReplacer("p.m.", "pm", "a.m.", "am", "p.m", "pm", "a.m", "am")

var clockLayouts = []string{"15:04", "15:04:05", "3:04pm", "3pm", "15"}

// Structured feeds hand over full datetimes where a clock is expected.
var datetimeClockLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseClock normalizes a wall-clock string to 24-hour HH:MM. Full datetime
// values keep only their time of day. Unparseable input yields the empty
// string.
func ParseClock(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return ""
	}
	for _, layout := range datetimeClockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(v)); err == nil {
			return t.Format("15:04")
		}
	}
	v = meridiemReplacer.Replace(v)
	v = strings.ReplaceAll(v, ".", ":")
	v = strings.ReplaceAll(v, " ", "")
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("15:04")
		}
	}
	return ""
}

var datedLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"January 2 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"Monday January 2 2006",
	"Mon Jan 2 2006",
	"January 2006",
}

var yearlessLayouts = []string{
	"January 2",
	"Jan 2",
	"Monday January 2",
	"Mon Jan 2",
	"2 January",
	"2 Jan",
	"01/02",
	"1/2",
}

// ParseDate normalizes a date string to ISO YYYY-MM-DD. Dates written
// without a year default to the current year, rolling forward to the next
// year when the result would sit more than ninety days in the past, so
// listings scraped around New Year resolve to the upcoming occurrence.
// Unparseable input yields the empty string.
func ParseDate(value string) string {
	return parseDateAt(value, time.Now().UTC())
}

func parseDateAt(value string, now time.Time) string {
	raw := CleanText(value)
	if raw == "" {
		return ""
	}
	if len(raw) >= 10 {
		if t, err := time.Parse("2006-01-02", raw[:10]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	hasYear := yearPattern.MatchString(raw)
	cleaned := strings.NewReplacer(",", " ", "'", " ").Replace(raw)
	cleaned = ordinalPattern.ReplaceAllString(cleaned, "$1")
	cleaned = titleCase(cleaned)
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))
	for _, layout := range datedLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t.Format("2006-01-02")
		}
	}
	for _, layout := range yearlessLayouts {
		t, err := time.Parse(layout, cleaned)
		if err != nil {
			continue
		}
		resolved := time.Date(now.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		if !hasYear && resolved.Before(now) && now.Sub(resolved) > 90*24*time.Hour {
			resolved = resolved.AddDate(1, 0, 0)
		}
		return resolved.Format("2006-01-02")
	}
	return ""
}

// Placeholder cost values that mean the cost is simply unknown.
var unknownCostValues = map[string]struct{}{
	"":     {},
	"n/a":  {},
	"na":   {},
	"none": {},
	"null": {},
	"tbd":  {},
	"tba":  {},
}

// Phrases that signal free admission when present anywhere in the value.
var freePhrases = []string{
	"no cover",
	"admission free",
	"free admission",
	"free entry",
	"no charge",
	"no cost",
	"no fee",
	"free w/ rsvp",
	"free with rsvp",
	"free w/rsvp",
	"donation only",
	"suggested donation",
	"pay what you want",
	"by donation",
}

// Single words that signal free admission when they appear as a whole word.
var freeWords = map[string]struct{}{
	"free":          {},
	"gratis":        {},
	"complimentary": {},
	"gratuito":      {},
	"gratuit":       {},
	"donation":      {},
	"donations":     {},
	"pwyw":          {},
}

var zeroCostPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^0+$`),
	regexp.MustCompile(`^0+\.0+$`),
	regexp.MustCompile(`^[\$£€¥]?\s*0+$`),
	regexp.MustCompile(`^[\$£€¥]?\s*0+\.0+$`),
	regexp.MustCompile(`^\s*0+\s*(usd|gbp|eur|cad|dollars?|pounds?|euros?)\s*$`),
}

var wordPattern = regexp.MustCompile(`[a-z/']+`)

// NormalizeCost folds the many spellings of "costs nothing" into the single
// value "Free", drops placeholder values entirely, and otherwise keeps the
// cleaned original text. An explicit zero amount is a statement about price;
// a placeholder is the absence of one, and the two must not be conflated.
func NormalizeCost(value string) string {
	cleaned := CleanText(value)
	lowered := strings.ToLower(cleaned)
	if _, unknown := unknownCostValues[lowered]; unknown {
		return ""
	}
	for _, phrase := range freePhrases {
		if strings.Contains(lowered, phrase) {
			return "Free"
		}
	}
	for _, word := range wordPattern.FindAllString(lowered, -1) {
		if _, free := freeWords[word]; free {
			return "Free"
		}
	}
	for _, pattern := range zeroCostPatterns {
		if pattern.MatchString(lowered) {
			return "Free"
		}
	}
	return cleaned
}

// NormalizeAge standardizes age restrictions to "All Ages" or "N+" where a
// number is present, keeping the cleaned original otherwise.
func NormalizeAge(value string) string {
	cleaned := CleanText(value)
	if cleaned == "" {
		return ""
	}
	lowered := strings.ToLower(cleaned)
	for _, marker := range []string{"all ages", "todos", "family"} {
		if strings.Contains(lowered, marker) {
			return "All Ages"
		}
	}
	if match := agePattern.FindStringSubmatch(cleaned); match != nil {
		// A zero age is "no restriction", not a floor of zero.
		if strings.Trim(match[1], "0") == "" {
			return "All Ages"
		}
		return match[1] + "+"
	}
	return cleaned
}

// cleanURL keeps only absolute http(s) URLs; anything else degrades to
// absent rather than failing the record.
func cleanURL(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return ""
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return trimmed
}

// Normalize folds a loosely shaped payload, as produced by an API response
// or a language model, into a validated Record. Known aliases are folded
// into their canonical fields and malformed values degrade to absent. The
// only hard failure is a missing or out-of-bounds title.
func Normalize(payload map[string]any) (*Record, error) {
	rec := decodeRaw(payload)
	return NormalizeRecord(rec)
}

// NormalizeRecord cleans and validates a record in place on a copy,
// returning the normalized result.
func NormalizeRecord(rec *Record) (*Record, error) {
	return normalizeRecordAt(rec, time.Now().UTC())
}

func normalizeRecordAt(rec *Record, now time.Time) (*Record, error) {
	if rec == nil {
		rec = &Record{}
	}
	out := rec.Clone()

	out.Title = CleanText(out.Title)
	if err := validateTitle(out.Title); err != nil {
		return nil, err
	}

	out.Venue = CleanText(out.Venue)
	out.Date = parseDateAt(out.Date, now)
	out.EndDate = parseDateAt(out.EndDate, now)
	if out.Time != nil {
		out.Time.Start = ParseClock(out.Time.Start)
		out.Time.End = ParseClock(out.Time.End)
		out.Time.Timezone = strings.TrimSpace(out.Time.Timezone)
		if out.Time.IsZero() {
			out.Time = nil
		}
	}
	out.Promoters = CleanList(out.Promoters)
	out.Lineup = CleanList(out.Lineup)
	out.Genres = CleanList(out.Genres)
	out.LongDescription = CleanDescription(out.LongDescription)
	out.ShortDescription = CleanDescription(out.ShortDescription)
	fillShortDescription(out)
	if out.Location != nil {
		out.Location.Address = CleanText(out.Location.Address)
		out.Location.City = CleanText(out.Location.City)
		out.Location.State = CleanText(out.Location.State)
		out.Location.Country = CleanText(out.Location.Country)
		if out.Location.IsZero() {
			out.Location = nil
		}
	}
	for key, value := range out.Images {
		cleaned := cleanURL(value)
		if cleaned == "" {
			delete(out.Images, key)
			continue
		}
		out.Images[key] = cleaned
	}
	if len(out.Images) == 0 {
		out.Images = nil
	}
	out.MinimumAge = NormalizeAge(out.MinimumAge)
	out.Cost = NormalizeCost(out.Cost)
	out.TicketURL = cleanURL(out.TicketURL)
	out.SourceURL = cleanURL(out.SourceURL)
	fillEndDate(out)
	if out.ImportedAt.IsZero() {
		out.ImportedAt = now
	}
	return out, nil
}

func validateTitle(title string) error {
	if title == "" {
		return &ValidationError{Fields: []string{"title: required"}}
	}
	length := len([]rune(title))
	if length < MinTitleLength || length > MaxTitleLength {
		return &ValidationError{Fields: []string{fmt.Sprintf(
			"title: must be between %d and %d characters, got %d",
			MinTitleLength, MaxTitleLength, length)}}
	}
	return nil
}

// fillShortDescription derives a short description from the long one when
// absent, and truncates oversized values instead of rejecting them.
func fillShortDescription(rec *Record) {
	if rec.ShortDescription == "" && rec.LongDescription != "" {
		rec.ShortDescription = rec.LongDescription
	}
	runes := []rune(rec.ShortDescription)
	if len(runes) <= MaxShortDescriptionLength {
		return
	}
	if idx := strings.IndexAny(rec.ShortDescription, ".!?"); idx > 0 && idx < MaxShortDescriptionLength-1 {
		rec.ShortDescription = strings.TrimSpace(rec.ShortDescription[:idx+1])
		return
	}
	rec.ShortDescription = strings.TrimSpace(string(runes[:MaxShortDescriptionLength-3])) + "..."
}

// fillEndDate infers the end date from the start date and times when the
// event plainly runs past midnight. A midnight end time is treated as
// "unknown" rather than as a marker for the next day.
func fillEndDate(rec *Record) {
	if rec.EndDate != "" || rec.Date == "" || rec.Time == nil {
		return
	}
	if rec.Time.Start == "" || rec.Time.End == "" {
		return
	}
	day, err := time.Parse("2006-01-02", rec.Date)
	if err != nil {
		return
	}
	start, err := time.Parse("15:04", rec.Time.Start)
	if err != nil {
		return
	}
	end, err := time.Parse("15:04", rec.Time.End)
	if err != nil {
		return
	}
	if end.Before(start) && rec.Time.End != "00:00" {
		rec.EndDate = day.AddDate(0, 0, 1).Format("2006-01-02")
		return
	}
	rec.EndDate = day.Format("2006-01-02")
}

// Aliases folded into canonical fields during decoding.
var fieldAliases = map[string]string{
	"artists":      "lineup",
	"artist":       "lineup",
	"genre":        "genres",
	"price":        "cost",
	"ticket_price": "cost",
	"description":  "long_description",
	"summary":      "short_description",
	"age":          "minimum_age",
	"age_limit":    "minimum_age",
	"tickets":      "ticket_url",
	"url":          "source_url",
}

// CanonicalField maps a payload key, or one of its known aliases, to the
// canonical record field name.
func CanonicalField(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	if canonical, ok := fieldAliases[key]; ok {
		return canonical
	}
	return key
}

func decodeRaw(payload map[string]any) *Record {
	rec := &Record{}
	if payload == nil {
		return rec
	}
	folded := make(map[string]any, len(payload))
	for key, value := range payload {
		lowered := strings.ToLower(strings.TrimSpace(key))
		if _, isAlias := fieldAliases[lowered]; isAlias {
			continue
		}
		folded[lowered] = value
	}
	// An alias fills its canonical field only when the payload does not
	// carry the canonical key itself.
	for key, value := range payload {
		canonical := CanonicalField(key)
		if _, exists := folded[canonical]; !exists {
			folded[canonical] = value
		}
	}

	rec.Title = toString(folded["title"])
	rec.Venue = toString(folded["venue"])
	rec.Date = toString(folded["date"])
	rec.EndDate = toString(folded["end_date"])
	rec.Time = decodeTime(folded["time"])
	rec.Promoters = toStringSlice(folded["promoters"])
	rec.Lineup = toStringSlice(folded["lineup"])
	rec.Genres = toStringSlice(folded["genres"])
	rec.LongDescription = toString(folded["long_description"])
	rec.ShortDescription = toString(folded["short_description"])
	rec.Location = decodeLocation(folded["location"])
	rec.Images = decodeImages(folded["images"])
	rec.ImageSearch = decodeImageSearch(folded["image_search"])
	rec.MinimumAge = toString(folded["minimum_age"])
	rec.Cost = toString(folded["cost"])
	rec.TicketURL = toString(folded["ticket_url"])
	rec.SourceURL = toString(folded["source_url"])
	if stamp := toString(folded["imported_at"]); stamp != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, stamp); err == nil {
			rec.ImportedAt = parsed.UTC()
		}
	}
	return rec
}

func decodeTime(value any) *Time {
	switch v := value.(type) {
	case map[string]any:
		return &Time{
			Start:    toString(v["start"]),
			End:      toString(v["end"]),
			Timezone: toString(v["timezone"]),
		}
	case string:
		return &Time{Start: v}
	default:
		return nil
	}
}

func decodeLocation(value any) *Location {
	switch v := value.(type) {
	case map[string]any:
		loc := &Location{
			Address: toString(v["address"]),
			City:    toString(v["city"]),
			State:   toString(v["state"]),
			Country: toString(v["country"]),
		}
		if coords, ok := v["coordinates"].(map[string]any); ok {
			lat, latOK := toFloat(coords["lat"])
			lng, lngOK := toFloat(coords["lng"])
			if latOK && lngOK {
				loc.Coordinates = &Coordinates{Lat: lat, Lng: lng}
			}
		}
		return loc
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &Location{Address: v}
	default:
		return nil
	}
}

// decodeImageSearch round-trips the provenance block through JSON so cached
// records survive a decode cycle without losing candidate history.
func decodeImageSearch(value any) *ImageSearch {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	buf, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var search ImageSearch
	if err := json.Unmarshal(buf, &search); err != nil {
		return nil
	}
	if search.Original == nil && search.Selected == nil && len(search.Candidates) == 0 {
		return nil
	}
	return &search
}

// decodeImages accepts only a map of string URLs; any other shape degrades
// to no images.
func decodeImages(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok {
		return nil
	}
	images := make(map[string]string, len(raw))
	for key, entry := range raw {
		if url, ok := entry.(string); ok && strings.TrimSpace(url) != "" {
			images[key] = url
		}
	}
	if len(images) == 0 {
		return nil
	}
	return images
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func toStringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s := toString(entry); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
