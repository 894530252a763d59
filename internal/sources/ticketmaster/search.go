package ticketmaster

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// stateCodes maps lowercase state names, hyphenated as they appear in URL
// slugs, to Discovery stateCode values.
var stateCodes = map[string]string{
	"alabama":              "AL",
	"alaska":               "AK",
	"arizona":              "AZ",
	"arkansas":             "AR",
	"california":           "CA",
	"colorado":             "CO",
	"connecticut":          "CT",
	"delaware":             "DE",
	"florida":              "FL",
	"georgia":              "GA",
	"hawaii":               "HI",
	"idaho":                "ID",
	"illinois":             "IL",
	"indiana":              "IN",
	"iowa":                 "IA",
	"kansas":               "KS",
	"kentucky":             "KY",
	"louisiana":            "LA",
	"maine":                "ME",
	"maryland":             "MD",
	"massachusetts":        "MA",
	"michigan":             "MI",
	"minnesota":            "MN",
	"mississippi":          "MS",
	"missouri":             "MO",
	"montana":              "MT",
	"nebraska":             "NE",
	"nevada":               "NV",
	"new-hampshire":        "NH",
	"new-jersey":           "NJ",
	"new-mexico":           "NM",
	"new-york":             "NY",
	"north-carolina":       "NC",
	"north-dakota":         "ND",
	"ohio":                 "OH",
	"oklahoma":             "OK",
	"oregon":               "OR",
	"pennsylvania":         "PA",
	"rhode-island":         "RI",
	"south-carolina":       "SC",
	"south-dakota":         "SD",
	"tennessee":            "TN",
	"texas":                "TX",
	"utah":                 "UT",
	"vermont":              "VT",
	"virginia":             "VA",
	"washington":           "WA",
	"west-virginia":        "WV",
	"wisconsin":            "WI",
	"wyoming":              "WY",
	"district-of-columbia": "DC",
}

// cityPrefixes are leading words of two-word city names.
var cityPrefixes = map[string]struct{}{
	"los": {}, "san": {}, "new": {}, "las": {}, "el": {}, "la": {},
}

// skipWords never belong to a city name.
var skipWords = map[string]struct{}{
	"tour": {}, "world": {}, "concert": {}, "show": {}, "live": {},
	"presents": {}, "vs": {}, "versus": {}, "at": {}, "the": {},
}

var (
	slugDatePattern = regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{4})`)
	yearPattern     = regexp.MustCompile(`^\d{4}$`)
	digitsPattern   = regexp.MustCompile(`^\d+$`)
)

// SearchQuery is what a Ticketmaster URL slug reveals about the event it
// points at. Date keeps the slug's M-D-YYYY form.
type SearchQuery struct {
	Keyword   string
	City      string
	StateCode string
	Date      string
}

// QueryFromURL parses the human-readable slug that precedes /event/ in
// Ticketmaster URLs, such as
// /the-weeknd-tour-los-angeles-california-12-31-2026/event/ABC. Slugless
// URLs yield a zero query.
func QueryFromURL(rawURL string) SearchQuery {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return SearchQuery{}
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) == 0 || parts[0] == "" || parts[0] == "event" {
		return SearchQuery{}
	}
	slug := parts[0]
	words := strings.Split(slug, "-")

	cityParts, state := locationFromWords(words)
	query := SearchQuery{
		Keyword: buildKeyword(words, cityParts, state),
		Date:    dateFromSlug(slug),
	}
	if len(cityParts) > 0 {
		query.City = cases.Title(language.English).String(strings.Join(cityParts, " "))
	}
	if state != "" {
		query.StateCode = stateCodes[state]
	}
	return query
}

// dateFromSlug pulls the M-D-YYYY date out of the slug, or returns the
// empty string when the slug carries no date.
func dateFromSlug(slug string) string {
	return slugDatePattern.FindString(slug)
}

// dateWindow expands the slug date into a three-day window on each side,
// formatted for the localStartDateTime parameter. Listings often carry the
// announce date rather than the show date, so an exact match is too strict.
func (q SearchQuery) dateWindow() string {
	parts := strings.Split(q.Date, "-")
	if len(parts) != 3 {
		return ""
	}
	month, monthErr := strconv.Atoi(parts[0])
	day, dayErr := strconv.Atoi(parts[1])
	year, yearErr := strconv.Atoi(parts[2])
	if monthErr != nil || dayErr != nil || yearErr != nil {
		return ""
	}
	target := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	start := target.AddDate(0, 0, -3).Format("2006-01-02")
	end := target.AddDate(0, 0, 3).Format("2006-01-02")
	return start + "T00:00:00," + end + "T23:59:59"
}

// locationFromWords finds a state name in the slug words, matching the
// hyphenated two-word states first, then walks backwards for the city.
func locationFromWords(words []string) (cityParts []string, state string) {
	for i, word := range words {
		lowered := strings.ToLower(word)
		if i+1 < len(words) {
			pair := lowered + "-" + strings.ToLower(words[i+1])
			if _, ok := stateCodes[pair]; ok {
				return findCityParts(words, i), pair
			}
		}
		if _, ok := stateCodes[lowered]; ok {
			return findCityParts(words, i), lowered
		}
	}
	return nil, ""
}

// findCityParts walks backwards from the state looking for the city name,
// pulling in a known prefix word so "los angeles" survives intact.
func findCityParts(words []string, stateIndex int) []string {
	for j := stateIndex - 1; j >= 0; j-- {
		word := strings.ToLower(words[j])
		if _, skip := skipWords[word]; skip {
			continue
		}
		if digitsPattern.MatchString(word) || len(word) <= 2 {
			continue
		}
		if j > 0 {
			if _, ok := cityPrefixes[strings.ToLower(words[j-1])]; ok {
				return []string{words[j-1], words[j]}
			}
		}
		return []string{words[j]}
	}
	return nil
}

// buildKeyword assembles up to four search terms from the slug, dropping
// location words, dates, and filler. "the" is kept together with the word
// it qualifies so band names survive.
func buildKeyword(words []string, cityParts []string, state string) string {
	cityWords := make(map[string]struct{}, len(cityParts))
	for _, part := range cityParts {
		cityWords[strings.ToLower(part)] = struct{}{}
	}
	stateWords := make(map[string]struct{}, 2)
	for _, part := range strings.Split(state, "-") {
		if part != "" {
			stateWords[part] = struct{}{}
		}
	}

	var kept []string
	for _, word := range words {
		lowered := strings.ToLower(word)
		if _, isCity := cityWords[lowered]; isCity {
			continue
		}
		if _, isState := stateWords[lowered]; isState {
			continue
		}
		if yearPattern.MatchString(word) || len(word) <= 2 {
			continue
		}
		kept = append(kept, word)
	}
	if len(kept) == 0 {
		return ""
	}

	var keyword []string
	for i := 0; i < len(kept) && len(keyword) < 4; {
		if strings.EqualFold(kept[i], "the") && i+1 < len(kept) {
			keyword = append(keyword, kept[i], kept[i+1])
			i += 2
			continue
		}
		keyword = append(keyword, kept[i])
		i++
	}
	if len(keyword) > 4 {
		keyword = keyword[:4]
	}
	return strings.Join(keyword, " ")
}

// bestMatch prefers the first event whose name contains every keyword
// term, falling back to the first result.
func bestMatch(events []Event, keyword string) *Event {
	terms := strings.Fields(strings.ToLower(keyword))
	for i := range events {
		name := strings.ToLower(events[i].Name)
		matched := true
		for _, term := range terms {
			if !strings.Contains(name, term) {
				matched = false
				break
			}
		}
		if matched {
			return &events[i]
		}
	}
	if len(events) > 0 {
		return &events[0]
	}
	return nil
}
