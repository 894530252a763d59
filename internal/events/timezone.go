package events

import "strings"

var usPacificCities = []string{"los angeles", "san francisco", "seattle", "las vegas", "portland", "san diego"}

var usCentralCities = []string{"chicago", "houston", "dallas", "austin", "new orleans"}

var usEasternCities = []string{"new york", "miami", "atlanta", "boston", "washington", "philadelphia"}

var usMountainCities = []string{"denver", "salt lake city"}

var europeanCities = map[string]string{
	"berlin":    "Europe/Berlin",
	"paris":     "Europe/Paris",
	"amsterdam": "Europe/Amsterdam",
	"barcelona": "Europe/Madrid",
	"madrid":    "Europe/Madrid",
	"rome":      "Europe/Rome",
	"vienna":    "Europe/Vienna",
	"zurich":    "Europe/Zurich",
	"brussels":  "Europe/Brussels",
}

// TimezoneForLocation guesses the IANA timezone for an event location from
// a table of major cities. Unknown locations map to UTC so downstream
// consumers always receive a resolvable zone name.
func TimezoneForLocation(loc *Location) string {
	if loc == nil {
		return "UTC"
	}
	city := strings.ToLower(strings.TrimSpace(loc.City))
	country := strings.ToLower(strings.TrimSpace(loc.Country))

	if strings.Contains(country, "united states") || strings.Contains(country, "usa") || country == "us" {
		switch {
		case containsCity(usPacificCities, city):
			return "America/Los_Angeles"
		case containsCity(usCentralCities, city):
			return "America/Chicago"
		case containsCity(usEasternCities, city):
			return "America/New_York"
		case containsCity(usMountainCities, city):
			return "America/Denver"
		case city == "phoenix":
			// Arizona skips daylight saving.
			return "America/Phoenix"
		}
		return "America/New_York"
	}

	if strings.Contains(country, "canada") {
		switch city {
		case "vancouver":
			return "America/Vancouver"
		case "calgary":
			return "America/Edmonton"
		case "montreal":
			return "America/Montreal"
		}
		return "America/Toronto"
	}

	if strings.Contains(country, "united kingdom") || strings.Contains(country, "uk") {
		return "Europe/London"
	}

	if zone, ok := europeanCities[city]; ok {
		return zone
	}

	switch city {
	case "tokyo":
		return "Asia/Tokyo"
	case "sydney":
		return "Australia/Sydney"
	case "melbourne":
		return "Australia/Melbourne"
	}
	return "UTC"
}

func containsCity(cities []string, city string) bool {
	for _, candidate := range cities {
		if candidate == city {
			return true
		}
	}
	return false
}
