package events

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Canonical genre vocabulary, grouped by family. Genre enhancement and
// model output are filtered against this set so records never accumulate
// one-off spellings.
var genreFamilies = map[string][]string{
	"electronic": {
		"electronic", "house", "deep house", "tech house", "progressive house",
		"techno", "minimal techno", "trance", "psytrance", "drum and bass",
		"jungle", "dubstep", "garage", "uk garage", "grime", "breakbeat",
		"electro", "ambient", "downtempo", "idm", "acid house", "hardstyle",
		"hardcore", "gabber", "footwork", "juke", "bass", "future bass",
		"synthwave", "electronica", "leftfield", "disco", "nu disco", "italo disco",
	},
	"rock": {
		"rock", "indie rock", "alternative rock", "punk", "post-punk",
		"hardcore punk", "metal", "heavy metal", "death metal", "black metal",
		"doom metal", "stoner rock", "psychedelic rock", "garage rock",
		"grunge", "shoegaze", "emo", "math rock", "post-rock", "progressive rock",
		"classic rock", "surf rock", "rockabilly", "alternative", "indie",
	},
	"hip hop": {
		"hip hop", "rap", "trap", "drill", "boom bap", "conscious hip hop",
		"underground hip hop", "grime rap", "phonk",
	},
	"jazz": {
		"jazz", "bebop", "swing", "fusion", "smooth jazz", "free jazz",
		"acid jazz", "nu jazz", "big band", "dixieland", "blues", "soul jazz",
	},
	"pop and rnb": {
		"pop", "synth-pop", "electropop", "indie pop", "dream pop", "k-pop",
		"j-pop", "r&b", "neo soul", "soul", "funk", "motown", "gospel",
	},
	"world and folk": {
		"folk", "indie folk", "americana", "country", "bluegrass", "celtic",
		"afrobeat", "afrobeats", "highlife", "reggae", "dancehall", "dub",
		"ska", "rocksteady", "latin", "salsa", "cumbia", "reggaeton",
		"bachata", "merengue", "samba", "bossa nova", "flamenco", "world",
		"klezmer", "balkan", "tango",
	},
	"classical": {
		"classical", "baroque", "romantic", "contemporary classical", "opera",
		"chamber music", "orchestral", "choral", "minimalism",
	},
	"experimental": {
		"experimental", "noise", "drone", "industrial", "ebm", "darkwave",
		"coldwave", "avant-garde", "musique concrete", "sound art",
		"field recordings", "lowercase", "glitch",
	},
}

// Alternate spellings folded into vocabulary entries before lookup.
var genreAliases = map[string]string{
	"edm":              "electronic",
	"electronic dance": "electronic",
	"dance":            "electronic",
	"dnb":              "drum and bass",
	"d&b":              "drum and bass",
	"drum n bass":      "drum and bass",
	"drum'n'bass":      "drum and bass",
	"d'n'b":            "drum and bass",
	"dub step":         "dubstep",
	"hip-hop":          "hip hop",
	"hiphop":           "hip hop",
	"rnb":              "r&b",
	"r'n'b":            "r&b",
	"rhythm & blues":   "r&b",
	"rhythm and blues": "r&b",
	"indie music":      "indie",
	"alt rock":         "alternative rock",
	"alt-rock":         "alternative rock",
	"post punk":        "post-punk",
	"synthpop":         "synth-pop",
	"synth pop":        "synth-pop",
	"kpop":             "k-pop",
	"jpop":             "j-pop",
	"afro beat":        "afrobeat",
	"afro beats":       "afrobeats",
	"drum & bass":      "drum and bass",
	"nu-disco":         "nu disco",
	"italo":            "italo disco",
	"psy trance":       "psytrance",
	"psy-trance":       "psytrance",
	"uk bass":          "bass",
	"neo-soul":         "neo soul",
}

var allGenres = func() map[string]struct{} {
	set := make(map[string]struct{}, 256)
	for _, family := range genreFamilies {
		for _, genre := range family {
			set[genre] = struct{}{}
		}
	}
	return set
}()

// Vocabulary ordered longest-first so substring fallback prefers the most
// specific genre.
var orderedGenres = func() []string {
	out := make([]string, 0, len(allGenres))
	for genre := range allGenres {
		out = append(out, genre)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}()

// titleCase returns the value in English title casing. Casers carry
// transform state, so each call builds its own.
func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}

// NormalizeGenre maps a raw genre string onto the vocabulary. It lowers and
// trims the input, strips "music"/"genre" suffixes, resolves aliases, and
// falls back to a substring match against known genres. Unknown input
// yields the empty string.
func NormalizeGenre(raw string) string {
	genre := strings.ToLower(CleanText(raw))
	if genre == "" {
		return ""
	}
	for _, suffix := range []string{" music", " genre"} {
		genre = strings.TrimSuffix(genre, suffix)
	}
	genre = strings.TrimSpace(genre)
	if alias, ok := genreAliases[genre]; ok {
		genre = alias
	}
	if _, known := allGenres[genre]; known {
		return genre
	}
	for _, known := range orderedGenres {
		if strings.Contains(genre, known) || strings.Contains(known, genre) {
			return known
		}
	}
	return ""
}

// CanonicalGenres filters raw genre strings against the vocabulary,
// deduplicates, caps the result at max entries when max is positive, and
// returns title-cased spellings.
func CanonicalGenres(raw []string, max int) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, candidate := range raw {
		genre := NormalizeGenre(candidate)
		if genre == "" {
			continue
		}
		if _, dup := seen[genre]; dup {
			continue
		}
		seen[genre] = struct{}{}
		out = append(out, titleCase(genre))
		if max > 0 && len(out) >= max {
			break
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// KnownGenre reports whether the raw string resolves to a vocabulary entry.
func KnownGenre(raw string) bool {
	return NormalizeGenre(raw) != ""
}
