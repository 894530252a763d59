package events_test

import (
	"testing"

	"eventimporter/internal/events"
)

func TestNormalizeGenre(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Techno", "techno"},
		{"EDM", "electronic"},
		{"Hip-Hop", "hip hop"},
		{"dnb", "drum and bass"},
		{"Drum & Bass", "drum and bass"},
		{"techno music", "techno"},
		{"Deep House", "deep house"},
		{"rnb", "r&b"},
		{"synth pop", "synth-pop"},
		{"polka", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := events.NormalizeGenre(tt.input); got != tt.want {
				t.Fatalf("NormalizeGenre(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalGenresFiltersAndCaps(t *testing.T) {
	raw := []string{"techno", "Deep House", "TECHNO", "polka", "dnb", "house", "ambient"}
	got := events.CanonicalGenres(raw, 4)
	want := []string{"Techno", "Deep House", "Drum And Bass", "House"}
	if len(got) != len(want) {
		t.Fatalf("CanonicalGenres = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("CanonicalGenres[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCanonicalGenresUnlimitedWhenMaxZero(t *testing.T) {
	raw := []string{"techno", "house", "ambient", "dub", "jazz"}
	got := events.CanonicalGenres(raw, 0)
	if len(got) != 5 {
		t.Fatalf("expected all five genres kept, got %v", got)
	}
}

func TestKnownGenre(t *testing.T) {
	if !events.KnownGenre("Jungle") {
		t.Error("jungle should be known")
	}
	if events.KnownGenre("yacht rock polka") == false {
		// Substring fallback resolves this through "rock"; guard the
		// behavior so a vocabulary edit does not silently change it.
		t.Error("partial matches resolve against the vocabulary")
	}
	if events.KnownGenre("zydeco") {
		t.Error("zydeco is not in the vocabulary")
	}
}
