package ticketmaster_test

import (
	"testing"

	"eventimporter/internal/sources/ticketmaster"
)

func TestQueryFromURL(t *testing.T) {
	cases := []struct {
		name string
		url  string
		want ticketmaster.SearchQuery
	}{
		{
			name: "full slug with city and date",
			url:  "https://www.ticketmaster.com/the-weeknd-after-hours-tour-los-angeles-california-12-31-2026/event/0B005D43F86C478F",
			want: ticketmaster.SearchQuery{
				Keyword:   "the weeknd after hours",
				City:      "Los Angeles",
				StateCode: "CA",
				Date:      "12-31-2026",
			},
		},
		{
			name: "hyphenated state name",
			url:  "https://www.ticketmaster.com/brad-paisley-buffalo-new-york-6-21-2026/event/00005D43AAAA1111",
			want: ticketmaster.SearchQuery{
				Keyword:   "brad paisley",
				City:      "Buffalo",
				StateCode: "NY",
				Date:      "6-21-2026",
			},
		},
		{
			name: "no location in slug",
			url:  "https://www.ticketmaster.com/some-band-name/event/00005D43AAAA1111",
			want: ticketmaster.SearchQuery{Keyword: "some band name"},
		},
		{
			name: "slugless url",
			url:  "https://www.ticketmaster.com/event/0B005D43F86C478F",
			want: ticketmaster.SearchQuery{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ticketmaster.QueryFromURL(tc.url)
			if got != tc.want {
				t.Fatalf("QueryFromURL(%q) = %#v, want %#v", tc.url, got, tc.want)
			}
		})
	}
}
