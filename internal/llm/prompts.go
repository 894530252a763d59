package llm

import (
	"fmt"
	"strings"
)

// extractionSystemPrompt pins the output contract for every extraction
// call: one JSON object in the canonical event shape, nothing else.
const extractionSystemPrompt = `You are an event data extractor. You read event pages, flyers, and posters, and respond with exactly one JSON object describing the event. Respond with JSON only: no prose, no code fences.

Use these fields, omitting any you cannot determine:
{
  "title": "event title",
  "venue": "venue name",
  "date": "YYYY-MM-DD, or the date text exactly as written if the year is absent",
  "end_date": "YYYY-MM-DD",
  "time": {"start": "HH:MM", "end": "HH:MM", "timezone": "IANA timezone"},
  "lineup": ["artist"],
  "promoters": ["promoter"],
  "genres": ["genre"],
  "long_description": "full event description",
  "short_description": "factual summary under 100 characters",
  "location": {"address": "", "city": "", "state": "", "country": ""},
  "images": {"full": "absolute image url"},
  "minimum_age": "21+ or All Ages",
  "cost": "ticket price text, or Free",
  "ticket_url": "https://..."
}`

// extractionRules adjust model behavior on the fields that sources get
// wrong most often.
const extractionRules = `Extraction rules:
- Times: prefer door time over show time when both appear. Ignore venue business hours and box office hours. Leave the end time blank unless the page states one.
- Dates: if the year is not written on the page, return the date text without a year. Never guess a year.
- Remove any trailing "..." from extracted text and complete the sentence naturally.
- Use the most prominent venue named in the content, and look closely for the city.
- Extract at least one genre when the content supports it; multiple genres are preferred.
- If the source has no long description, write one from the extracted facts: lineup, venue, date, genres, promoters. Two to four sentences, natural and informative.
- If the source has no short description, write a factual summary under 100 characters with no marketing language, such as "Electronic music with DJ Shadow" or "Jazz quartet at Blue Note".`

// buildPagePrompt assembles the user prompt for markdown page content.
func buildPagePrompt(markdown, sourceURL string) string {
	var b strings.Builder
	b.WriteString("Extract event information from this webpage.\n")
	fmt.Fprintf(&b, "Source URL: %s\n\n", sourceURL)
	b.WriteString("Page content:\n```\n")
	b.WriteString(markdown)
	b.WriteString("\n```\n\n")
	b.WriteString(extractionRules)
	return b.String()
}

// buildImagePrompt assembles the user prompt for flyer and screenshot
// extraction. The image itself travels alongside as a vision part.
func buildImagePrompt(kind, sourceURL string) string {
	var b strings.Builder
	switch kind {
	case "screenshot":
		b.WriteString("Extract event information from this screenshot of an event page.\n")
	default:
		b.WriteString("Extract event information from this event flyer or poster.\n")
	}
	fmt.Fprintf(&b, "Source URL: %s\n\n", sourceURL)
	b.WriteString(extractionRules)
	return b.String()
}

const genreSystemPrompt = `You identify music genres for artists. Respond with JSON only: one object of the form {"genres": ["genre"]}. Return an empty list when unsure.`

// buildGenrePrompt assembles the prompt for inferring an artist's genres
// in the context of one event.
func buildGenrePrompt(artist, eventTitle, venue string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Identify the primary music genres of the artist %q.\n", artist)
	if eventTitle != "" {
		fmt.Fprintf(&b, "They are performing at the event %q", eventTitle)
		if venue != "" {
			fmt.Fprintf(&b, " at %s", venue)
		}
		b.WriteString(".\n")
	}
	b.WriteString(`
Guidelines:
- Return established genre names, not descriptive phrases.
- Prefer broader categories over micro-genres: "Rock", not "Post-Hardcore Math Rock".
- Two to four genres at most.
- Be conservative: if you do not recognize the artist, return an empty list.`)
	return b.String()
}
