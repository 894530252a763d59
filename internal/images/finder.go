package images

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"image"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"eventimporter/internal/config"
	"eventimporter/internal/events"
	"eventimporter/internal/logging"
	"eventimporter/internal/textutil"
)

// Stock-photo and proxy hosts that never carry a usable flyer.
var avoidDomains = []string{
	"getty",
	"shutterstock",
	"alamy",
	"istockphoto",
	"stock.adobe",
	"depositphotos",
	"dreamstime",
	"lookaside.instagram.com",
	"lookaside.fbsbx.com",
}

// Music press and catalog hosts whose artist photos are usually clean.
var priorityDomains = []string{
	"spotify",
	"last.fm",
	"discogs",
	"allmusic",
	"pitchfork",
	"rollingstone",
	"billboard",
	"musicbrainz",
	"bandcamp",
	"soundcloud",
}

const (
	defaultMaxCandidates = 5
	defaultMinWidth      = 500
	defaultMinHeight     = 500
	defaultMaxImageMiB   = 2

	// contextBonus caps how many points a candidate can earn for matching
	// the event text.
	contextBonus = 25
)

// SourceOriginal marks the candidate rated from the record's existing image,
// as opposed to candidates found by search.
const SourceOriginal = "original"

var liveSuffixPattern = regexp.MustCompile(`(?i)\s+\(live\)$|\s+dj set\s*$`)

// Finder locates and rates image candidates for an event record.
type Finder struct {
	cfg        config.ImageSearch
	search     *SearchClient
	httpClient *http.Client
	logger     *slog.Logger
}

// FinderOption configures a Finder.
type FinderOption func(*Finder)

// WithHTTPClient overrides the client used for image downloads.
func WithHTTPClient(client *http.Client) FinderOption {
	return func(f *Finder) {
		if client != nil {
			f.httpClient = client
		}
	}
}

// WithSearchClient injects a prebuilt search client.
func WithSearchClient(client *SearchClient) FinderOption {
	return func(f *Finder) {
		f.search = client
	}
}

// NewFinder creates a Finder. Search stays disabled unless both the Google
// API key and the CSE id are configured; download and validation work
// either way.
func NewFinder(cfg config.ImageSearch, logger *slog.Logger, opts ...FinderOption) *Finder {
	if logger == nil {
		logger = logging.NewNop()
	}
	finder := &Finder{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger.With(logging.String(logging.FieldComponent, "images")),
	}
	if search, err := NewSearchClient(cfg.GoogleAPIKey, cfg.GoogleCSEID); err == nil {
		finder.search = search
	}
	for _, opt := range opts {
		opt(finder)
	}
	return finder
}

// Enabled reports whether candidate search is configured.
func (f *Finder) Enabled() bool {
	return f != nil && f.search != nil
}

func (f *Finder) maxCandidates() int {
	if f.cfg.MaxCandidates > 0 {
		return f.cfg.MaxCandidates
	}
	return defaultMaxCandidates
}

func (f *Finder) minWidth() int {
	if f.cfg.MinWidth > 0 {
		return f.cfg.MinWidth
	}
	return defaultMinWidth
}

func (f *Finder) minHeight() int {
	if f.cfg.MinHeight > 0 {
		return f.cfg.MinHeight
	}
	return defaultMinHeight
}

func (f *Finder) maxImageBytes() int64 {
	mib := f.cfg.MaxImageMiB
	if mib <= 0 {
		mib = defaultMaxImageMiB
	}
	return int64(mib) * 1024 * 1024
}

// Enhance searches for better artwork for the record and rates every
// candidate alongside the record's current image. It returns nil when
// search is not configured or nothing could be rated; it never mutates the
// record. Individual candidate failures are logged and skipped.
func (f *Finder) Enhance(ctx context.Context, record *events.Record, report func(message string, fraction float64)) *events.ImageSearch {
	if !f.Enabled() || record == nil {
		return nil
	}
	if report == nil {
		report = func(string, float64) {}
	}

	result := &events.ImageSearch{}
	originalURL := record.PrimaryImage()
	if originalURL != "" {
		report("Rating original image", 0.05)
		original := f.rate(ctx, originalURL)
		original.Source = SourceOriginal
		result.Original = &original
	}

	queries := buildQueries(record)
	report(fmt.Sprintf("Searching with %d queries", len(queries)), 0.15)
	found := f.collectCandidates(ctx, queries, report)

	report(fmt.Sprintf("Rating %d candidates", len(found)), 0.5)
	rated := f.rateCandidates(ctx, found, report)
	applyContextScores(record, rated)
	for i := range rated {
		if rated[i].candidate.Score > 0 {
			result.Candidates = append(result.Candidates, rated[i].candidate)
		}
	}

	report("Selecting best image", 0.95)
	if best := result.Best(); best != nil {
		selected := *best
		result.Selected = &selected
		f.logger.Info("image selected",
			logging.String(logging.FieldURL, selected.URL),
			logging.Int("score", selected.Score),
			logging.String("source", selected.Source))
	}
	if result.Original == nil && len(result.Candidates) == 0 {
		return nil
	}
	return result
}

// foundCandidate pairs a candidate URL with the text surrounding it in the
// search results.
type foundCandidate struct {
	url     string
	source  string
	context string
}

type ratedCandidate struct {
	candidate events.ImageCandidate
	context   string
}

func (f *Finder) collectCandidates(ctx context.Context, queries []string, report func(string, float64)) []foundCandidate {
	var found []foundCandidate
	seen := make(map[string]struct{})
	for i, query := range queries {
		if ctx.Err() != nil {
			break
		}
		report(fmt.Sprintf("Query %d/%d: %q", i+1, len(queries), query), 0.15+float64(i+1)/float64(len(queries))*0.3)
		results, err := f.search.SearchImages(ctx, query, f.maxCandidates())
		if err != nil {
			f.logger.Warn("image search query failed",
				logging.String("query", query),
				logging.Error(err))
			continue
		}
		for _, result := range results {
			if result.Link == "" {
				continue
			}
			if _, dup := seen[result.Link]; dup {
				continue
			}
			seen[result.Link] = struct{}{}
			found = append(found, foundCandidate{
				url:     result.Link,
				source:  fmt.Sprintf("query_%d", i),
				context: strings.TrimSpace(result.Title + " " + result.Snippet),
			})
		}
	}
	return found
}

func (f *Finder) rateCandidates(ctx context.Context, found []foundCandidate, report func(string, float64)) []ratedCandidate {
	rated := make([]ratedCandidate, 0, len(found))
	for i := range found {
		if ctx.Err() != nil {
			break
		}
		report(fmt.Sprintf("Rating image %d/%d", i+1, len(found)), 0.5+float64(i+1)/float64(len(found))*0.4)
		candidate := f.rate(ctx, found[i].url)
		candidate.Source = found[i].source
		if candidate.Score <= 0 {
			f.logger.Debug("candidate rejected",
				logging.String(logging.FieldURL, found[i].url),
				logging.String("reason", candidate.Reason))
			continue
		}
		rated = append(rated, ratedCandidate{candidate: candidate, context: found[i].context})
	}
	return rated
}

// rate downloads and scores one image. A zero score means the image is
// unusable; the reason says why.
func (f *Finder) rate(ctx context.Context, imageURL string) events.ImageCandidate {
	candidate := events.ImageCandidate{URL: imageURL}

	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.Host == "" {
		candidate.Reason = "Invalid URL"
		return candidate
	}
	host := strings.ToLower(parsed.Host)
	if matchesDomain(host, avoidDomains) {
		candidate.Reason = "Domain is blacklisted"
		return candidate
	}

	data, _, err := f.Fetch(ctx, imageURL)
	if err != nil {
		candidate.Reason = "Invalid or inaccessible image"
		return candidate
	}
	dims, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		candidate.Reason = "Undecodable image"
		return candidate
	}
	if dims.Width < f.minWidth() || dims.Height < f.minHeight() {
		candidate.Reason = fmt.Sprintf("Too small (%dx%d)", dims.Width, dims.Height)
		return candidate
	}
	candidate.Dimensions = fmt.Sprintf("%dx%d", dims.Width, dims.Height)

	score := 0
	var reasons []string
	if matchesDomain(host, priorityDomains) {
		score += 20
		reasons = append(reasons, "Priority domain")
	}
	if len(data) > 100*1024 {
		score += 30
		reasons = append(reasons, "Good size")
	}
	if format == "jpeg" {
		score += 10
		reasons = append(reasons, "JPEG format")
	}
	candidate.Score = 100 + score
	if len(reasons) > 0 {
		candidate.Reason = strings.Join(reasons, ", ")
	} else {
		candidate.Reason = "OK"
	}
	return candidate
}

// Fetch downloads an image, enforcing the size cap, and returns the bytes
// with the MIME type derived from the decoded format.
func (f *Finder) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("image download returned %d", resp.StatusCode)
	}

	limit := f.maxImageBytes()
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, "", fmt.Errorf("image exceeds %d byte limit", limit)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("empty image body")
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	return data, "image/" + format, nil
}

// Validate checks downloaded image bytes against the configured minimum
// dimensions and returns them.
func (f *Finder) Validate(data []byte) (width, height int, err error) {
	dims, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode image: %w", err)
	}
	if dims.Width < f.minWidth() || dims.Height < f.minHeight() {
		return dims.Width, dims.Height, fmt.Errorf("image %dx%d below minimum %dx%d",
			dims.Width, dims.Height, f.minWidth(), f.minHeight())
	}
	return dims.Width, dims.Height, nil
}

func matchesDomain(host string, domains []string) bool {
	for _, domain := range domains {
		if strings.Contains(host, domain) {
			return true
		}
	}
	return false
}

// applyContextScores bumps candidates whose surrounding search text
// resembles the event. IDF weighting across the candidate contexts keeps
// ticketing boilerplate from scoring.
func applyContextScores(record *events.Record, rated []ratedCandidate) {
	if len(rated) == 0 {
		return
	}
	corpus := textutil.NewCorpus()
	contextPrints := make([]*textutil.Fingerprint, len(rated))
	for i := range rated {
		contextPrints[i] = textutil.NewFingerprint(rated[i].context)
		corpus.Add(contextPrints[i])
	}
	idf := corpus.IDF()

	eventText := strings.Join([]string{record.Title, record.Venue, strings.Join(record.Lineup, " ")}, " ")
	eventPrint := textutil.NewFingerprint(eventText).WithIDF(idf)
	if eventPrint == nil {
		return
	}
	for i := range rated {
		similarity := textutil.CosineSimilarity(eventPrint, contextPrints[i].WithIDF(idf))
		bonus := int(math.Round(similarity * contextBonus))
		if bonus <= 0 {
			continue
		}
		rated[i].candidate.Score += bonus
		rated[i].candidate.Reason += ", matches event text"
	}
}

// buildQueries picks image search queries: artist-focused when a lineup is
// present, event-focused otherwise.
func buildQueries(record *events.Record) []string {
	if len(record.Lineup) > 0 {
		artist := record.Lineup[0]
		return []string{
			fmt.Sprintf("%q press photo", artist),
			fmt.Sprintf("%q musician official photo", artist),
			fmt.Sprintf("%q band photo", artist),
		}
	}
	name := primarySubject(record)
	queries := []string{
		name + " event poster",
		name + " flyer",
	}
	if record.Venue != "" {
		queries = append(queries, record.Venue+" event "+name)
	} else {
		queries = append(queries, name+" event")
	}
	return queries
}

// primarySubject reduces the title to the headline act: HTML entities
// decoded, the "at <venue>" tail and live-set suffixes removed.
func primarySubject(record *events.Record) string {
	title := html.UnescapeString(record.Title)
	if record.Venue != "" {
		venuePattern, err := regexp.Compile(`(?i)\s+at\s+` + regexp.QuoteMeta(record.Venue) + `\s*$`)
		if err == nil {
			title = venuePattern.ReplaceAllString(title, "")
		}
	}
	title = liveSuffixPattern.ReplaceAllString(title, "")
	return strings.TrimSpace(title)
}
