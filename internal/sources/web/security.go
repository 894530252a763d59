package web

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// Documents shorter than this are interstitials, not event pages.
	minDocumentChars = 100
	minBodyTextChars = 200
)

// Phrases that only show up on bot checks, rate-limit pages, and outage
// interstitials. Matched against the lowercased document.
var securityPatterns = compilePatterns(
	`browsing activity.*paused.*unusual behavior`,
	`security check.*in progress`,
	`access.*temporarily.*restricted`,
	`please verify.*you.*human`,
	`cloudflare.*(security|checking|challenge)`,
	`ddos.*protection.*active`,
	`bot.*activity.*detected`,
	`automated.*traffic.*blocked`,
	`rate.*limit.*exceeded`,
	`temporarily.*unavailable`,
	`maintenance.*mode`,
	`service.*temporarily.*unavailable`,
	`access.*denied`,
	`complete.*captcha.*to.*continue`,
	`solve.*captcha.*to.*proceed`,
	`captcha.*required.*to.*access`,
	`verify.*captcha.*below`,
	`please.*complete.*the.*captcha`,
	`captcha.*verification.*required`,
)

// Bare "captcha" is excluded: pages embedding form reCAPTCHA would trip it.
var securityIndicators = []string{
	"unusual behavior",
	"security check",
	"ddos protection",
	"rate limit",
	"bot detection",
	"automated traffic",
	"verify you are human",
}

// Markers of legitimate reCAPTCHA use inside registration, RSVP, and
// contact forms. Any of these disqualifies the page as a blocking captcha.
var formCaptchaMarkers = []string{
	"recaptcha-regmodal",
	"recaptcha-rsvpmodal",
	"recaptcha-giveawaymodal",
	"grecaptcha.render",
	"onload=recaptchaready",
	"form",
	"register",
	"login",
	"contact",
}

var blockingCaptchaPatterns = compilePatterns(
	`<title[^>]*>[^<]*(?:captcha|verify|challenge|security)[^<]*</title>`,
	`<h1[^>]*>[^<]*(?:complete.*captcha|verify.*human|security.*check)[^<]*</h1>`,
	`(?:complete|solve|verify).*captcha.*(?:continue|proceed|access)`,
	`checking.*browser.*before.*accessing`,
	`ray.*id.*[a-f0-9]{16}`,
)

var errorTitleWords = regexp.MustCompile(`error|403|503|blocked|denied`)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, pattern := range patterns {
		compiled[i] = regexp.MustCompile(pattern)
	}
	return compiled
}

// DetectSecurityPage reports whether the rendered document is a bot check,
// captcha challenge, rate-limit notice, or similar interstitial instead of
// event content. The reason names the heuristic that matched.
func DetectSecurityPage(html, pageURL string) (reason string, blocked bool) {
	if len(strings.TrimSpace(html)) < minDocumentChars {
		return "empty or minimal content from " + pageURL, true
	}

	lowered := strings.ToLower(html)
	for _, pattern := range securityPatterns {
		if pattern.MatchString(lowered) {
			return "security pattern detected: " + pattern.String(), true
		}
	}
	for _, indicator := range securityIndicators {
		if strings.Contains(lowered, indicator) {
			return "security indicator found: " + indicator, true
		}
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		if len(strings.TrimSpace(doc.Text())) < minBodyTextChars {
			return "suspiciously short content", true
		}
		title := strings.ToLower(doc.Find("title").First().Text())
		if errorTitleWords.MatchString(title) {
			return "error page detected in title", true
		}
	}

	if isBlockingCaptcha(lowered) {
		return "standalone captcha challenge detected", true
	}
	if strings.Contains(strings.ToLower(pageURL), "cloudflare") && strings.Contains(lowered, "challenge") {
		return "cloudflare challenge page", true
	}
	return "", false
}

// isBlockingCaptcha separates a standalone captcha wall from a page that
// merely embeds reCAPTCHA in a form.
func isBlockingCaptcha(lowered string) bool {
	for _, marker := range formCaptchaMarkers {
		if strings.Contains(lowered, marker) {
			return false
		}
	}
	for _, pattern := range blockingCaptchaPatterns {
		if pattern.MatchString(lowered) {
			return true
		}
	}
	return false
}
