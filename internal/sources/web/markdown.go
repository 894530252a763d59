package web

import (
	"errors"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
)

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// cleanDocument drops markup that carries no event content. On parse
// failure the document passes through unchanged.
func cleanDocument(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, link, meta, svg, noscript").Remove()
	cleaned, err := doc.Html()
	if err != nil {
		return html
	}
	return cleaned
}

// toMarkdown converts the rendered document into the markdown fed to the
// extraction model. Relative links resolve against the source URL.
func (s *Source) toMarkdown(html, sourceURL string) (string, error) {
	markdown, err := s.mdConverter.ConvertString(cleanDocument(html), converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return "", errors.New("page produced no markdown content")
	}
	return markdown, nil
}
