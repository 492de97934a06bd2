package fetch

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var feedLinkTypes = map[string]bool{
	"application/rss+xml":   true,
	"application/atom+xml":  true,
	"application/rdf+xml":   true,
	"application/feed+json": true,
}

// discoverFeedURL returns the first feed advertised by an HTML page through
// <link rel="alternate">, resolved against pageURL.
func discoverFeedURL(page []byte, pageURL string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", false
	}

	var href string
	doc.Find(`link[rel~="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkType := strings.ToLower(strings.TrimSpace(s.AttrOr("type", "")))
		if !feedLinkTypes[linkType] {
			return true
		}
		href = strings.TrimSpace(s.AttrOr("href", ""))
		return href == ""
	})

	if href == "" {
		return "", false
	}

	resolved, err := ensureAbsoluteURL(pageURL, href)
	if err != nil {
		return "", false
	}

	return resolved, true
}

func ensureAbsoluteURL(baseURL, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err == nil && u.IsAbs() {
		return ref, nil
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	rel, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	return base.ResolveReference(rel).String(), nil
}
