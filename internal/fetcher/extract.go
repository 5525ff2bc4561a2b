package fetcher

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractLinks returns the absolute http(s) targets of every a[href] in body,
// resolved against pageURL (or the document's <base href>).
// Duplicates are dropped while document order is kept.
func ExtractLinks(pageURL *url.URL, body []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base := resolveBase(pageURL, doc)

	seen := make(map[string]bool)
	links := make([]string, 0)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		link, ok := resolveLink(base, href)
		if !ok || seen[link] {
			return
		}
		seen[link] = true
		links = append(links, link)
	})

	return links, nil
}

// resolveBase honours a <base href> element when present
func resolveBase(pageURL *url.URL, doc *goquery.Document) *url.URL {
	href, exists := doc.Find("base[href]").First().Attr("href")
	if !exists {
		return pageURL
	}

	base, err := pageURL.Parse(strings.TrimSpace(href))
	if err != nil {
		return pageURL
	}
	return base
}

// resolveLink turns href into an absolute http(s) URL string
func resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}

	target, err := base.Parse(href)
	if err != nil {
		return "", false
	}

	if target.Scheme != "http" && target.Scheme != "https" {
		return "", false
	}
	if target.Host == "" {
		return "", false
	}

	return target.String(), true
}

// isHTML reports whether a Content-Type header describes an HTML document.
// A missing header is treated as HTML.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "html")
}
