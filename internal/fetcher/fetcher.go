package fetcher

import (
	"context"
	"fmt"
	"time"

	"github.com/alvmarrod/source-weaver/internal/config"
	"github.com/gocolly/colly/v2"
	"github.com/sirupsen/logrus"
)

// Fetcher retrieves pages with colly and extracts their outbound links
type Fetcher struct {
	collector *colly.Collector
}

// NewFetcher creates a synchronous collector configured from cfg.
// Revisits are allowed because deduplication belongs to the crawler.
func NewFetcher(cfg *config.Config) *Fetcher {
	collector := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.MaxDepth(0),
		colly.UserAgent(cfg.UserAgent),
		colly.MaxBodySize(cfg.MaxBodyBytes),
	)

	collector.SetRequestTimeout(time.Duration(cfg.RequestTimeoutMs) * time.Millisecond)

	return &Fetcher{collector: collector}
}

// FetchLinks downloads pageURL and returns its outbound links.
// Network and HTTP status failures return *FetchError, unusable content *ParseError.
func (f *Fetcher) FetchLinks(ctx context.Context, pageURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	// Per-call clone so callbacks never see another page's state
	collector := f.collector.Clone()

	var links []string
	var parseErr error
	statusCode := 0

	collector.OnResponse(func(r *colly.Response) {
		statusCode = r.StatusCode

		if !isHTML(r.Headers.Get("Content-Type")) {
			parseErr = &ParseError{URL: pageURL, Err: ErrNotHTML}
			return
		}

		extracted, err := ExtractLinks(r.Request.URL, r.Body)
		if err != nil {
			parseErr = &ParseError{URL: pageURL, Err: err}
			return
		}
		links = extracted
	})

	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			statusCode = r.StatusCode
		}
	})

	if err := collector.Visit(pageURL); err != nil {
		return nil, &FetchError{URL: pageURL, StatusCode: statusCode, Err: err}
	}

	if parseErr != nil {
		return nil, parseErr
	}

	if links == nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("no response received")}
	}

	logrus.Debugf("Fetched %s (status=%d, links=%d)", pageURL, statusCode, len(links))
	return links, nil
}
