package extract

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"OsintGraph/internal/ports"
)

// Chrome-like headers reduce anti-scraping friction on news sites that
// reject obvious bot user agents.
var impersonationHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36",
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.9",
}

// HTTPExtractor is the primary tier: one fetch, one parse, fail fast.
type HTTPExtractor struct {
	client *http.Client
	minLen int
}

var _ ports.Extractor = (*HTTPExtractor)(nil)

// NewHTTPExtractor wires an HTTP client; timeout and minLen fall back to
// sane defaults when zero.
func NewHTTPExtractor(client *http.Client, minLen int) *HTTPExtractor {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	return &HTTPExtractor{client: client, minLen: minLen}
}

// Extract fetches the page and returns its readable text and publication
// date. There is no internal retry: exhaustion here means the caller decides
// between synthesized text and the heavy tier.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (string, *time.Time, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "build request", Err: err}
	}
	for key, value := range impersonationHeaders {
		req.Header.Set(key, value)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "fetch", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, &ExtractionError{URL: url, Reason: "status " + resp.Status}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "parse document", Err: err}
	}

	text := articleText(doc)
	if len(text) < e.minLen {
		return "", nil, &ExtractionError{URL: url, Reason: "content too short"}
	}

	return text, publishDate(doc), nil
}
