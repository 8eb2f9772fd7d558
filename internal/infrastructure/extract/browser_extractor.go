package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	pw "github.com/playwright-community/playwright-go"

	"OsintGraph/internal/ports"
)

// BrowserExtractor is the heavy tier: it renders the page in a headless
// browser so client-side script runs before parsing. Materially slower and
// more expensive than the primary tier; reserved for reprocessing and
// explicit retries.
type BrowserExtractor struct {
	runner  *pw.Playwright
	browser pw.Browser
	minLen  int
	timeout time.Duration
	slots   chan struct{}
}

var _ ports.Extractor = (*BrowserExtractor)(nil)

// NewBrowserExtractor launches a headless Chromium instance. Concurrent
// renders are capped at workers pages.
func NewBrowserExtractor(minLen int, timeout time.Duration, workers int) (*BrowserExtractor, error) {
	if minLen <= 0 {
		minLen = DefaultMinTextLength
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if workers <= 0 {
		workers = 2
	}

	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	browser, err := runner.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(true),
		Args:     []string{"--no-sandbox"},
	})
	if err != nil {
		runner.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &BrowserExtractor{
		runner:  runner,
		browser: browser,
		minLen:  minLen,
		timeout: timeout,
		slots:   make(chan struct{}, workers),
	}, nil
}

// Extract renders the page and returns its readable text and publication date.
func (e *BrowserExtractor) Extract(ctx context.Context, url string) (string, *time.Time, error) {
	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return "", nil, &ExtractionError{URL: url, Reason: "render slot", Err: ctx.Err()}
	}

	page, err := e.browser.NewPage()
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "new page", Err: err}
	}
	defer page.Close()

	if _, err := page.Goto(url, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
		Timeout:   pw.Float(float64(e.timeout.Milliseconds())),
	}); err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "navigate", Err: err}
	}

	html, err := page.Content()
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "page content", Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", nil, &ExtractionError{URL: url, Reason: "parse document", Err: err}
	}

	text := articleText(doc)
	if len(text) < e.minLen {
		return "", nil, &ExtractionError{URL: url, Reason: "content too short"}
	}

	return text, publishDate(doc), nil
}

// Close tears down the browser and the playwright driver.
func (e *BrowserExtractor) Close() error {
	if err := e.browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return e.runner.Stop()
}
