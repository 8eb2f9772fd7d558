// Package extract implements the two content-extraction tiers: a cheap
// HTTP fetch with browser-like headers, and an expensive headless-browser
// render reserved for retries and reprocessing.
package extract

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// DefaultMinTextLength rejects pages whose readable text is too short to be
// a real article (cookie walls, bot checks, stub pages).
const DefaultMinTextLength = 100

// ExtractionError reports that content could not be retrieved or parsed
// above the minimum-length threshold.
type ExtractionError struct {
	URL    string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Reason, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// articleText pulls the readable body text out of a parsed page: paragraph
// text from the main article container when one exists, the whole body
// otherwise. Script, style and navigation chrome are removed first.
func articleText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, aside, form, noscript").Remove()

	scope := doc.Find("article").First()
	if scope.Length() == 0 {
		scope = doc.Find("main").First()
	}
	if scope.Length() == 0 {
		scope = doc.Find("body").First()
	}

	var parts []string
	scope.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})

	if len(parts) == 0 {
		return strings.TrimSpace(scope.Text())
	}
	return strings.Join(parts, "\n\n")
}

// publishDate looks for common publication-date markup. Returns nil when
// nothing parseable is present.
func publishDate(doc *goquery.Document) *time.Time {
	candidates := []string{}

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[name="article:published_time"]`,
		`meta[name="date"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			candidates = append(candidates, v)
		}
	}
	if v, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		candidates = append(candidates, v)
	}

	layouts := []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	for _, raw := range candidates {
		raw = strings.TrimSpace(raw)
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, raw); err == nil {
				return &parsed
			}
		}
	}
	return nil
}
