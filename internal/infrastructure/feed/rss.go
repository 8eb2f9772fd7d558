// Package feed provides the RSS source: each configured feed becomes one
// provider yielding candidate items.
package feed

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"

	"OsintGraph/internal/canonical"
	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
)

const (
	// Only the newest entries of each feed are considered per pass.
	defaultEntryLimit = 10
	// Descriptions are snippets, not bodies; keep them short.
	descriptionLimit = 200
)

// RSSProvider fetches and parses one RSS/Atom feed.
type RSSProvider struct {
	name     string
	url      string
	parser   *gofeed.Parser
	sanitize *bluemonday.Policy
	limit    int
	logger   *slog.Logger
}

var _ ports.SourceProvider = (*RSSProvider)(nil)

// NewRSSProvider builds a provider for a single feed.
func NewRSSProvider(name, url string, client *http.Client, logger *slog.Logger) *RSSProvider {
	parser := gofeed.NewParser()
	if client != nil {
		parser.Client = client
	}
	return &RSSProvider{
		name:     name,
		url:      url,
		parser:   parser,
		sanitize: bluemonday.StrictPolicy(),
		limit:    defaultEntryLimit,
		logger:   logger,
	}
}

// Name identifies this provider in stored articles and run reports.
func (p *RSSProvider) Name() string {
	return "RSS: " + p.name
}

// FetchCandidates pulls the feed and converts its newest entries into
// candidates. Transport and parse problems surface as an error; the caller
// skips this source for the pass.
func (p *RSSProvider) FetchCandidates(ctx context.Context) ([]domain.Candidate, error) {
	parsed, err := p.parser.ParseURLWithContext(p.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", p.name, err)
	}

	limit := p.limit
	if len(parsed.Items) < limit {
		limit = len(parsed.Items)
	}

	candidates := make([]domain.Candidate, 0, limit)
	for _, item := range parsed.Items[:limit] {
		if item.Link == "" {
			continue
		}

		date := time.Now()
		if item.PublishedParsed != nil {
			date = *item.PublishedParsed
		}

		candidates = append(candidates, domain.Candidate{
			Title:         strings.TrimSpace(item.Title),
			URL:           canonical.Resolve(item.Link),
			Description:   p.snippet(item.Description),
			SourceName:    p.Name(),
			SuggestedDate: date,
		})
	}

	p.debug("feed fetched", "feed", p.name, "candidates", len(candidates))
	return candidates, nil
}

// snippet strips markup and entities from a feed summary and truncates it.
func (p *RSSProvider) snippet(description string) string {
	text := p.sanitize.Sanitize(description)
	text = html.UnescapeString(text)
	text = strings.Join(strings.Fields(text), " ")

	runes := []rune(text)
	if len(runes) > descriptionLimit {
		return string(runes[:descriptionLimit])
	}
	return text
}

func (p *RSSProvider) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}
