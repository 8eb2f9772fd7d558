package ports

import (
	"context"
	"errors"
	"time"

	"OsintGraph/internal/domain"
)

// ErrEnrichmentUnavailable signals that enrichment was skipped or exhausted
// its retries; callers must fall back, never crash.
var ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

// ErrFatalConfiguration signals a missing or rejected credential/config value.
// It aborts the whole run immediately.
var ErrFatalConfiguration = errors.New("fatal configuration error")

// SourceProvider yields raw candidate items from one upstream source.
type SourceProvider interface {
	Name() string
	FetchCandidates(ctx context.Context) ([]domain.Candidate, error)
}

// Extractor retrieves readable article text for a URL.
type Extractor interface {
	Extract(ctx context.Context, url string) (text string, publishedAt *time.Time, err error)
}

// Enricher calls the external analysis service for summary, classification
// and entity extraction. Returns ErrEnrichmentUnavailable on degradation and
// ErrFatalConfiguration on credential problems.
type Enricher interface {
	Enrich(ctx context.Context, text string) (domain.Enrichment, error)
}

// GraphStore owns persistence of articles, entities and relationships.
type GraphStore interface {
	HasArticle(ctx context.Context, url string) (bool, error)
	// InsertArticle writes the article and its entity links as one unit.
	// A duplicate URL is a no-op; the existing record wins and inserted is false.
	InsertArticle(ctx context.Context, article domain.Article, entities []domain.Entity) (inserted bool, err error)
	// UpdateArticle rewrites the record identified by article.URL and fully
	// replaces its relationships with the given entities.
	UpdateArticle(ctx context.Context, article domain.Article, entities []domain.Entity) error
	// FallbackArticles lists records still tagged fallback, optionally
	// restricted to one source name ("" means all).
	FallbackArticles(ctx context.Context, sourceName string) ([]domain.Article, error)
	Close() error
}

// MailFetcher supplies raw RFC 822 digest messages; transport and auth live
// behind this boundary.
type MailFetcher interface {
	FetchDigests(ctx context.Context) ([][]byte, error)
}

// CoverageChecker reports whether a URL is already covered by a human
// channel and supplies the substitute summary to persist.
type CoverageChecker interface {
	Covered(ctx context.Context, url string) (covered bool, summary string, err error)
}

// Scheduler controls when recurring ingestion passes execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
