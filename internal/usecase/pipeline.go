package usecase

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
	"OsintGraph/internal/source"
	"OsintGraph/internal/tags"
)

// PipelineDeps wires all driven adapters into the ingestion orchestration.
type PipelineDeps struct {
	Sources     *source.Registry
	Store       ports.GraphStore
	Extractor   ports.Extractor
	Enricher    ports.Enricher
	Coverage    ports.CoverageChecker
	EnrichDelay time.Duration
	Logger      *slog.Logger
}

// Pipeline drives one full ingestion pass: fetch candidates, dedup, extract,
// enrich (or fall back), persist, count.
type Pipeline struct {
	sources     *source.Registry
	store       ports.GraphStore
	extractor   ports.Extractor
	enricher    ports.Enricher
	coverage    ports.CoverageChecker
	enrichDelay time.Duration
	logger      *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		sources:     deps.Sources,
		store:       deps.Store,
		extractor:   deps.Extractor,
		enricher:    deps.Enricher,
		coverage:    deps.Coverage,
		enrichDelay: deps.EnrichDelay,
		logger:      deps.Logger,
	}
}

// Run executes one ingestion pass over the named sources (all registered
// sources when names is empty). Per-item and per-source failures are
// contained; only fatal configuration errors and store failures abort.
func (p *Pipeline) Run(ctx context.Context, sourceNames []string) (domain.RunStats, error) {
	var stats domain.RunStats

	providers, err := p.sources.Select(sourceNames)
	if err != nil {
		return stats, err
	}

	candidates := p.fetchAll(ctx, providers)
	p.debug("candidates collected", "count", len(candidates))

	for _, candidate := range candidates {
		itemStats, err := p.processItem(ctx, candidate)
		stats.Merge(itemStats)
		if err != nil {
			return stats, err
		}
	}

	return stats, nil
}

// fetchAll gathers candidates from every provider concurrently. A provider
// failure skips that source for the pass; it never fails the run.
func (p *Pipeline) fetchAll(ctx context.Context, providers []ports.SourceProvider) []domain.Candidate {
	var (
		mu       sync.Mutex
		gathered []domain.Candidate
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, provider := range providers {
		provider := provider
		g.Go(func() error {
			items, err := provider.FetchCandidates(gctx)
			if err != nil {
				p.warn("source skipped", "source", provider.Name(), "error", err)
				return nil
			}
			mu.Lock()
			gathered = append(gathered, items...)
			mu.Unlock()
			return nil
		})
	}
	// Workers only report nil; Wait is for completion.
	_ = g.Wait()

	return gathered
}

// processItem runs one candidate through the gate/dedup/extract/enrich/write
// sequence and returns the counters it contributed.
func (p *Pipeline) processItem(ctx context.Context, candidate domain.Candidate) (domain.RunStats, error) {
	stats := domain.RunStats{TotalProcessed: 1}

	if p.coverage != nil {
		covered, substitute, err := p.coverage.Covered(ctx, candidate.URL)
		if err != nil {
			p.warn("coverage check failed", "url", candidate.URL, "error", err)
		} else if covered {
			article := p.buildArticle(candidate, nil)
			article.SourceIndicator = domain.IndicatorHumanVerified
			article.Summary = substitute
			article.Category = domain.CategoryUnknown
			article.Severity = domain.SeverityUnknown
			if _, err := p.store.InsertArticle(ctx, article, nil); err != nil {
				return stats, err
			}
			stats.SkippedDuplicate = 1
			return stats, nil
		}
	}

	exists, err := p.store.HasArticle(ctx, candidate.URL)
	if err != nil {
		return stats, err
	}
	if exists {
		stats.SkippedDuplicate = 1
		return stats, nil
	}

	text, published, err := p.extractor.Extract(ctx, candidate.URL)
	if err != nil {
		p.debug("extraction degraded to synthesized text", "url", candidate.URL, "error", err)
		text = tags.Summary(candidate.Title, candidate.Description)
		published = nil
	}

	if err := p.pause(ctx); err != nil {
		return stats, err
	}

	enrichment, enrichErr := p.enricher.Enrich(ctx, text)
	if enrichErr != nil && errors.Is(enrichErr, ports.ErrFatalConfiguration) {
		return stats, enrichErr
	}

	article := p.buildArticle(candidate, published)
	var entities []domain.Entity

	if enrichErr == nil {
		article.SourceIndicator = domain.IndicatorAI
		article.Summary = enrichment.Summary
		article.Category = enrichment.Category
		article.Severity = enrichment.Severity
		entities = enrichment.Entities()
		stats.AISuccess = 1
	} else {
		p.debug("enrichment degraded to fallback", "url", candidate.URL, "error", enrichErr)
		article.SourceIndicator = domain.IndicatorFallback
		article.Summary = tags.Decorate(candidate.Title, candidate.Description)
		article.Category = domain.CategoryUnknown
		article.Severity = domain.SeverityUnknown
		stats.FallbackSummary = 1
	}

	inserted, err := p.store.InsertArticle(ctx, article, entities)
	if err != nil {
		return stats, err
	}
	if !inserted {
		// Lost a check-then-insert race; the existing record wins.
		return domain.RunStats{TotalProcessed: 1, SkippedDuplicate: 1}, nil
	}

	return stats, nil
}

func (p *Pipeline) buildArticle(candidate domain.Candidate, published *time.Time) domain.Article {
	date := published
	if date == nil && !candidate.SuggestedDate.IsZero() {
		suggested := candidate.SuggestedDate
		date = &suggested
	}
	return domain.Article{
		URL:         candidate.URL,
		Title:       candidate.Title,
		Description: candidate.Description,
		SourceName:  candidate.SourceName,
		PublishDate: date,
	}
}

// pause applies the fixed pre-enrichment delay that respects the analysis
// service's rate limit.
func (p *Pipeline) pause(ctx context.Context) error {
	if p.enrichDelay <= 0 {
		return nil
	}
	select {
	case <-time.After(p.enrichDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) debug(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
