package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
)

// ReprocessorDeps wires the heavy extraction tier and the rest of the
// healing workflow.
type ReprocessorDeps struct {
	Store       ports.GraphStore
	Extractor   ports.Extractor
	Enricher    ports.Enricher
	EnrichDelay time.Duration
	Logger      *slog.Logger
}

// Reprocessor re-enriches articles still tagged fallback, using the
// expensive rendering tier that normal runs avoid. Safe to re-run
// arbitrarily often: healed records leave the fallback set, failed ones stay
// untouched and eligible for the next pass.
type Reprocessor struct {
	store       ports.GraphStore
	extractor   ports.Extractor
	enricher    ports.Enricher
	enrichDelay time.Duration
	logger      *slog.Logger
}

// NewReprocessor constructs the healing workflow.
func NewReprocessor(deps ReprocessorDeps) *Reprocessor {
	return &Reprocessor{
		store:       deps.Store,
		extractor:   deps.Extractor,
		enricher:    deps.Enricher,
		enrichDelay: deps.EnrichDelay,
		logger:      deps.Logger,
	}
}

// Run reprocesses every fallback article, optionally restricted to one
// source name ("" means all).
func (r *Reprocessor) Run(ctx context.Context, sourceName string) (domain.ReprocessStats, error) {
	var stats domain.ReprocessStats

	articles, err := r.store.FallbackArticles(ctx, sourceName)
	if err != nil {
		return stats, err
	}
	r.info("reprocessing fallback articles", "count", len(articles), "source", sourceName)

	for _, article := range articles {
		stats.Attempted++

		healed, err := r.heal(ctx, article)
		if err != nil {
			return stats, err
		}
		if healed {
			stats.Healed++
		} else {
			stats.StillFailed++
		}
	}

	return stats, nil
}

// heal re-extracts and re-enriches one article. Returns false when the
// record must stay fallback; only fatal or store errors propagate.
func (r *Reprocessor) heal(ctx context.Context, article domain.Article) (bool, error) {
	text, published, err := r.extractor.Extract(ctx, article.URL)
	if err != nil {
		r.debug("heavy extraction failed, using stored fields", "url", article.URL, "error", err)
		text = article.Title + " - " + article.Description
	}

	if r.enrichDelay > 0 {
		select {
		case <-time.After(r.enrichDelay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}

	enrichment, err := r.enricher.Enrich(ctx, text)
	if err != nil {
		if errors.Is(err, ports.ErrFatalConfiguration) {
			return false, err
		}
		r.debug("article stays fallback", "url", article.URL, "error", err)
		return false, nil
	}

	updated := article
	updated.SourceIndicator = domain.IndicatorAI
	updated.Summary = enrichment.Summary
	updated.Category = enrichment.Category
	updated.Severity = enrichment.Severity
	if published != nil {
		updated.PublishDate = published
	}

	if err := r.store.UpdateArticle(ctx, updated, enrichment.Entities()); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Reprocessor) debug(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}

func (r *Reprocessor) info(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}
