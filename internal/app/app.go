package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"OsintGraph/internal/config"
	"OsintGraph/internal/domain"
	"OsintGraph/internal/infrastructure/digest"
	"OsintGraph/internal/infrastructure/enrich"
	"OsintGraph/internal/infrastructure/extract"
	"OsintGraph/internal/infrastructure/feed"
	"OsintGraph/internal/infrastructure/scheduler"
	"OsintGraph/internal/infrastructure/storage"
	"OsintGraph/internal/logging"
	"OsintGraph/internal/source"
	"OsintGraph/internal/usecase"
)

// Application wires configuration to use cases and owns shared resources.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	store    *storage.SQLiteStore
	registry *source.Registry
	enricher *enrich.GeminiClient
	pipeline *usecase.Pipeline
}

// New opens the graph store and builds the ingestion pipeline.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	store, err := storage.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open graph store: %w", err)
	}

	httpClient := &http.Client{Timeout: cfg.Extraction.Timeout()}

	registry := source.NewRegistry()
	if cfg.Digest.Enabled {
		fetcher := digest.NewFileMailFetcher(cfg.Digest.MailDir,
			time.Duration(cfg.Digest.LookbackDays)*24*time.Hour,
			baseLogger.With("component", "mail"))
		registry.Register(digest.NewAlertProvider(fetcher, baseLogger.With("component", "source.digest")))
	}
	for _, feedCfg := range cfg.Feeds {
		registry.Register(feed.NewRSSProvider(feedCfg.Name, feedCfg.URL, httpClient,
			baseLogger.With("component", "source.rss")))
	}

	enricher := enrich.NewGeminiClient(enrich.Options{
		Endpoint:      cfg.Enrichment.Endpoint,
		Model:         cfg.Enrichment.Model,
		APIKey:        cfg.Enrichment.APIKey,
		Categories:    cfg.Enrichment.Categories,
		Severities:    cfg.Enrichment.Severities,
		MinTextLength: cfg.Enrichment.MinTextLength,
		Policy: enrich.RetryPolicy{
			MaxAttempts: cfg.Enrichment.MaxAttempts,
			Delay:       cfg.Enrichment.RetryDelay(),
		},
		HTTPClient: &http.Client{Timeout: cfg.Enrichment.Timeout()},
		Logger:     baseLogger.With("component", "enrich"),
	})

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:     registry,
		Store:       store,
		Extractor:   extract.NewHTTPExtractor(httpClient, cfg.Extraction.MinTextLength),
		Enricher:    enricher,
		EnrichDelay: cfg.Enrichment.RequestDelay(),
		Logger:      baseLogger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   baseLogger,
		store:    store,
		registry: registry,
		enricher: enricher,
		pipeline: pipeline,
	}, nil
}

// RunIngestion performs one ingestion pass over the named sources (all
// configured sources when names is empty).
func (a *Application) RunIngestion(ctx context.Context, sources []string) (domain.RunStats, error) {
	return a.pipeline.Run(ctx, sources)
}

// RunReprocess heals fallback records using the heavy extraction tier. The
// browser is launched per invocation because of its cost.
func (a *Application) RunReprocess(ctx context.Context, sourceName string) (domain.ReprocessStats, error) {
	browser, err := extract.NewBrowserExtractor(
		a.cfg.Extraction.MinTextLength,
		a.cfg.Extraction.BrowserTimeout(),
		a.cfg.Extraction.BrowserWorkers,
	)
	if err != nil {
		return domain.ReprocessStats{}, fmt.Errorf("launch heavy extraction tier: %w", err)
	}
	defer browser.Close()

	reprocessor := usecase.NewReprocessor(usecase.ReprocessorDeps{
		Store:       a.store,
		Extractor:   browser,
		Enricher:    a.enricher,
		EnrichDelay: a.cfg.Enrichment.RequestDelay(),
		Logger:      a.logger.With("component", "reprocess"),
	})
	return reprocessor.Run(ctx, sourceName)
}

// RunDaemon blocks, executing recurring ingestion passes until the context
// is cancelled.
func (a *Application) RunDaemon(ctx context.Context) error {
	driver := scheduler.NewTickerScheduler(a.cfg.Scheduler.Interval())
	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return sched.Stop(context.Background())
}

// Close releases the graph store.
func (a *Application) Close() error {
	return a.store.Close()
}
