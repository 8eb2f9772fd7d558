package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"OsintGraph/internal/domain"
	"OsintGraph/internal/logging"
	"OsintGraph/internal/ports"
	"OsintGraph/internal/source"
)

// fakeStore is an in-memory GraphStore sufficient for orchestration tests.
type fakeStore struct {
	mu       sync.Mutex
	articles map[string]domain.Article
	links    map[string][]domain.Entity
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		articles: map[string]domain.Article{},
		links:    map[string][]domain.Entity{},
	}
}

func (s *fakeStore) HasArticle(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.articles[url]
	return ok, nil
}

func (s *fakeStore) InsertArticle(_ context.Context, article domain.Article, entities []domain.Entity) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.articles[article.URL]; ok {
		return false, nil
	}
	s.articles[article.URL] = article
	s.links[article.URL] = entities
	return true, nil
}

func (s *fakeStore) UpdateArticle(_ context.Context, article domain.Article, entities []domain.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.articles[article.URL]
	if !ok {
		return fmt.Errorf("no article for %s", article.URL)
	}
	article.ID = existing.ID
	article.CreatedAt = existing.CreatedAt
	s.articles[article.URL] = article
	s.links[article.URL] = entities
	return nil
}

func (s *fakeStore) FallbackArticles(_ context.Context, sourceName string) ([]domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Article
	for _, a := range s.articles {
		if a.SourceIndicator != domain.IndicatorFallback {
			continue
		}
		if sourceName != "" && a.SourceName != sourceName {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

type stubProvider struct {
	name       string
	candidates []domain.Candidate
	err        error
}

func (p stubProvider) Name() string { return p.name }

func (p stubProvider) FetchCandidates(context.Context) ([]domain.Candidate, error) {
	return p.candidates, p.err
}

type stubExtractor struct {
	text string
	err  error
}

func (e stubExtractor) Extract(context.Context, string) (string, *time.Time, error) {
	return e.text, nil, e.err
}

type stubEnricher struct {
	result domain.Enrichment
	err    error
	calls  int
	texts  []string
}

func (e *stubEnricher) Enrich(_ context.Context, text string) (domain.Enrichment, error) {
	e.calls++
	e.texts = append(e.texts, text)
	return e.result, e.err
}

func candidate(url string) domain.Candidate {
	return domain.Candidate{
		Title:         "Hospital breach",
		URL:           url,
		Description:   "ransomware actors exfiltrated data",
		SourceName:    "RSS: Test",
		SuggestedDate: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func registryWith(providers ...ports.SourceProvider) *source.Registry {
	registry := source.NewRegistry()
	for _, p := range providers {
		registry.Register(p)
	}
	return registry
}

func TestRunIngestsAndEnriches(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	enricher := &stubEnricher{result: domain.Enrichment{
		Summary:      "AI summary.",
		Category:     "Data Breach Report",
		Severity:     domain.SeverityHigh,
		ThreatActors: []string{"APT28"},
	}}

	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{candidate("https://example.com/a")}}),
		Store:     store,
		Extractor: stubExtractor{text: "long extracted article body"},
		Enricher:  enricher,
		Logger:    logging.Discard(),
	})

	stats, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, domain.RunStats{TotalProcessed: 1, AISuccess: 1}, stats)

	stored := store.articles["https://example.com/a"]
	require.Equal(t, domain.IndicatorAI, stored.SourceIndicator)
	require.Equal(t, "AI summary.", stored.Summary)
	require.Equal(t, "Data Breach Report", stored.Category)
	require.Equal(t, domain.SeverityHigh, stored.Severity)
	require.Equal(t, "Hospital breach", stored.Title)
	require.Equal(t, "ransomware actors exfiltrated data", stored.Description)
	require.Len(t, store.links["https://example.com/a"], 1)
}

func TestRunIsIdempotentAcrossPasses(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	provider := stubProvider{name: "RSS: Test", candidates: []domain.Candidate{candidate("https://example.com/a")}}
	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(provider),
		Store:     store,
		Extractor: stubExtractor{text: "body"},
		Enricher:  &stubEnricher{},
	})

	first, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 1, first.TotalProcessed)
	require.Zero(t, first.SkippedDuplicate)

	second, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, domain.RunStats{TotalProcessed: 1, SkippedDuplicate: 1}, second)
	require.Len(t, store.articles, 1, "exactly one record per canonical URL")
}

func TestRunDegradesToFallbackOnEnrichmentFailure(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{candidate("https://example.com/a")}}),
		Store:     store,
		Extractor: stubExtractor{err: fmt.Errorf("blocked by bot wall")},
		Enricher:  &stubEnricher{err: fmt.Errorf("%w: exhausted", ports.ErrEnrichmentUnavailable)},
	})

	stats, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err, "degraded items never abort the pass")
	require.Equal(t, domain.RunStats{TotalProcessed: 1, FallbackSummary: 1}, stats)

	stored := store.articles["https://example.com/a"]
	require.Equal(t, domain.IndicatorFallback, stored.SourceIndicator)
	require.Equal(t, domain.CategoryUnknown, stored.Category)
	require.Equal(t, domain.SeverityUnknown, stored.Severity)
	require.Contains(t, stored.Summary, "Hospital breach - ransomware actors exfiltrated data")
	require.Empty(t, store.links["https://example.com/a"])
}

func TestRunSynthesizesTextWhenExtractionFails(t *testing.T) {
	t.Parallel()

	enricher := &stubEnricher{result: domain.Enrichment{Summary: "s", Category: "General Cyber News", Severity: domain.SeverityLow}}
	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{candidate("https://example.com/a")}}),
		Store:     newFakeStore(),
		Extractor: stubExtractor{err: fmt.Errorf("too short")},
		Enricher:  enricher,
	})

	_, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, []string{"Hospital breach - ransomware actors exfiltrated data"}, enricher.texts)
}

func TestRunFatalConfigurationAborts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pipeline := NewPipeline(PipelineDeps{
		Sources: registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{
			candidate("https://example.com/a"),
			candidate("https://example.com/b"),
		}}),
		Store:     store,
		Extractor: stubExtractor{text: "body"},
		Enricher:  &stubEnricher{err: fmt.Errorf("%w: no key", ports.ErrFatalConfiguration)},
	})

	_, err := pipeline.Run(context.Background(), nil)
	require.ErrorIs(t, err, ports.ErrFatalConfiguration)
	require.Empty(t, store.articles, "nothing persisted after a fatal configuration error")
}

func TestRunSkipsFailingSource(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	pipeline := NewPipeline(PipelineDeps{
		Sources: registryWith(
			stubProvider{name: "RSS: Dead", err: fmt.Errorf("dns failure")},
			stubProvider{name: "RSS: Live", candidates: []domain.Candidate{candidate("https://example.com/live")}},
		),
		Store:     store,
		Extractor: stubExtractor{text: "body"},
		Enricher:  &stubEnricher{},
	})

	stats, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err, "a failing source skips that source, not the run")
	require.Equal(t, 1, stats.TotalProcessed)
	require.Contains(t, store.articles, "https://example.com/live")
}

func TestRunStatisticsConservation(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	// Pre-seed one duplicate.
	_, err := store.InsertArticle(context.Background(), domain.Article{URL: "https://example.com/dup"}, nil)
	require.NoError(t, err)

	enricher := &stubEnricher{err: fmt.Errorf("%w", ports.ErrEnrichmentUnavailable)}
	pipeline := NewPipeline(PipelineDeps{
		Sources: registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{
			candidate("https://example.com/dup"),
			candidate("https://example.com/new1"),
			candidate("https://example.com/new2"),
		}}),
		Store:     store,
		Extractor: stubExtractor{text: "body"},
		Enricher:  enricher,
	})

	stats, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, stats.TotalProcessed, stats.AISuccess+stats.FallbackSummary+stats.SkippedDuplicate)
	require.Equal(t, domain.RunStats{TotalProcessed: 3, FallbackSummary: 2, SkippedDuplicate: 1}, stats)
}

type stubCoverage struct {
	covered map[string]string
}

func (s stubCoverage) Covered(_ context.Context, url string) (bool, string, error) {
	summary, ok := s.covered[url]
	return ok, summary, nil
}

func TestRunHumanCoverageGate(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	enricher := &stubEnricher{}
	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(stubProvider{name: "RSS: Test", candidates: []domain.Candidate{candidate("https://example.com/covered")}}),
		Store:     store,
		Extractor: stubExtractor{text: "body"},
		Enricher:  enricher,
		Coverage:  stubCoverage{covered: map[string]string{"https://example.com/covered": "analyst-written summary"}},
	})

	stats, err := pipeline.Run(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, domain.RunStats{TotalProcessed: 1, SkippedDuplicate: 1}, stats)
	require.Zero(t, enricher.calls, "covered items bypass extraction and enrichment")

	stored := store.articles["https://example.com/covered"]
	require.Equal(t, domain.IndicatorHumanVerified, stored.SourceIndicator)
	require.Equal(t, "analyst-written summary", stored.Summary)
}

func TestRunUnknownSourceName(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Sources:   registryWith(stubProvider{name: "RSS: Test"}),
		Store:     newFakeStore(),
		Extractor: stubExtractor{},
		Enricher:  &stubEnricher{},
	})

	_, err := pipeline.Run(context.Background(), []string{"RSS: Missing"})
	require.Error(t, err)
}
