// Package enrich calls the external text-analysis service to obtain a
// summary, classification and extracted entities for an article, degrading
// to ports.ErrEnrichmentUnavailable instead of failing the pipeline.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"OsintGraph/internal/domain"
	"OsintGraph/internal/ports"
)

// RetryPolicy makes the retry semantics explicit and testable: how many
// attempts, and the fixed delay between them. The delay applies per attempt,
// never globally.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy is two attempts, five seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 2, Delay: 5 * time.Second}

// Options configures a GeminiClient.
type Options struct {
	Endpoint      string
	Model         string
	APIKey        string
	Categories    []string
	Severities    []string
	MinTextLength int
	Policy        RetryPolicy
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// GeminiClient talks to the generateContent endpoint of the Gemini API.
type GeminiClient struct {
	endpoint   string
	model      string
	apiKey     string
	categories []string
	severities []string
	minLen     int
	policy     RetryPolicy
	httpClient *http.Client
	logger     *slog.Logger
}

var _ ports.Enricher = (*GeminiClient)(nil)

// NewGeminiClient builds a client from options, applying defaults for
// anything left zero.
func NewGeminiClient(opts Options) *GeminiClient {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = 100
	}
	if opts.Policy.MaxAttempts <= 0 {
		opts.Policy = DefaultRetryPolicy
	}
	if len(opts.Severities) == 0 {
		opts.Severities = []string{"High", "Medium", "Low"}
	}
	return &GeminiClient{
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		model:      opts.Model,
		apiKey:     opts.APIKey,
		categories: opts.Categories,
		severities: opts.Severities,
		minLen:     opts.MinTextLength,
		policy:     opts.Policy,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type analysis struct {
	Summary         string   `json:"summary"`
	Category        string   `json:"category"`
	Severity        string   `json:"severity"`
	ThreatActors    []string `json:"threat_actors"`
	Malware         []string `json:"malware"`
	Vulnerabilities []string `json:"vulnerabilities"`
}

// fatalError marks credential-class failures that must abort the run.
type fatalError struct {
	status string
}

func (e *fatalError) Error() string {
	return "analysis service rejected request: " + e.status
}

// Enrich analyzes the article text. Texts below the minimum length are not
// sent at all. Transient failures are retried per the policy; exhaustion
// yields ports.ErrEnrichmentUnavailable, credential problems yield
// ports.ErrFatalConfiguration.
func (c *GeminiClient) Enrich(ctx context.Context, text string) (domain.Enrichment, error) {
	if len(strings.TrimSpace(text)) < c.minLen {
		return domain.Enrichment{}, fmt.Errorf("%w: text below %d chars", ports.ErrEnrichmentUnavailable, c.minLen)
	}
	if c.apiKey == "" {
		return domain.Enrichment{}, fmt.Errorf("%w: GEMINI_API_KEY is not set", ports.ErrFatalConfiguration)
	}

	var lastErr error
	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		result, err := c.call(ctx, text)
		if err == nil {
			return result, nil
		}

		var fatal *fatalError
		if ctx.Err() != nil {
			return domain.Enrichment{}, fmt.Errorf("%w: %v", ports.ErrEnrichmentUnavailable, ctx.Err())
		}
		if errors.As(err, &fatal) {
			return domain.Enrichment{}, fmt.Errorf("%w: %v", ports.ErrFatalConfiguration, err)
		}

		lastErr = err
		c.debug("enrichment attempt failed", "attempt", attempt, "error", err)

		if attempt < c.policy.MaxAttempts {
			select {
			case <-time.After(c.policy.Delay):
			case <-ctx.Done():
				return domain.Enrichment{}, fmt.Errorf("%w: %v", ports.ErrEnrichmentUnavailable, ctx.Err())
			}
		}
	}

	return domain.Enrichment{}, fmt.Errorf("%w: %d attempts exhausted: %v",
		ports.ErrEnrichmentUnavailable, c.policy.MaxAttempts, lastErr)
}

func (c *GeminiClient) call(ctx context.Context, text string) (domain.Enrichment, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: c.prompt(text)}}}},
	})
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.endpoint, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.Enrichment{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return domain.Enrichment{}, &fatalError{status: resp.Status}
	default:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.Enrichment{}, fmt.Errorf("analysis service error %s: %s",
			resp.Status, strings.TrimSpace(string(payload)))
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return domain.Enrichment{}, fmt.Errorf("decode response: %w", err)
	}
	if len(generated.Candidates) == 0 || len(generated.Candidates[0].Content.Parts) == 0 {
		return domain.Enrichment{}, fmt.Errorf("empty response from analysis service")
	}

	raw := stripFences(generated.Candidates[0].Content.Parts[0].Text)

	var parsed analysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return domain.Enrichment{}, fmt.Errorf("parse analysis payload: %w", err)
	}

	severity := domain.Severity(parsed.Severity)
	if parsed.Severity == "" {
		severity = domain.SeverityLow
	}

	return domain.Enrichment{
		Summary:         parsed.Summary,
		Category:        parsed.Category,
		Severity:        severity,
		ThreatActors:    parsed.ThreatActors,
		Malware:         parsed.Malware,
		Vulnerabilities: parsed.Vulnerabilities,
	}, nil
}

func (c *GeminiClient) prompt(text string) string {
	var b strings.Builder
	b.WriteString("Act as a Cyber Threat Intelligence Analyst. Analyze the following article.\n")
	b.WriteString("Provide your response as a single, valid JSON object with the following keys:\n")
	b.WriteString(`- "summary": A two-sentence summary for a social media post.` + "\n")
	fmt.Fprintf(&b, "- %q: Classify the article into ONE of the following: %s.\n",
		"category", strings.Join(c.categories, ", "))
	fmt.Fprintf(&b, "- %q: Classify the threat's priority for a SOC analyst as %s.\n",
		"severity", quoteJoin(c.severities))
	b.WriteString(`- "threat_actors": An array of any threat actor groups mentioned. If none, provide an empty array [].` + "\n")
	b.WriteString(`- "malware": An array of any malware families mentioned. If none, provide an empty array [].` + "\n")
	b.WriteString(`- "vulnerabilities": An array of any CVE identifiers mentioned. If none, provide an empty array [].` + "\n")
	b.WriteString("\nArticle:\n---\n")
	b.WriteString(text)
	return b.String()
}

func quoteJoin(values []string) string {
	quoted := make([]string, 0, len(values))
	for _, v := range values {
		quoted = append(quoted, fmt.Sprintf("%q", v))
	}
	return strings.Join(quoted, ", ")
}

// stripFences removes a markdown code-fence wrapper the model sometimes
// puts around its JSON output.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func (c *GeminiClient) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
