package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	configPathEnv   = "OSINT_GRAPH_CONFIG"
	databasePathEnv = "DATABASE_PATH"
	geminiAPIKeyEnv = "GEMINI_API_KEY"
	geminiModelEnv  = "GEMINI_MODEL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Database   DatabaseConfig   `yaml:"database"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Digest     DigestConfig     `yaml:"digest"`
	Feeds      []FeedConfig     `yaml:"feeds"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DatabaseConfig describes the sqlite graph database location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// EnrichmentConfig defines how to contact the analysis service and how hard
// to retry it. Categories and severities are configuration, not a hard-coded
// contract: the prompt is built from whatever is listed here.
type EnrichmentConfig struct {
	Endpoint            string   `yaml:"endpoint"`
	Model               string   `yaml:"model"`
	APIKey              string   `yaml:"apiKey"`
	Categories          []string `yaml:"categories"`
	Severities          []string `yaml:"severities"`
	MinTextLength       int      `yaml:"minTextLength"`
	MaxAttempts         int      `yaml:"maxAttempts"`
	RetryDelaySeconds   int      `yaml:"retryDelaySeconds"`
	RequestDelaySeconds int      `yaml:"requestDelaySeconds"`
	TimeoutSeconds      int      `yaml:"timeoutSeconds"`
}

// RetryDelay resolves the configured delay between enrichment attempts.
func (e EnrichmentConfig) RetryDelay() time.Duration {
	return time.Duration(e.RetryDelaySeconds) * time.Second
}

// RequestDelay is the fixed pause before each enrichment call, respecting
// the upstream rate limit.
func (e EnrichmentConfig) RequestDelay() time.Duration {
	return time.Duration(e.RequestDelaySeconds) * time.Second
}

// Timeout bounds a single enrichment request.
func (e EnrichmentConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// ExtractionConfig tunes both content-extraction tiers.
type ExtractionConfig struct {
	MinTextLength         int `yaml:"minTextLength"`
	TimeoutSeconds        int `yaml:"timeoutSeconds"`
	BrowserTimeoutSeconds int `yaml:"browserTimeoutSeconds"`
	BrowserWorkers        int `yaml:"browserWorkers"`
}

// Timeout bounds a primary-tier fetch.
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// BrowserTimeout bounds a heavy-tier render.
func (e ExtractionConfig) BrowserTimeout() time.Duration {
	return time.Duration(e.BrowserTimeoutSeconds) * time.Second
}

// DigestConfig describes the alert-digest source.
type DigestConfig struct {
	Enabled      bool   `yaml:"enabled"`
	MailDir      string `yaml:"mailDir"`
	LookbackDays int    `yaml:"lookbackDays"`
}

// FeedConfig describes a single RSS feed to poll.
type FeedConfig struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// SchedulerConfig controls optional recurring ingestion passes.
type SchedulerConfig struct {
	Enabled       bool `yaml:"enabled"`
	IntervalHours int  `yaml:"intervalHours"`
}

// Interval resolves the recurring-run period.
func (s SchedulerConfig) Interval() time.Duration {
	if s.IntervalHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.IntervalHours) * time.Hour
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Feeds) == 0 {
		cfg.Feeds = defaultConfig().Feeds
	}

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}

	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Enrichment.Model = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Database.Path != "" {
		base.Database = override.Database
	}

	if override.Enrichment.Endpoint != "" {
		base.Enrichment.Endpoint = override.Enrichment.Endpoint
	}
	if override.Enrichment.Model != "" {
		base.Enrichment.Model = override.Enrichment.Model
	}
	if override.Enrichment.APIKey != "" {
		base.Enrichment.APIKey = override.Enrichment.APIKey
	}
	if len(override.Enrichment.Categories) > 0 {
		base.Enrichment.Categories = override.Enrichment.Categories
	}
	if len(override.Enrichment.Severities) > 0 {
		base.Enrichment.Severities = override.Enrichment.Severities
	}
	if override.Enrichment.MinTextLength > 0 {
		base.Enrichment.MinTextLength = override.Enrichment.MinTextLength
	}
	if override.Enrichment.MaxAttempts > 0 {
		base.Enrichment.MaxAttempts = override.Enrichment.MaxAttempts
	}
	if override.Enrichment.RetryDelaySeconds > 0 {
		base.Enrichment.RetryDelaySeconds = override.Enrichment.RetryDelaySeconds
	}
	if override.Enrichment.RequestDelaySeconds > 0 {
		base.Enrichment.RequestDelaySeconds = override.Enrichment.RequestDelaySeconds
	}
	if override.Enrichment.TimeoutSeconds > 0 {
		base.Enrichment.TimeoutSeconds = override.Enrichment.TimeoutSeconds
	}

	if override.Extraction.MinTextLength > 0 {
		base.Extraction.MinTextLength = override.Extraction.MinTextLength
	}
	if override.Extraction.TimeoutSeconds > 0 {
		base.Extraction.TimeoutSeconds = override.Extraction.TimeoutSeconds
	}
	if override.Extraction.BrowserTimeoutSeconds > 0 {
		base.Extraction.BrowserTimeoutSeconds = override.Extraction.BrowserTimeoutSeconds
	}
	if override.Extraction.BrowserWorkers > 0 {
		base.Extraction.BrowserWorkers = override.Extraction.BrowserWorkers
	}

	if override.Digest.Enabled {
		base.Digest.Enabled = true
	}
	if override.Digest.MailDir != "" {
		base.Digest.MailDir = override.Digest.MailDir
	}
	if override.Digest.LookbackDays > 0 {
		base.Digest.LookbackDays = override.Digest.LookbackDays
	}

	if len(override.Feeds) > 0 {
		base.Feeds = override.Feeds
	}

	if override.Scheduler.Enabled {
		base.Scheduler.Enabled = true
	}
	if override.Scheduler.IntervalHours > 0 {
		base.Scheduler.IntervalHours = override.Scheduler.IntervalHours
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Logging:  LoggingConfig{Level: "info"},
		Database: DatabaseConfig{Path: "osint_graph.db"},
		Enrichment: EnrichmentConfig{
			Endpoint: "https://generativelanguage.googleapis.com/v1beta",
			Model:    "gemini-1.5-flash-latest",
			Categories: []string{
				"Malware Analysis",
				"Vulnerability Disclosure",
				"Threat Actor Profile",
				"Data Breach Report",
				"Geopolitical Cyber Event",
				"General Cyber News",
			},
			Severities:          []string{"High", "Medium", "Low"},
			MinTextLength:       100,
			MaxAttempts:         2,
			RetryDelaySeconds:   5,
			RequestDelaySeconds: 1,
			TimeoutSeconds:      60,
		},
		Extraction: ExtractionConfig{
			MinTextLength:         100,
			TimeoutSeconds:        60,
			BrowserTimeoutSeconds: 30,
			BrowserWorkers:        2,
		},
		Digest: DigestConfig{Enabled: false, MailDir: "digests", LookbackDays: 2},
		Feeds: []FeedConfig{
			{Name: "The Hacker News", URL: "https://feeds.feedburner.com/TheHackersNews"},
			{Name: "Bleeping Computer", URL: "https://www.bleepingcomputer.com/feed/"},
			{Name: "Krebs on Security", URL: "https://krebsonsecurity.com/feed/"},
			{Name: "Dark Reading", URL: "https://www.darkreading.com/rss_simple.asp"},
			{Name: "Wired - Security", URL: "https://www.wired.com/feed/category/security/latest/rss"},
			{Name: "CSO Online", URL: "https://www.csoonline.com/feed/"},
			{Name: "SecurityWeek", URL: "http://feeds.feedburner.com/Securityweek"},
			{Name: "Ransomware Live", URL: "https://www.ransomware.live/rss"},
			{Name: "Malwarebytes Labs", URL: "https://www.malwarebytes.com/blog/feed"},
		},
		Scheduler: SchedulerConfig{Enabled: false, IntervalHours: 24},
	}
}
