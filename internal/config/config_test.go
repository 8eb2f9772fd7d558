package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	require.Equal(t, "osint_graph.db", cfg.Database.Path)
	require.Len(t, cfg.Feeds, 9)
	require.Equal(t, 100, cfg.Enrichment.MinTextLength)
	require.Equal(t, 2, cfg.Enrichment.MaxAttempts)
	require.Equal(t, 5*time.Second, cfg.Enrichment.RetryDelay())
	require.Contains(t, cfg.Enrichment.Categories, "Vulnerability Disclosure")
	require.Equal(t, 24*time.Hour, cfg.Scheduler.Interval())
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
logging:
  level: debug
database:
  path: from-file.db
enrichment:
  maxAttempts: 4
feeds:
  - name: Only Feed
    url: https://example.com/feed
`), 0o600))

	t.Setenv("OSINT_GRAPH_CONFIG", path)
	t.Setenv("DATABASE_PATH", "from-env.db")
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg := Load()

	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "from-env.db", cfg.Database.Path, "env wins over file")
	require.Equal(t, "env-key", cfg.Enrichment.APIKey)
	require.Equal(t, 4, cfg.Enrichment.MaxAttempts)
	require.Equal(t, 5, cfg.Enrichment.RetryDelaySeconds, "unset fields keep defaults")
	require.Len(t, cfg.Feeds, 1)
	require.Equal(t, "Only Feed", cfg.Feeds[0].Name)
}

func TestLoadIgnoresBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

	t.Setenv("OSINT_GRAPH_CONFIG", path)
	t.Setenv("DATABASE_PATH", "")
	t.Setenv("GEMINI_API_KEY", "")

	cfg := Load()
	require.Equal(t, "osint_graph.db", cfg.Database.Path, "falls back to defaults")
}
