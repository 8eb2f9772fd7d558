package digest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"OsintGraph/internal/ports"
)

// FileMailFetcher reads saved .eml digest files from a directory. The actual
// mailbox transport lives outside this repository; exporting digests to disk
// is the supported handoff.
type FileMailFetcher struct {
	dir      string
	lookback time.Duration
	logger   *slog.Logger
}

var _ ports.MailFetcher = (*FileMailFetcher)(nil)

// NewFileMailFetcher reads *.eml files under dir no older than lookback
// (zero means no age limit).
func NewFileMailFetcher(dir string, lookback time.Duration, logger *slog.Logger) *FileMailFetcher {
	return &FileMailFetcher{dir: dir, lookback: lookback, logger: logger}
}

// FetchDigests returns the raw bytes of every eligible digest file.
func (f *FileMailFetcher) FetchDigests(ctx context.Context) ([][]byte, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("read mail dir %s: %w", f.dir, err)
	}

	cutoff := time.Time{}
	if f.lookback > 0 {
		cutoff = time.Now().Add(-f.lookback)
	}

	var digests [][]byte
	for _, entry := range entries {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".eml") {
			continue
		}

		if !cutoff.IsZero() {
			info, err := entry.Info()
			if err != nil || info.ModTime().Before(cutoff) {
				continue
			}
		}

		raw, err := os.ReadFile(filepath.Join(f.dir, entry.Name()))
		if err != nil {
			if f.logger != nil {
				f.logger.Warn("cannot read digest file", "file", entry.Name(), "error", err)
			}
			continue
		}
		digests = append(digests, raw)
	}

	return digests, nil
}
