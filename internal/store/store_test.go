package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := OpenConfig(Config{
		Path:     filepath.Join(t.TempDir(), "cache.db"),
		Location: time.UTC,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("OpenConfig: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }

// seedProject writes a project with one session spanning [created, modified].
func seedProject(t *testing.T, c *Cache, path, created, modified string) model.Project {
	t.Helper()
	s := model.Session{
		ID:           path + "#1",
		Created:      ts(created),
		Modified:     ts(modified),
		DurationMs:   ts(modified).Sub(ts(created)).Milliseconds(),
		MessageCount: 2,
	}
	p := model.Project{
		Path:            path,
		Name:            filepath.Base(path),
		FirstActivity:   s.Created,
		LastActivity:    s.Modified,
		SessionCount:    1,
		MessageCount:    s.MessageCount,
		TotalDurationMs: s.DurationMs,
	}
	if err := c.SaveProject(p, []model.Session{s}); err != nil {
		t.Fatalf("SaveProject(%s): %v", path, err)
	}
	return p
}

func mustProject(t *testing.T, c *Cache, path string) *model.Project {
	t.Helper()
	p, err := c.GetProject(path)
	if err != nil {
		t.Fatalf("GetProject(%s): %v", path, err)
	}
	if p == nil {
		t.Fatalf("GetProject(%s) = nil", path)
	}
	return p
}

func paths(ps []model.Project) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Path
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
