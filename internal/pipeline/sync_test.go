package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
	"github.com/theirongolddev/ccproj/internal/pathcodec"
	"github.com/theirongolddev/ccproj/internal/source"
	"github.com/theirongolddev/ccproj/internal/store"
)

type savedProject struct {
	project  model.Project
	sessions []model.Session
}

type memWriter struct {
	mu    sync.Mutex
	saved []savedProject
	err   error
}

func (m *memWriter) SaveProject(p model.Project, sessions []model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, savedProject{project: p, sessions: sessions})
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// nothingExists makes every decode fall back to plain separators.
func nothingExists(string) []pathcodec.Entry { return nil }

func writeIndex(t *testing.T, root, token, body string) {
	t.Helper()
	dir := filepath.Join(root, token)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		t.Fatal(err)
	}
	if body == "" {
		return
	}
	if err := os.WriteFile(filepath.Join(dir, source.IndexFileName), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

const twoSessions = `[
	{"sessionId":"s1","created":"2026-01-01T10:00:00Z","modified":"2026-01-01T11:00:00Z","messageCount":4},
	{"session_id":"s2","created":"2026-01-02T09:00:00Z","modified":"2026-01-02T09:30:00Z","message_count":6,"summary":"tests"},
	{"created":"2026-01-03T09:00:00Z","modified":"2026-01-03T09:30:00Z"}
]`

func TestSync_MissingRoot(t *testing.T) {
	w := &memWriter{}
	s := &Syncer{Root: filepath.Join(t.TempDir(), "absent"), Store: w, Logger: quietLogger()}

	res, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.RootFound {
		t.Error("RootFound = true, want false")
	}
	if len(w.saved) != 0 || res.Projects != 0 {
		t.Errorf("saved %d projects, want 0", len(w.saved))
	}
	if _, ok := res.PruneKeep(); ok {
		t.Error("PruneKeep ok = true for a missing root")
	}
}

func TestSync_WritesAggregates(t *testing.T) {
	root := t.TempDir()
	writeIndex(t, root, "-work-app", twoSessions)
	writeIndex(t, root, "-work-empty", `[]`)
	writeIndex(t, root, "-work-noindex", "")
	writeIndex(t, root, "-work-broken", `{not json`)

	w := &memWriter{}
	s := &Syncer{
		Root:    root,
		Store:   w,
		Decoder: pathcodec.NewDecoder(nothingExists),
		Logger:  quietLogger(),
		Workers: 2,
	}
	res, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if !res.RootFound || res.Projects != 1 || res.Sessions != 2 {
		t.Errorf("result = %+v, want 1 project with 2 sessions", res)
	}
	if len(res.Paths) != 1 || res.Paths[0] != "/work/app" {
		t.Errorf("Paths = %v, want [/work/app]", res.Paths)
	}
	if len(res.Diagnostics) != 2 {
		t.Errorf("Diagnostics = %v, want 2 (bad entry + invalid JSON)", res.Diagnostics)
	}

	if len(w.saved) != 1 {
		t.Fatalf("saved = %d, want 1", len(w.saved))
	}
	p := w.saved[0].project
	want := model.Project{
		Path:            "/work/app",
		Name:            "app",
		FirstActivity:   time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
		LastActivity:    time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC),
		SessionCount:    2,
		MessageCount:    10,
		TotalDurationMs: 90 * 60 * 1000,
	}
	if p.Path != want.Path || p.Name != want.Name || p.SessionCount != want.SessionCount ||
		p.MessageCount != want.MessageCount || p.TotalDurationMs != want.TotalDurationMs ||
		!p.FirstActivity.Equal(want.FirstActivity) || !p.LastActivity.Equal(want.LastActivity) {
		t.Errorf("project = %+v, want %+v", p, want)
	}
	for _, sess := range w.saved[0].sessions {
		if sess.ProjectPath != "/work/app" {
			t.Errorf("session %s ProjectPath = %q", sess.ID, sess.ProjectPath)
		}
	}
}

func TestSync_FoldsTokensDecodingToSamePath(t *testing.T) {
	root := t.TempDir()
	writeIndex(t, root, "-work-app", `[{"sessionId":"a","created":"2026-01-01T10:00:00Z","modified":"2026-01-01T10:10:00Z"}]`)
	writeIndex(t, root, "-work--app", `[
		{"sessionId":"b","created":"2026-01-02T10:00:00Z","modified":"2026-01-02T10:20:00Z"},
		{"sessionId":"a","created":"2026-01-01T10:00:00Z","modified":"2026-01-01T10:10:00Z"}]`)

	w := &memWriter{}
	s := &Syncer{Root: root, Store: w, Decoder: pathcodec.NewDecoder(nothingExists), Logger: quietLogger()}
	res, err := s.Sync(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(w.saved) != 1 {
		t.Fatalf("saved = %d projects, want 1", len(w.saved))
	}
	p := w.saved[0].project
	if p.SessionCount != 2 || p.TotalDurationMs != 30*60*1000 {
		t.Errorf("folded project = %+v, want 2 sessions / 30m", p)
	}
	if res.Sessions != 2 {
		t.Errorf("Sessions = %d, want 2", res.Sessions)
	}
}

func TestSync_StoreErrorIsReturned(t *testing.T) {
	root := t.TempDir()
	writeIndex(t, root, "-work-app", twoSessions)

	boom := errors.New("disk full")
	s := &Syncer{Root: root, Store: &memWriter{err: boom}, Decoder: pathcodec.NewDecoder(nothingExists), Logger: quietLogger()}
	if _, err := s.Sync(context.Background()); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
}

func TestSync_Canceled(t *testing.T) {
	root := t.TempDir()
	writeIndex(t, root, "-work-app", twoSessions)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := &memWriter{}
	s := &Syncer{Root: root, Store: w, Logger: quietLogger()}
	if _, err := s.Sync(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if len(w.saved) != 0 {
		t.Errorf("saved = %d after cancel, want 0", len(w.saved))
	}
}

func TestSync_ProgressReportsEveryDir(t *testing.T) {
	root := t.TempDir()
	for _, tok := range []string{"-a", "-b", "-c"} {
		writeIndex(t, root, tok, "")
	}
	var mu sync.Mutex
	var calls, lastTotal int
	s := &Syncer{
		Root:    root,
		Store:   &memWriter{},
		Decoder: pathcodec.NewDecoder(nothingExists),
		Logger:  quietLogger(),
		Progress: func(_, total int) {
			mu.Lock()
			calls++
			lastTotal = total
			mu.Unlock()
		},
	}
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if calls != 3 || lastTotal != 3 {
		t.Errorf("progress calls = %d (total %d), want 3 (3)", calls, lastTotal)
	}
}

func TestSync_IdempotentAgainstCache(t *testing.T) {
	projectsDir := t.TempDir()
	workDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	projectPath := filepath.Join(workDir, "my-app.v2")
	if err := os.MkdirAll(projectPath, 0o750); err != nil {
		t.Fatal(err)
	}
	writeIndex(t, projectsDir, pathcodec.Encode(projectPath), twoSessions)

	c, err := store.OpenConfig(store.Config{Path: filepath.Join(t.TempDir(), "cache.db"), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	s := &Syncer{Root: projectsDir, Store: c, Logger: quietLogger()}
	for i := 0; i < 2; i++ {
		if _, err := s.Sync(context.Background()); err != nil {
			t.Fatalf("Sync #%d: %v", i+1, err)
		}
	}

	stats, err := c.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.Projects != 1 || stats.Sessions != 2 {
		t.Errorf("stats = %+v, want 1 project / 2 sessions", stats)
	}
	p, err := c.GetProject(projectPath)
	if err != nil || p == nil {
		t.Fatalf("GetProject(%s) = %v, %v", projectPath, p, err)
	}
	if p.Name != "my-app.v2" || p.MessageCount != 10 {
		t.Errorf("project = %+v", p)
	}
}

func TestAggregate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sessions := []model.Session{
		{ID: "late", Created: t0.Add(time.Hour), Modified: t0.Add(3 * time.Hour), DurationMs: 7200000, MessageCount: 1},
		{ID: "early", Created: t0, Modified: t0.Add(time.Hour), DurationMs: 3600000, MessageCount: 2},
	}
	p := Aggregate("/", sessions)
	if p.Name != model.UnknownProjectName {
		t.Errorf("Name = %q, want %q", p.Name, model.UnknownProjectName)
	}
	if !p.FirstActivity.Equal(t0) || !p.LastActivity.Equal(t0.Add(3*time.Hour)) {
		t.Errorf("activity = %v..%v", p.FirstActivity, p.LastActivity)
	}
	if p.SessionCount != 2 || p.MessageCount != 3 || p.TotalDurationMs != 10800000 {
		t.Errorf("Aggregate = %+v", p)
	}
}

func TestSync_PruneKeepsDirectoriesWithUnreadableIndex(t *testing.T) {
	projectsDir := t.TempDir()
	workDir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	projectPath := filepath.Join(workDir, "api")
	if err := os.MkdirAll(projectPath, 0o750); err != nil {
		t.Fatal(err)
	}
	token := pathcodec.Encode(projectPath)
	writeIndex(t, projectsDir, token, twoSessions)

	c, err := store.OpenConfig(store.Config{Path: filepath.Join(t.TempDir(), "cache.db"), Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	s := &Syncer{Root: projectsDir, Store: c, Logger: quietLogger()}
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if err := c.SetHidden(projectPath, true); err != nil {
		t.Fatal(err)
	}

	// Index caught mid-rewrite: the directory is still there.
	writeIndex(t, projectsDir, token, `[{"sessionId":"s1",`)
	res, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if res.Projects != 0 || len(res.Paths) != 0 {
		t.Fatalf("wrote %d projects from a truncated index, want 0", res.Projects)
	}
	keep, ok := res.PruneKeep()
	if !ok || len(keep) != 1 || keep[0] != projectPath {
		t.Fatalf("PruneKeep = %v, %v; want [%s], true", keep, ok, projectPath)
	}
	n, err := c.DeleteOrphaned(keep)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pruned %d projects, want 0", n)
	}
	p, err := c.GetProject(projectPath)
	if err != nil || p == nil {
		t.Fatalf("GetProject after prune = %v, %v", p, err)
	}
	if !p.Hidden || p.SessionCount != 2 {
		t.Errorf("project = %+v, want hidden with 2 sessions", p)
	}

	if err := os.RemoveAll(filepath.Join(projectsDir, token)); err != nil {
		t.Fatal(err)
	}
	res, err = s.Sync(context.Background())
	if err != nil {
		t.Fatalf("third Sync: %v", err)
	}
	keep, ok = res.PruneKeep()
	if !ok {
		t.Fatal("PruneKeep ok = false after a clean listing")
	}
	if n, err := c.DeleteOrphaned(keep); err != nil || n != 1 {
		t.Errorf("DeleteOrphaned after removing the directory = %d, %v; want 1", n, err)
	}
}

func TestSync_ListingFailureBlocksPrune(t *testing.T) {
	root := t.TempDir()
	writeIndex(t, root, "-work-app", twoSessions)

	s := &Syncer{
		Root:   root,
		Store:  &memWriter{},
		Logger: quietLogger(),
		Scan: func(root string) ([]string, []string) {
			return nil, []string{"list " + root + ": permission denied"}
		},
	}
	res, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.RootFound || res.Listed {
		t.Errorf("RootFound = %v, Listed = %v; want true, false", res.RootFound, res.Listed)
	}
	if len(res.Diagnostics) != 1 {
		t.Errorf("diagnostics = %v, want the listing failure", res.Diagnostics)
	}
	if keep, ok := res.PruneKeep(); ok {
		t.Errorf("PruneKeep = %v, true; want no prune after a failed listing", keep)
	}
}
