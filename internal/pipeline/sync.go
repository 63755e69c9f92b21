// Package pipeline reconciles the Claude projects directory into the cache.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
	"github.com/theirongolddev/ccproj/internal/pathcodec"
	"github.com/theirongolddev/ccproj/internal/source"
)

// ProjectWriter persists one project together with its sessions atomically.
// *store.Cache satisfies it.
type ProjectWriter interface {
	SaveProject(p model.Project, sessions []model.Session) error
}

// ProgressFunc is called as project directories are read.
// current is the number of directories processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Syncer runs sync passes over a projects directory.
type Syncer struct {
	Root  string
	Store ProjectWriter

	// Decoder resolves directory tokens to paths. Nil means a fresh
	// filesystem-backed decoder per pass, so cached listings never outlive
	// a pass.
	Decoder  *pathcodec.Decoder
	Logger   *slog.Logger
	Workers  int
	Progress ProgressFunc

	// Scan lists candidate directory tokens under Root. Nil means
	// source.ScanProjectDirs. Any diagnostic it returns marks the listing
	// as incomplete.
	Scan func(root string) (tokens, diagnostics []string)
}

// SyncResult summarizes one pass.
type SyncResult struct {
	Root        string
	RootFound   bool
	Projects    int      // projects written
	Sessions    int      // sessions written
	Paths       []string // decoded paths of written projects, in enumeration order
	Diagnostics []string
	Duration    time.Duration

	// Listed is false when the root could not be listed completely.
	Listed bool
	// Present holds the decoded path of every project directory found,
	// including directories whose index was missing or unreadable.
	Present []string
}

// PruneKeep returns the paths a prune must keep. ok is false when the pass
// cannot tell which projects disappeared (missing root, failed listing), in
// which case nothing may be pruned.
func (r *SyncResult) PruneKeep() (keep []string, ok bool) {
	if r == nil || !r.RootFound || !r.Listed {
		return nil, false
	}
	return r.Present, true
}

type dirResult struct {
	token string
	path  string
	index source.IndexResult
}

// Sync reads every project directory under Root and writes each project
// with at least one valid session. It never deletes; see PruneKeep for the
// set to hand to Cache.DeleteOrphaned.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	start := time.Now()
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}

	res := &SyncResult{Root: s.Root}
	if !source.RootExists(s.Root) {
		log.Info("projects directory not found", "root", s.Root)
		res.Duration = time.Since(start)
		return res, nil
	}
	res.RootFound = true

	scan := s.Scan
	if scan == nil {
		scan = source.ScanProjectDirs
	}
	tokens, diags := scan(s.Root)
	res.Diagnostics = append(res.Diagnostics, diags...)
	res.Listed = len(diags) == 0

	dirs := s.load(ctx, tokens)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Distinct tokens can decode to the same path; fold them so the
	// aggregate is computed once.
	var order []string
	byPath := make(map[string][]model.Session)
	present := make(map[string]struct{}, len(dirs))
	for _, d := range dirs {
		res.Diagnostics = append(res.Diagnostics, d.index.Diagnostics...)
		if _, seen := present[d.path]; !seen {
			present[d.path] = struct{}{}
			res.Present = append(res.Present, d.path)
		}
		if len(d.index.Sessions) == 0 {
			continue
		}
		if _, seen := byPath[d.path]; !seen {
			order = append(order, d.path)
		}
		byPath[d.path] = append(byPath[d.path], d.index.Sessions...)
	}

	for _, path := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sessions := dedupeSessions(byPath[path])
		for i := range sessions {
			sessions[i].ProjectPath = path
		}
		p := Aggregate(path, sessions)
		if err := s.Store.SaveProject(p, sessions); err != nil {
			return nil, fmt.Errorf("saving project %s: %w", path, err)
		}
		res.Projects++
		res.Sessions += len(sessions)
		res.Paths = append(res.Paths, path)
	}

	for _, d := range res.Diagnostics {
		log.Warn("sync diagnostic", "detail", d)
	}
	res.Duration = time.Since(start)
	log.Info("sync complete",
		"root", s.Root,
		"dirs", len(tokens),
		"projects", res.Projects,
		"sessions", res.Sessions,
		"diagnostics", len(res.Diagnostics),
		"duration", res.Duration.Round(time.Millisecond))
	return res, nil
}

// load decodes and reads every token with a bounded worker pool. Results
// keep the order of tokens.
func (s *Syncer) load(ctx context.Context, tokens []string) []dirResult {
	if len(tokens) == 0 {
		return nil
	}

	decoder := s.Decoder
	if decoder == nil {
		decoder = pathcodec.NewDecoder(nil)
	}

	numWorkers := s.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(tokens) {
		numWorkers = len(tokens)
	}

	work := make(chan int, len(tokens))
	results := make([]dirResult, len(tokens))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range tokens {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					continue
				}
				token := tokens[idx]
				results[idx] = dirResult{
					token: token,
					path:  decoder.Decode(token),
					index: source.ReadIndex(s.Root, token),
				}
				n := processed.Add(1)
				if s.Progress != nil {
					s.Progress(int(n), len(tokens))
				}
			}
		}()
	}

	wg.Wait()
	return results
}

// dedupeSessions drops repeated session IDs, keeping the first occurrence.
func dedupeSessions(sessions []model.Session) []model.Session {
	seen := make(map[string]struct{}, len(sessions))
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if _, dup := seen[s.ID]; dup {
			continue
		}
		seen[s.ID] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Aggregate derives the sync-owned project fields from its sessions.
func Aggregate(path string, sessions []model.Session) model.Project {
	p := model.Project{
		Path:         path,
		Name:         pathcodec.ProjectName(path),
		SessionCount: len(sessions),
	}
	for i, s := range sessions {
		if i == 0 || s.Created.Before(p.FirstActivity) {
			p.FirstActivity = s.Created
		}
		if i == 0 || s.Modified.After(p.LastActivity) {
			p.LastActivity = s.Modified
		}
		p.MessageCount += s.MessageCount
		p.TotalDurationMs += s.DurationMs
	}
	return p
}
