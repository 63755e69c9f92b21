// Package daemon keeps the project cache in sync in the background and
// serves its state over HTTP.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/theirongolddev/ccproj/internal/model"
	"github.com/theirongolddev/ccproj/internal/pipeline"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Root         string // Claude projects directory
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Prune        bool          // delete cached projects whose directory is gone
	Watch        bool          // re-sync on filesystem changes
	Debounce     time.Duration // quiet period after a change before syncing
}

// Store is the part of the cache the daemon writes to.
type Store interface {
	pipeline.ProjectWriter
	DeleteOrphaned(validPaths []string) (int, error)
	Stats() (model.CacheStats, error)
}

// Snapshot is a compact cache state for status/event payloads.
type Snapshot struct {
	At             time.Time `json:"at"`
	Projects       int       `json:"projects"`
	HiddenProjects int       `json:"hidden_projects"`
	MergedProjects int       `json:"merged_projects"`
	Sessions       int       `json:"sessions"`
	Groups         int       `json:"groups"`
	RootFound      bool      `json:"root_found"`
	Diagnostics    int       `json:"diagnostics"`
	SyncMs         int64     `json:"sync_ms"`
}

// Delta captures snapshot deltas between passes.
type Delta struct {
	Projects int `json:"projects"`
	Sessions int `json:"sessions"`
	Pruned   int `json:"pruned"`
}

func (d Delta) isZero() bool {
	return d.Projects == 0 &&
		d.Sessions == 0 &&
		d.Pruned == 0
}

// Event is emitted whenever the cache snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastSyncAt      time.Time `json:"last_sync_at"`
	SyncIntervalSec int       `json:"sync_interval_sec"`
	SyncCount       int64     `json:"sync_count"`
	Root            string    `json:"root"`
	Watching        bool      `json:"watching"`
	Prune           bool      `json:"prune"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	store  Store
	syncer *pipeline.Syncer
	log    *slog.Logger

	mu          sync.RWMutex
	startedAt   time.Time
	lastSyncAt  time.Time
	syncCount   int64
	lastError   string
	watching    bool
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service syncing cfg.Root into st.
func New(cfg Config, st Store, log *slog.Logger) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 30 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8788"
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:   cfg,
		store: st,
		syncer: &pipeline.Syncer{
			Root:   cfg.Root,
			Store:  st,
			Logger: log,
		},
		log:       log,
		startedAt: time.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and sync passes until ctx is canceled. Passes
// triggered by the ticker and by filesystem changes share this goroutine,
// so they never overlap.
func (s *Service) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)

	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var watcher *Watcher
	defer func() {
		if watcher != nil {
			_ = watcher.Close()
		}
	}()
	startWatcher := func() {
		if !s.cfg.Watch || watcher != nil {
			return
		}
		w, err := NewWatcher(s.cfg.Root, s.log)
		if err != nil {
			s.log.Debug("watcher not started", "root", s.cfg.Root, "err", err)
			return
		}
		watcher = w
		s.mu.Lock()
		s.watching = true
		s.mu.Unlock()
		s.log.Info("watching projects directory", "root", s.cfg.Root)
	}

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx, "startup")
	startWatcher()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		var changed <-chan struct{}
		if watcher != nil {
			changed = watcher.Changed()
		}

		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx, "interval")
			// The projects directory may appear after startup.
			startWatcher()
		case <-changed:
			if debounce == nil {
				debounce = time.NewTimer(s.cfg.Debounce)
			} else {
				debounce.Reset(s.cfg.Debounce)
			}
			debounceC = debounce.C
		case <-debounceC:
			debounceC = nil
			s.pollOnce(ctx, "fs_change")
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context, reason string) {
	res, err := s.syncer.Sync(ctx)
	pruned := 0
	if err == nil && s.cfg.Prune {
		if keep, ok := res.PruneKeep(); ok {
			pruned, err = s.store.DeleteOrphaned(keep)
		} else {
			s.log.Warn("skipping prune", "reason", reason, "root_found", res.RootFound, "listed", res.Listed)
		}
	}
	var stats model.CacheStats
	if err == nil {
		stats, err = s.store.Stats()
	}
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastSyncAt = time.Now()
		s.syncCount++
		s.mu.Unlock()
		s.log.Error("sync pass failed", "reason", reason, "err", err)
		return
	}

	now := time.Now()
	snap := Snapshot{
		At:             now,
		Projects:       stats.Projects,
		HiddenProjects: stats.HiddenProjects,
		MergedProjects: stats.MergedProjects,
		Sessions:       stats.Sessions,
		Groups:         stats.Groups,
		RootFound:      res.RootFound,
		Diagnostics:    len(res.Diagnostics),
		SyncMs:         res.Duration.Milliseconds(),
	}

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastSyncAt = now
	s.syncCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Reason:    reason,
			Timestamp: now,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		delta.Pruned = pruned
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "cache_delta",
				Reason:    reason,
				Timestamp: now,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
	}
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Projects: curr.Projects - prev.Projects,
		Sessions: curr.Sessions - prev.Sessions,
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastSyncAt:      s.lastSyncAt,
		SyncIntervalSec: int(s.cfg.Interval.Seconds()),
		SyncCount:       s.syncCount,
		Root:            s.cfg.Root,
		Watching:        s.watching,
		Prune:           s.cfg.Prune,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.snapshotStatus())
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
