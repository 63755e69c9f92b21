package daemon

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/theirongolddev/ccproj/internal/pathcodec"
	"github.com/theirongolddev/ccproj/internal/source"
)

// Watcher reports changes under a Claude projects directory. It watches the
// root plus every project directory, so both new projects and rewritten
// session indexes are seen. Bursts of events collapse into one signal.
type Watcher struct {
	watcher *fsnotify.Watcher
	root    string
	log     *slog.Logger
	changed chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

// NewWatcher starts watching root. root must exist.
func NewWatcher(root string, log *slog.Logger) (*Watcher, error) {
	if log == nil {
		log = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(root); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w := &Watcher{
		watcher: fw,
		root:    filepath.Clean(root),
		log:     log,
		changed: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}

	tokens, _ := source.ScanProjectDirs(root)
	for _, tok := range tokens {
		w.addProjectDir(filepath.Join(w.root, tok))
	}

	w.wg.Add(1)
	go w.processEvents()
	return w, nil
}

// Changed receives a value after one or more relevant changes.
func (w *Watcher) Changed() <-chan struct{} {
	return w.changed
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) addProjectDir(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		w.log.Debug("cannot watch project dir", "dir", dir, "err", err)
	}
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.notify()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}

	name := filepath.Clean(event.Name)
	if filepath.Dir(name) == w.root {
		if !pathcodec.IsEncoded(filepath.Base(name)) {
			return false
		}
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(name); err == nil && info.IsDir() {
				w.addProjectDir(name)
			}
		}
		return true
	}
	return filepath.Base(name) == source.IndexFileName
}

func (w *Watcher) notify() {
	select {
	case w.changed <- struct{}{}:
	default:
	}
}
