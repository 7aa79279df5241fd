// Package watcher re-aggregates input files when they change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/keyaloding/nasa-space-apps/internal/infrastructure"
)

// Refresher is called once per settled file change.
type Refresher interface {
	Refresh(ctx context.Context, path string) error
}

// Stats tracks watcher activity.
type Stats struct {
	FilesCreated   int       `json:"files_created"`
	FilesModified  int       `json:"files_modified"`
	Refreshes      int       `json:"refreshes"`
	Errors         int       `json:"errors"`
	LastEventTime  time.Time `json:"last_event_time"`
	LastEventPath  string    `json:"last_event_path"`
	LastRefreshErr string    `json:"last_refresh_error,omitempty"`
}

// Watcher watches one directory for input file writes and hands each
// changed file to a Refresher after the debounce window has passed.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	dir         string
	ext         string
	refresher   Refresher
	metrics     *infrastructure.SeriesMetrics
	logger      *slog.Logger
	debounceMap map[string]time.Time
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
	running     bool
	stats       Stats
}

// New creates a watcher for files ending in ext inside dir. metrics may be nil.
func New(dir, ext string, debounce time.Duration, refresher Refresher, metrics *infrastructure.SeriesMetrics, logger *slog.Logger) (*Watcher, error) {
	if refresher == nil {
		return nil, errors.New("watcher: nil refresher")
	}
	if debounce <= 0 {
		return nil, fmt.Errorf("watcher: debounce must be positive, got %s", debounce)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	return &Watcher{
		watcher:     fw,
		dir:         dir,
		ext:         strings.ToLower(ext),
		refresher:   refresher,
		metrics:     metrics,
		logger:      logger.With(slog.String("component", "watcher")),
		debounceMap: make(map[string]time.Time),
		debounceDur: debounce,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. It does not block; Stop or cancelling ctx ends the loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("watcher: create %s: %w", w.dir, err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watcher: watch %s: %w", w.dir, err)
	}

	w.mu.Lock()
	w.running = true
	w.mu.Unlock()

	w.logger.InfoContext(ctx, "watching input directory",
		slog.String("dir", w.dir),
		slog.Duration("debounce", w.debounceDur))

	go w.run(ctx)
	return nil
}

// Stop ends the event loop, waits for it, and releases the OS watch.
// It is safe to call more than once and without Start.
func (w *Watcher) Stop() {
	w.mu.Lock()
	wasRunning := w.running
	w.running = false
	w.mu.Unlock()

	if wasRunning {
		select {
		case <-w.stopCh:
		default:
			close(w.stopCh)
		}
		<-w.doneCh
	}

	if err := w.watcher.Close(); err != nil {
		w.logger.Error("error closing watcher", slog.String("error", err.Error()))
	}
}

// Stats returns a snapshot of the counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	tick := w.debounceDur / 5
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", slog.String("error", err.Error()))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()
		case <-ticker.C:
			w.processSettled(ctx)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(strings.ToLower(event.Name), w.ext) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case event.Has(fsnotify.Create):
		w.stats.FilesCreated++
	case event.Has(fsnotify.Write):
		w.stats.FilesModified++
	default:
		// Removed or renamed-away files have nothing to aggregate.
		delete(w.debounceMap, event.Name)
		return
	}
	w.stats.LastEventTime = time.Now()
	w.stats.LastEventPath = event.Name
	w.debounceMap[event.Name] = time.Now()
}

func (w *Watcher) processSettled(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	var settled []string
	for path, at := range w.debounceMap {
		if now.Sub(at) >= w.debounceDur {
			settled = append(settled, path)
			delete(w.debounceMap, path)
		}
	}
	w.mu.Unlock()

	for _, path := range settled {
		err := w.refresher.Refresh(ctx, path)
		w.metrics.RecordWatchEvent(ctx, "refresh")

		w.mu.Lock()
		w.stats.Refreshes++
		if err != nil {
			w.stats.Errors++
			w.stats.LastRefreshErr = err.Error()
		}
		w.mu.Unlock()

		if err != nil {
			w.logger.WarnContext(ctx, "refresh failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		w.logger.DebugContext(ctx, "refreshed", slog.String("path", path))
	}
}
