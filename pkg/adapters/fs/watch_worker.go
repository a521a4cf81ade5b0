package fs

import (
	"context"
	"fmt"
	iofs "io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/rulemerge/pkg/core"
)

// DefaultDebounce is the window used to coalesce bursts of events.
const DefaultDebounce = 50 * time.Millisecond

// WatchOptions tunes a WatchWorker.
type WatchOptions struct {
	// Ignore drops events for matching paths. Build outputs belong here. The
	// list is read on every event, so updates apply without a restart.
	Ignore *IgnoreList
	// Debounce is the coalescing window. Zero means DefaultDebounce.
	Debounce time.Duration
}

// WatchWorker observes the repository root and emits debounced core.Events.
// It satisfies worker.Worker so it can run under a lifecycle supervisor.
type WatchWorker struct {
	*worker.BaseWorker
	repo      *Repository
	opts      WatchOptions
	events    chan<- core.Event
	watcher   *fsnotify.Watcher
	debouncer *debouncer
	cancel    context.CancelFunc
}

// NewWatchWorker creates a watcher that sends events for changes below the
// repository root.
func NewWatchWorker(repo *Repository, events chan<- core.Event, opts WatchOptions) *WatchWorker {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &WatchWorker{
		BaseWorker: worker.NewBaseWorker("fs-watcher"),
		repo:       repo,
		opts:       opts,
		events:     events,
	}
}

func (w *WatchWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.addTree(watcher, w.repo.Root); err != nil {
		_ = watcher.Close()
		return err
	}

	// index.lock tells us when git rewrites the tree under our feet.
	_ = watcher.Add(filepath.Join(w.repo.Root, ".git"))

	w.watcher = watcher
	w.debouncer = newDebouncer(w.opts.Debounce)
	w.repo.setWatcherActive(true)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *WatchWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}

	return w.BaseWorker.Stop(ctx)
}

func (w *WatchWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"root":              w.repo.Root,
		}
	})
}

// addTree registers root and every non-hidden, non-ignored directory below it.
func (w *WatchWorker) addTree(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d iofs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.repo.Root {
			rel, relErr := w.repo.Rel(p)
			if relErr != nil || w.ignored(rel, true) {
				return filepath.SkipDir
			}
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// ignored reports whether a root-relative slash path is out of scope.
func (w *WatchWorker) ignored(rel string, isDir bool) bool {
	if rel == "." || rel == "" {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") {
			return true // hidden files, .git, temp outputs
		}
	}
	return w.opts.Ignore.Match(rel, isDir)
}

// handleGitLockEvent processes .git/index.lock events (git operations pause/resume).
// Returns true if event was handled.
func (w *WatchWorker) handleGitLockEvent(ctx context.Context, event fsnotify.Event, gitLocked *bool) bool {
	if filepath.Base(event.Name) != "index.lock" || filepath.Base(filepath.Dir(event.Name)) != ".git" {
		return false
	}

	switch {
	case event.Has(fsnotify.Create):
		*gitLocked = true
		w.repo.config.Logger.Debug("git operations detected, pausing watcher")
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		*gitLocked = false
		w.repo.config.Logger.Debug("git operations finished, requesting reconcile")
		// Events were dropped while locked; ask for a full rebuild.
		w.sendEvent(ctx, core.Event{Type: core.EventReconcile, Timestamp: time.Now().Unix()})
	}
	return true
}

// processFilesystemEvent handles filtering, mapping, and debouncing of filesystem events.
func (w *WatchWorker) processFilesystemEvent(ctx context.Context, event fsnotify.Event) bool {
	w.repo.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	rel, err := w.repo.Rel(event.Name)
	if err != nil {
		w.reportError(fmt.Errorf("failed to resolve %s: %w", event.Name, err))
		return false
	}

	eType := mapEventType(event)
	if eType == "" {
		return false
	}

	if eType == core.EventCreate {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !w.ignored(rel, true) {
				if err := w.addTree(w.watcher, event.Name); err != nil {
					w.reportError(err)
				}
			}
			return false
		}
	}

	if w.ignored(rel, false) {
		return false
	}

	w.sendEvent(ctx, core.Event{
		Type:      eType,
		Path:      rel,
		Timestamp: time.Now().Unix(),
	})
	return true
}

func mapEventType(event fsnotify.Event) core.EventType {
	switch {
	case event.Has(fsnotify.Create):
		return core.EventCreate
	case event.Has(fsnotify.Write):
		return core.EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return core.EventDelete
	}
	return "" // chmod
}

// sendEvent enqueues an event via the debouncer, protecting against channel closure during shutdown.
func (w *WatchWorker) sendEvent(ctx context.Context, event core.Event) {
	w.debouncer.add(event, func(e core.Event) {
		defer func() {
			// Recover from panic if channel was closed (worker stopping)
			_ = recover()
		}()
		select {
		case w.events <- e:
		case <-ctx.Done():
		}
	})
}

func (w *WatchWorker) reportError(err error) {
	w.repo.config.Logger.Error("watcher error", "error", err)
	if w.repo.config.ErrorHandler != nil {
		w.repo.config.ErrorHandler(err)
	}
}

// run is the main event loop for the watcher worker.
func (w *WatchWorker) run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("watcher panic: %v", recovered)
			if w.repo.config.Logger.Enabled(ctx, slog.LevelDebug) {
				w.repo.config.Logger.Error("watcher panic", "error", err, "stack", string(debug.Stack()))
			} else {
				w.repo.config.Logger.Error("watcher panic", "error", err)
			}
		}
	}()
	defer w.repo.setWatcherActive(false)
	defer w.watcher.Close()

	var gitLocked bool
	err = w.mainEventLoop(ctx, &gitLocked)

	// Wait for in-flight deliveries before the caller closes the events channel.
	w.debouncer.stopAndWait(5 * time.Second)

	return err
}

func (w *WatchWorker) mainEventLoop(ctx context.Context, gitLocked *bool) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}

			if w.handleGitLockEvent(ctx, event, gitLocked) {
				continue
			}
			if *gitLocked {
				continue
			}
			w.processFilesystemEvent(ctx, event)

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			w.reportError(wErr)
		}
	}
}
