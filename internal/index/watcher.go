// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/jeranaias/partlib/internal/element"
)

// =============================================================================
// FILE WATCHER INTERFACE
// =============================================================================

// FileWatcher is the interface for file watching implementations
type FileWatcher interface {
	// Watch starts watching for file changes
	Watch() error

	// Close stops watching and releases resources
	Close() error
}

// RescanFunc is called after every rescan triggered by a watcher.
type RescanFunc func(count int, err error)

// trigger debounces change notifications into full rescans. A rescan
// starts once no change has been seen for debounce, and at most once per
// minInterval.
type trigger struct {
	idx      *Index
	debounce time.Duration
	limiter  *rate.Limiter
	onRescan RescanFunc

	mu         sync.Mutex
	pending    bool
	lastChange time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newTrigger(idx *Index, debounce, minInterval time.Duration, onRescan RescanFunc) *trigger {
	ctx, cancel := context.WithCancel(context.Background())
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &trigger{
		idx:      idx,
		debounce: debounce,
		limiter:  rate.NewLimiter(limit, 1),
		onRescan: onRescan,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// changed records a relevant change.
func (t *trigger) changed() {
	t.mu.Lock()
	t.pending = true
	t.lastChange = time.Now()
	t.mu.Unlock()
}

// run processes pending changes with debounce until the trigger is stopped.
func (t *trigger) run() {
	defer t.wg.Done()

	tick := t.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.ctx.Done():
			return

		case <-ticker.C:
			t.mu.Lock()
			ready := t.pending && time.Since(t.lastChange) >= t.debounce
			if ready && !t.limiter.Allow() {
				ready = false
			}
			if ready {
				t.pending = false
			}
			t.mu.Unlock()

			if ready {
				t.rescan()
			}
		}
	}
}

func (t *trigger) rescan() {
	recordWatchTrigger()
	t.idx.log.InfoContext(t.ctx, "library change detected, rescanning")
	count, err := t.idx.Rescan(t.ctx)
	if t.onRescan != nil {
		t.onRescan(count, err)
	}
}

func (t *trigger) start() {
	t.wg.Add(1)
	go t.run()
}

func (t *trigger) stop() {
	t.cancel()
	t.wg.Wait()
}

// isElementFile reports whether a changed path can affect the index.
func isElementFile(path string) bool {
	_, ok := element.TypeFromSuffix(filepath.Ext(path))
	return ok
}

// =============================================================================
// FSNOTIFY WATCHER
// =============================================================================

// FsnotifyWatcher implements FileWatcher using fsnotify
type FsnotifyWatcher struct {
	idx     *Index
	watcher *fsnotify.Watcher
	trigger *trigger
	done    chan struct{}
	started bool
}

// NewFsnotifyWatcher creates a new fsnotify-based watcher
func NewFsnotifyWatcher(idx *Index, debounce, minInterval time.Duration, onRescan RescanFunc) (*FsnotifyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FsnotifyWatcher{
		idx:     idx,
		watcher: watcher,
		trigger: newTrigger(idx, debounce, minInterval, onRescan),
		done:    make(chan struct{}),
	}, nil
}

// Watch starts watching for file changes
func (fw *FsnotifyWatcher) Watch() error {
	if err := fw.addRecursive(fw.idx.root); err != nil {
		return err
	}
	fw.started = true
	go fw.processEvents()
	fw.trigger.start()
	return nil
}

// addRecursive adds a directory and all its subdirectories to the watch list
func (fw *FsnotifyWatcher) addRecursive(dir string) error {
	scanner := Scanner{IgnorePatterns: fw.idx.config.IgnorePatterns}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != fw.idx.root && scanner.shouldIgnore(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.idx.log.Debug("cannot watch directory", "path", path, "error", err)
		}
		return nil
	})
}

// processEvents processes file system events
func (fw *FsnotifyWatcher) processEvents() {
	defer close(fw.done)
	for {
		select {
		case <-fw.trigger.ctx.Done():
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories may already contain elements
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addRecursive(event.Name); err != nil {
						fw.idx.log.Warn("cannot watch new directory", "path", event.Name, "error", err)
					}
					fw.trigger.changed()
					continue
				}
			}
			if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
				continue
			}
			// A removed or renamed directory has no suffix but may hold elements
			if isElementFile(event.Name) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				fw.trigger.changed()
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.idx.log.Warn("file watcher error", "error", err)
		}
	}
}

// Close stops watching and releases resources
func (fw *FsnotifyWatcher) Close() error {
	fw.trigger.stop()
	err := fw.watcher.Close()
	if fw.started {
		<-fw.done
	}
	return err
}

// =============================================================================
// POLLING WATCHER (FALLBACK)
// =============================================================================

// PollingWatcher implements FileWatcher using periodic polling
type PollingWatcher struct {
	idx      *Index
	interval time.Duration
	trigger  *trigger
	files    map[string]time.Time // relative path -> mod time
	mu       sync.Mutex
}

// NewPollingWatcher creates a new polling-based watcher
func NewPollingWatcher(idx *Index, interval, debounce, minInterval time.Duration, onRescan RescanFunc) *PollingWatcher {
	return &PollingWatcher{
		idx:      idx,
		interval: interval,
		trigger:  newTrigger(idx, debounce, minInterval, onRescan),
		files:    make(map[string]time.Time),
	}
}

// Watch starts watching for file changes
func (pw *PollingWatcher) Watch() error {
	files, err := pw.snapshot()
	if err != nil {
		return err
	}
	pw.mu.Lock()
	pw.files = files
	pw.mu.Unlock()

	pw.trigger.wg.Add(1)
	go pw.poll()
	pw.trigger.start()
	return nil
}

// snapshot records the modification times of every element file
func (pw *PollingWatcher) snapshot() (map[string]time.Time, error) {
	scanner := &Scanner{
		IgnorePatterns: pw.idx.config.IgnorePatterns,
		MaxElementSize: pw.idx.config.MaxElementSize,
		Logger:         pw.idx.log,
	}
	res, err := scanner.Scan(pw.trigger.ctx, pw.idx.root)
	if err != nil {
		return nil, err
	}
	files := make(map[string]time.Time, res.Count())
	for _, paths := range res.Files {
		for _, p := range paths {
			if info, err := os.Stat(pw.idx.absPath(p)); err == nil {
				files[p] = info.ModTime()
			}
		}
	}
	return files, nil
}

// poll periodically checks for file changes
func (pw *PollingWatcher) poll() {
	defer pw.trigger.wg.Done()

	ticker := time.NewTicker(pw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pw.trigger.ctx.Done():
			return

		case <-ticker.C:
			if pw.checkChanges() {
				pw.trigger.changed()
			}
		}
	}
}

// checkChanges reports whether any element file was added, modified or removed
func (pw *PollingWatcher) checkChanges() bool {
	current, err := pw.snapshot()
	if err != nil {
		return false
	}

	pw.mu.Lock()
	defer pw.mu.Unlock()
	old := pw.files
	pw.files = current

	if len(old) != len(current) {
		return true
	}
	for path, modTime := range current {
		if oldTime, exists := old[path]; !exists || !oldTime.Equal(modTime) {
			return true
		}
	}
	return false
}

// Close stops watching
func (pw *PollingWatcher) Close() error {
	pw.trigger.stop()
	return nil
}

// =============================================================================
// WATCHER FACTORY
// =============================================================================

// DefaultPollInterval is used when fsnotify is unavailable.
const DefaultPollInterval = 5 * time.Second

// startWatcher starts the file watcher (fsnotify or polling fallback)
func (idx *Index) startWatcher(onRescan RescanFunc) error {
	if onRescan == nil {
		onRescan = func(count int, err error) {
			if err != nil {
				idx.log.Error("automatic rescan failed", "error", err)
			}
		}
	}
	cfg := idx.config

	fw, err := NewFsnotifyWatcher(idx, cfg.WatchDebounce, cfg.WatchMinInterval, onRescan)
	if err == nil {
		if err := fw.Watch(); err == nil {
			idx.setWatcher(fw)
			return nil
		}
		fw.Close()
	}

	pw := NewPollingWatcher(idx, DefaultPollInterval, cfg.WatchDebounce, cfg.WatchMinInterval, onRescan)
	if err := pw.Watch(); err != nil {
		return err
	}
	idx.setWatcher(pw)
	return nil
}

func (idx *Index) setWatcher(w FileWatcher) {
	idx.mu.Lock()
	idx.watcher = w
	idx.mu.Unlock()
}

// Watch starts automatic rescans on library changes, calling onRescan
// after each one. It replaces any running watcher.
func (idx *Index) Watch(onRescan RescanFunc) error {
	if err := idx.checkOpen(); err != nil {
		return err
	}
	idx.mu.Lock()
	old := idx.watcher
	idx.watcher = nil
	idx.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return idx.startWatcher(onRescan)
}
