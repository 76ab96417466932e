// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrLocked is returned by TryAcquire when another holder owns the lock.
	ErrLocked = errors.New("lock held by another owner")

	// ErrNotHeld is returned by Release for a path this registry does not hold.
	ErrNotHeld = errors.New("lock not held")
)

// DefaultPollInterval is how often Acquire retries a contended lock.
const DefaultPollInterval = 25 * time.Millisecond

// =============================================================================
// REGISTRY
// =============================================================================

// Registry tracks the OS file locks held by one owner, typically one
// library Index. Lock files are advisory: they serialize cooperating
// processes (and separate registries in one process) but do not protect
// the locked path from other writers.
//
// A Registry is safe for concurrent use. It holds each path at most once.
type Registry struct {
	mu   sync.Mutex
	held map[string]*os.File
	poll time.Duration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		held: make(map[string]*os.File),
		poll: DefaultPollInterval,
	}
}

// Acquire blocks until the lock file at path is exclusively held by this
// registry, or ctx is done. The file and its parent directory are created
// as needed.
func (r *Registry) Acquire(ctx context.Context, path string) error {
	ticker := time.NewTicker(r.poll)
	defer ticker.Stop()

	for {
		err := r.TryAcquire(path)
		if err == nil || !errors.Is(err, ErrLocked) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-ticker.C:
		}
	}
}

// TryAcquire takes the lock without waiting. It returns ErrLocked if the
// lock is owned elsewhere, including by this registry.
func (r *Registry) TryAcquire(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving lock path %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.held[abs]; ok {
		return ErrLocked
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("opening lock file %s: %w", abs, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			return ErrLocked
		}
		return fmt.Errorf("locking %s: %w", abs, err)
	}

	// Diagnostic only, a failure here does not affect the lock.
	_ = f.Truncate(0)
	_, _ = fmt.Fprintf(f, "%d\n", os.Getpid())

	r.held[abs] = f
	return nil
}

// Release unlocks path. The lock file itself is left in place so that
// another process waiting on it keeps a valid handle.
func (r *Registry) Release(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving lock path %s: %w", path, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.held[abs]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotHeld, abs)
	}
	delete(r.held, abs)
	return release(f)
}

func release(f *os.File) error {
	return errors.Join(unlockFile(f), f.Close())
}

// Held reports whether this registry holds the lock at path.
func (r *Registry) Held(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.held[abs]
	return ok
}

// Paths returns the absolute paths currently held.
func (r *Registry) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.held))
	for p := range r.held {
		out = append(out, p)
	}
	return out
}

// Clear releases every held lock. It returns the joined release errors.
func (r *Registry) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for p, f := range r.held {
		if err := release(f); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
		delete(r.held, p)
	}
	return errors.Join(errs...)
}
