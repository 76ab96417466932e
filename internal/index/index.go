// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/partlib/internal/config"
	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/liberr"
	"github.com/jeranaias/partlib/internal/lock"
	"github.com/jeranaias/partlib/internal/logging"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrClosed      = errors.New("library index closed")
	ErrInvalidPath = errors.New("invalid library path")
	ErrWrongType   = errors.New("operation not supported for element type")
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds index configuration
type Config struct {
	// Root is the library root directory
	Root string

	// CachePath is where to store the SQLite cache
	CachePath string

	// ElementFormat selects the descriptor decoder of the default loaders
	ElementFormat element.Format

	// MaxElementSize is the maximum element file size to load (bytes)
	MaxElementSize int64

	// IgnorePatterns are directory name globs the scanner skips
	IgnorePatterns []string

	// Locales is the preferred locale order for names and descriptions
	Locales []string

	// LoadWorkers bounds the number of element files loaded in parallel
	LoadWorkers int

	// SkipInvalid logs and skips invalid elements instead of failing the rescan
	SkipInvalid bool

	// BusyTimeout is how long SQLite waits for a lock held by another
	// connection, and how long Open waits to prepare a cache that another
	// instance is rebuilding.
	BusyTimeout time.Duration

	// EnableWatch rescans automatically when element files change
	EnableWatch bool

	// WatchDebounce is the quiet period before a change triggers a rescan
	WatchDebounce time.Duration

	// WatchMinInterval is the minimum time between two automatic rescans
	WatchMinInterval time.Duration
}

// DefaultCacheDir is the directory below the root holding the cache.
const DefaultCacheDir = ".partlib"

// DefaultConfig returns default configuration
func DefaultConfig(root string) *Config {
	return &Config{
		Root:             root,
		CachePath:        filepath.Join(root, DefaultCacheDir, "library_cache.sqlite"),
		ElementFormat:    element.FormatTOML,
		MaxElementSize:   4 * 1024 * 1024, // 4MB
		IgnorePatterns:   DefaultIgnorePatterns,
		Locales:          []string{element.FallbackLocale},
		LoadWorkers:      4,
		BusyTimeout:      5 * time.Second,
		EnableWatch:      false,
		WatchDebounce:    500 * time.Millisecond,
		WatchMinInterval: 5 * time.Second,
	}
}

// ConfigFromSettings maps the user configuration onto an index Config.
func ConfigFromSettings(c *config.Config) *Config {
	cfg := DefaultConfig(c.Library.Root)
	if c.Library.CachePath != "" {
		cfg.CachePath = c.Library.CachePath
	}
	if c.Library.ElementFormat != "" {
		cfg.ElementFormat = element.Format(c.Library.ElementFormat)
	}
	if c.Library.MaxElementSize > 0 {
		cfg.MaxElementSize = c.Library.MaxElementSize
	}
	if len(c.Library.IgnorePatterns) > 0 {
		cfg.IgnorePatterns = c.Library.IgnorePatterns
	}
	if len(c.Index.Locales) > 0 {
		cfg.Locales = c.Index.Locales
	}
	if c.Index.LoadWorkers > 0 {
		cfg.LoadWorkers = c.Index.LoadWorkers
	}
	cfg.SkipInvalid = c.Index.SkipInvalid
	if c.Index.BusyTimeoutMs > 0 {
		cfg.BusyTimeout = time.Duration(c.Index.BusyTimeoutMs) * time.Millisecond
	}
	cfg.EnableWatch = c.Watch.Enabled
	if c.Watch.DebounceMs > 0 {
		cfg.WatchDebounce = time.Duration(c.Watch.DebounceMs) * time.Millisecond
	}
	if c.Watch.MinIntervalMs > 0 {
		cfg.WatchMinInterval = time.Duration(c.Watch.MinIntervalMs) * time.Millisecond
	}
	return cfg
}

// OpenFromSettings opens the index described by the user configuration,
// logging as its [log] section asks. Options are applied after the logger.
func OpenFromSettings(c *config.Config, opts ...Option) (*Index, error) {
	log, err := logging.FromConfig(c.Log.Level, c.Log.Format, os.Stderr)
	if err != nil {
		return nil, err
	}
	return Open(ConfigFromSettings(c), append([]Option{WithLogger(log)}, opts...)...)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Progress is reported after each element type has been inserted.
type Progress struct {
	Type     element.Type
	Done     int // element types completed
	Total    int
	Elements int // elements inserted so far
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(idx *Index) { idx.log = l }
}

// WithLoaderRegistry replaces the default descriptor loaders.
func WithLoaderRegistry(r *element.Registry) Option {
	return func(idx *Index) { idx.loaders = r }
}

// WithLockRegistry shares a lock registry between owners. By default each
// Index creates and owns its own.
func WithLockRegistry(r *lock.Registry) Option {
	return func(idx *Index) {
		idx.locks = r
		idx.ownsLocks = false
	}
}

// WithProgress registers a callback invoked during rescans. It runs inside
// the rescan transaction and must not query the same Index.
func WithProgress(fn func(Progress)) Option {
	return func(idx *Index) { idx.progress = fn }
}

// =============================================================================
// INDEX
// =============================================================================

// Index is the SQLite backed cache of one part library.
//
// An Index owns a single database connection; its methods are blocking and
// are serialized on that connection. Separate Index instances opened on the
// same cache file keep reading the last committed state while another
// instance rebuilds it.
type Index struct {
	db        *sql.DB
	root      string
	config    *Config
	log       *logging.Logger
	loaders   *element.Registry
	locks     *lock.Registry
	ownsLocks bool
	lockPath  string
	progress  func(Progress)
	watcher   FileWatcher

	mu     sync.RWMutex
	closed bool

	// Rescan state
	group       singleflight.Group
	call        *rescanCall
	rescanning  bool
	rescanMu    sync.Mutex
	lastRescan  time.Time
	count       int
	skipped     int
	scanWarning int
}

// Open opens (or creates) the cache of the library at config.Root. A cache
// written by an incompatible schema version is deleted and recreated; its
// contents are available again after the next Rescan.
func Open(config *Config, opts ...Option) (*Index, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}

	root, err := filepath.Abs(config.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: not a directory", ErrInvalidPath)
	}

	cfg := *config
	cfg.Root = root
	if cfg.CachePath == "" {
		cfg.CachePath = filepath.Join(root, DefaultCacheDir, "library_cache.sqlite")
	}
	if cfg.CachePath, err = filepath.Abs(cfg.CachePath); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if cfg.LoadWorkers <= 0 {
		cfg.LoadWorkers = 1
	}

	idx := &Index{
		root:      root,
		config:    &cfg,
		log:       logging.Noop(),
		locks:     lock.NewRegistry(),
		ownsLocks: true,
		lockPath:  cfg.CachePath + ".lock",
	}
	for _, opt := range opts {
		opt(idx)
	}
	if idx.loaders == nil {
		reg, err := element.DefaultRegistry(cfg.ElementFormat)
		if err != nil {
			return nil, err
		}
		idx.loaders = reg
	}
	idx.log = idx.log.WithRoot(root)

	if err := os.MkdirAll(filepath.Dir(cfg.CachePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	ctx := context.Background()

	// A compatible cache is opened without the lock so that opening never
	// waits for a rescan running in another instance.
	db := idx.openCompatibleCache(ctx)
	if db == nil {
		if db, err = idx.prepareCache(ctx); err != nil {
			return nil, err
		}
	}
	idx.db = db

	if err := idx.loadStats(ctx); err != nil {
		idx.log.Warn("failed to load index statistics", "error", err)
	}
	idx.log.Info("library index opened", "cache", cfg.CachePath, "elements", idx.count)
	setElementsGauge(idx.count)

	if cfg.EnableWatch {
		if err := idx.startWatcher(nil); err != nil {
			idx.log.Warn("file watching unavailable", "error", err)
		}
	}
	return idx, nil
}

// openCompatibleCache opens an existing cache written with the current
// schema version. It returns a nil db when the cache is missing, empty or
// incompatible and has to be prepared under the lock.
func (idx *Index) openCompatibleCache(ctx context.Context) *sql.DB {
	if _, err := os.Stat(idx.config.CachePath); err != nil {
		return nil
	}
	db, err := openDB(idx.config.CachePath, idx.config.BusyTimeout)
	if err != nil {
		return nil
	}
	if ok, err := hasSchema(ctx, db); err != nil || !ok {
		db.Close()
		return nil
	}
	if version, ok := cacheVersion(ctx, db); !ok || version != SchemaVersion {
		db.Close()
		return nil
	}
	return db
}

// prepareCache discards an incompatible cache and creates the schema. It
// writes to the cache file, so it holds the lock, waiting at most the busy
// timeout for a rescan of another instance to finish.
func (idx *Index) prepareCache(ctx context.Context) (*sql.DB, error) {
	lockCtx, cancel := context.WithTimeout(ctx, busyTimeout(idx.config.BusyTimeout))
	defer cancel()
	if err := idx.locks.Acquire(lockCtx, idx.lockPath); err != nil {
		return nil, err
	}
	defer idx.locks.Release(idx.lockPath)

	if err := idx.discardIncompatibleCache(ctx); err != nil {
		return nil, err
	}

	db, err := openDB(idx.config.CachePath, idx.config.BusyTimeout)
	if err != nil {
		return nil, err
	}
	ok, err := hasSchema(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if !ok {
		if err := initSchema(ctx, db, idx.root); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return db, nil
}

func busyTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

// cacheDSN builds a file URI for path, so that characters such as '?' and
// '#' in the path are not taken for URI syntax.
func cacheDSN(path string, busyTimeout time.Duration) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "synchronous(NORMAL)")
	u := url.URL{Scheme: "file", Path: p, RawQuery: q.Encode()}
	return u.String()
}

// openDB opens the cache with the connection settings the index relies on.
func openDB(path string, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open("sqlite", cacheDSN(path, busyTimeout(timeout)))
	if err != nil {
		return nil, liberr.Storage("open", "", err)
	}

	// SQLite only supports one writer at a time, and the rescan transaction
	// must own the connection, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA cache_size=-16000", // 16MB cache
		"PRAGMA temp_store=MEMORY",
		"PRAGMA wal_autocheckpoint=1000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, liberr.Storage("open", "", fmt.Errorf("failed to set pragma: %w", err))
		}
	}
	return db, nil
}

// discardIncompatibleCache removes a cache file written by another schema
// version, or a file that is not a cache at all.
func (idx *Index) discardIncompatibleCache(ctx context.Context) error {
	path := idx.config.CachePath
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	db, err := openDB(path, idx.config.BusyTimeout)
	if err == nil {
		ok, herr := hasSchema(ctx, db)
		if herr == nil && !ok {
			// empty file, schema is created below
			db.Close()
			return nil
		}
		version, vok := cacheVersion(ctx, db)
		db.Close()
		if vok && version == SchemaVersion {
			return nil
		}
		idx.log.Info("discarding incompatible library cache", "cache", path, "db_version", version)
	} else {
		idx.log.Warn("discarding unreadable library cache", "cache", path, "error", err)
	}
	return removeDatabaseFiles(path)
}

func removeDatabaseFiles(dbPath string) error {
	paths := []string{dbPath, dbPath + "-wal", dbPath + "-shm"}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// initSchema creates an empty cache so queries succeed before the first rescan
func initSchema(ctx context.Context, db *sql.DB, root string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return liberr.Storage("begin", "", err)
	}
	defer tx.Rollback()

	if err := resetSchema(ctx, tx); err != nil {
		return err
	}
	if err := setInternalText(ctx, tx, keyLibraryRoot, root); err != nil {
		return err
	}
	return liberr.Storage("commit", "", tx.Commit())
}

// Close stops the watcher, releases owned locks and closes the cache.
func (idx *Index) Close() error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return nil
	}
	idx.closed = true
	w := idx.watcher
	idx.watcher = nil
	idx.mu.Unlock()

	var errs []error
	if w != nil {
		errs = append(errs, w.Close())
	}
	if idx.ownsLocks {
		errs = append(errs, idx.locks.Clear())
	}
	if idx.db != nil {
		errs = append(errs, idx.db.Close())
	}
	return errors.Join(errs...)
}

// Root returns the absolute library root.
func (idx *Index) Root() string { return idx.root }

func (idx *Index) checkOpen() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.closed {
		return ErrClosed
	}
	return nil
}

// =============================================================================
// PATHS
// =============================================================================

// relPath maps an absolute or root-relative path to the stored form.
func (idx *Index) relPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(idx.root, p)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		p = rel
	}
	rel := filepath.ToSlash(filepath.Clean(p))
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%w: %s is outside the library", ErrInvalidPath, p)
	}
	return rel, nil
}

// absPath maps a stored path to an absolute filesystem path.
func (idx *Index) absPath(rel string) string {
	return filepath.Join(idx.root, filepath.FromSlash(rel))
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats holds index statistics
type Stats struct {
	ElementCount int
	LastRescan   time.Time
	Skipped      int // invalid elements skipped by the last rescan
	ScanWarnings int
	IsRescanning bool
	CacheSize    int64
}

// loadStats loads statistics from the cache
func (idx *Index) loadStats(ctx context.Context) error {
	var last, count sql.NullInt64
	err := idx.db.QueryRowContext(ctx,
		"SELECT value_int FROM internal WHERE key = ?", keyLastRescan).Scan(&last)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return liberr.Storage("query", "internal", err)
	}
	err = idx.db.QueryRowContext(ctx,
		"SELECT value_int FROM internal WHERE key = ?", keyElementCount).Scan(&count)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return liberr.Storage("query", "internal", err)
	}

	idx.rescanMu.Lock()
	defer idx.rescanMu.Unlock()
	if last.Valid && last.Int64 > 0 {
		idx.lastRescan = time.Unix(last.Int64, 0)
	}
	idx.count = int(count.Int64)
	return nil
}

// Stats returns current index statistics
func (idx *Index) Stats() Stats {
	idx.rescanMu.Lock()
	defer idx.rescanMu.Unlock()

	var size int64
	if info, err := os.Stat(idx.config.CachePath); err == nil {
		size = info.Size()
	}

	return Stats{
		ElementCount: idx.count,
		LastRescan:   idx.lastRescan,
		Skipped:      idx.skipped,
		ScanWarnings: idx.scanWarning,
		IsRescanning: idx.rescanning,
		CacheSize:    size,
	}
}
