// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/liberr"
)

// =============================================================================
// RESCAN
// =============================================================================

// Rescan rebuilds the cache from the library files and returns the number
// of elements indexed.
//
// The rebuild runs in a single transaction: readers on other connections
// keep seeing the previous contents until it commits, and any failure
// (an invalid element unless SkipInvalid is set, a storage error, or
// cancellation) rolls it back and leaves the previous contents intact.
//
// Concurrent calls on one Index share a single rebuild. A caller whose ctx
// is done returns ctx.Err() at once; the shared rebuild is cancelled only
// when every caller waiting for it has given up.
func (idx *Index) Rescan(ctx context.Context) (int, error) {
	for {
		if err := idx.checkOpen(); err != nil {
			return 0, err
		}
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		call := idx.joinRescan(ctx)
		ch := idx.group.DoChan("rescan", func() (any, error) {
			return idx.rescan(call.ctx)
		})

		select {
		case res := <-ch:
			idx.leaveRescan(call)
			if res.Err != nil {
				// joined a rebuild that all of its earlier callers abandoned
				if errors.Is(res.Err, context.Canceled) && ctx.Err() == nil {
					continue
				}
				return 0, res.Err
			}
			return res.Val.(int), nil

		case <-ctx.Done():
			if idx.leaveRescan(call) {
				// wait for the rollback
				<-ch
			}
			return 0, ctx.Err()
		}
	}
}

// rescanCall is the context shared by the callers of one rebuild. It keeps
// the values of the first caller's context but not its cancellation.
type rescanCall struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

func (idx *Index) joinRescan(ctx context.Context) *rescanCall {
	idx.rescanMu.Lock()
	defer idx.rescanMu.Unlock()
	if idx.call == nil {
		rctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		idx.call = &rescanCall{ctx: rctx, cancel: cancel}
	}
	idx.call.waiters++
	return idx.call
}

// leaveRescan unregisters a caller. It reports whether that caller was the
// last one, in which case the shared context is cancelled.
func (idx *Index) leaveRescan(call *rescanCall) bool {
	idx.rescanMu.Lock()
	defer idx.rescanMu.Unlock()
	call.waiters--
	if call.waiters > 0 {
		return false
	}
	if idx.call == call {
		idx.call = nil
	}
	call.cancel()
	return true
}

func (idx *Index) rescan(ctx context.Context) (count int, err error) {
	ctx, span := startRescanSpan(ctx, idx.root)
	defer func() { endSpan(span, count, err) }()

	idx.rescanMu.Lock()
	idx.rescanning = true
	idx.rescanMu.Unlock()
	defer func() {
		idx.rescanMu.Lock()
		idx.rescanning = false
		idx.rescanMu.Unlock()
	}()

	startTime := time.Now()
	idx.log.InfoContext(ctx, "rescan started")

	count, skipped, warnings, err := idx.rebuild(ctx)
	took := time.Since(startTime)
	idx.log.LogRescan(ctx, count, skipped, took, err)
	recordRescan(took, err)
	if err != nil {
		return 0, err
	}

	idx.rescanMu.Lock()
	idx.lastRescan = startTime
	idx.count = count
	idx.skipped = skipped
	idx.scanWarning = warnings
	idx.rescanMu.Unlock()
	setElementsGauge(count)
	return count, nil
}

// rebuild performs the transactional rebuild.
func (idx *Index) rebuild(ctx context.Context) (count, skipped, warnings int, err error) {
	if err := idx.locks.Acquire(ctx, idx.lockPath); err != nil {
		return 0, 0, 0, err
	}
	defer func() {
		if rerr := idx.locks.Release(idx.lockPath); rerr != nil {
			idx.log.Warn("failed to release rescan lock", "error", rerr)
		}
	}()

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, 0, liberr.Storage("begin", "", err)
	}
	defer tx.Rollback()

	if err := resetSchema(ctx, tx); err != nil {
		return 0, 0, 0, err
	}
	idx.log.DebugContext(ctx, "cache schema reset")

	scanner := &Scanner{
		IgnorePatterns: idx.config.IgnorePatterns,
		MaxElementSize: idx.config.MaxElementSize,
		Logger:         idx.log,
	}
	res, err := scanner.Scan(ctx, idx.root)
	if err != nil {
		return 0, 0, 0, err
	}
	warnings = len(res.Warnings)

	fsys := os.DirFS(idx.root)
	types := element.Types()
	for i, t := range types {
		records, nskip, nwarn, err := idx.loadAll(ctx, fsys, t, res.Files[t])
		if err != nil {
			return 0, 0, 0, err
		}
		skipped += nskip
		warnings += nwarn

		ins, err := newInserter(ctx, tx, t.Info())
		if err != nil {
			return 0, 0, 0, err
		}
		for _, rec := range records {
			if err := ins.insert(ctx, rec); err != nil {
				ins.close()
				return 0, 0, 0, err
			}
			count++
		}
		ins.close()

		if idx.progress != nil {
			idx.progress(Progress{Type: t, Done: i + 1, Total: len(types), Elements: count})
		}
	}

	if err := setInternalInt(ctx, tx, keyLastRescan, time.Now().Unix()); err != nil {
		return 0, 0, 0, err
	}
	if err := setInternalInt(ctx, tx, keyElementCount, int64(count)); err != nil {
		return 0, 0, 0, err
	}
	if err := setInternalText(ctx, tx, keyLibraryRoot, idx.root); err != nil {
		return 0, 0, 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, 0, liberr.Storage("commit", "", err)
	}
	return count, skipped, warnings, nil
}

// loadAll loads the files of one type with a bounded worker pool. Records
// are returned in path order. In fail-fast mode the first failure stops
// the remaining loads and the lowest-path error observed is returned.
// Files that became unreadable since the scan are warnings in both modes.
func (idx *Index) loadAll(ctx context.Context, fsys fs.FS, t element.Type, paths []string) (records []*element.Record, skipped, warnings int, err error) {
	loaded := make([]*element.Record, len(paths))
	errs := make([]error, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.config.LoadWorkers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			rec, err := idx.loaders.Load(gctx, fsys, t, p)
			if err != nil {
				errs[i] = err
				var w liberr.ScanWarning
				if !idx.config.SkipInvalid && !errors.As(err, &w) {
					return err
				}
				return nil
			}
			loaded[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, 0, 0, err
	}

	records = make([]*element.Record, 0, len(paths))
	for i, err := range errs {
		var w liberr.ScanWarning
		switch {
		case err == nil:
			records = append(records, loaded[i])
		case errors.Is(err, context.Canceled):
			// cancelled after an earlier failure in this batch
			continue
		case errors.As(err, &w):
			warnings++
			recordScanWarning()
			idx.log.LogScanWarning(ctx, w.Path, w.Err)
		case idx.config.SkipInvalid:
			skipped++
			recordSkipped()
			idx.log.LogSkippedElement(ctx, paths[i], err)
		default:
			return nil, 0, 0, err
		}
	}
	return records, skipped, warnings, nil
}

// =============================================================================
// INSERTS
// =============================================================================

// inserter holds the prepared statements of one element type.
type inserter struct {
	info    element.Info
	element *sql.Stmt
	tr      *sql.Stmt
	cat     *sql.Stmt
}

func newInserter(ctx context.Context, tx *sql.Tx, info element.Info) (*inserter, error) {
	ins := &inserter{info: info}

	var query string
	switch {
	case info.Type.IsCategory():
		query = fmt.Sprintf(`INSERT INTO %s (filepath, uuid, version, version_key, parent_uuid)
			VALUES (?, ?, ?, ?, ?)`, info.Table)
	case info.Type == element.Device:
		query = fmt.Sprintf(`INSERT INTO %s (filepath, uuid, version, version_key, component_uuid, package_uuid)
			VALUES (?, ?, ?, ?, ?, ?)`, info.Table)
	default:
		query = fmt.Sprintf(`INSERT INTO %s (filepath, uuid, version, version_key)
			VALUES (?, ?, ?, ?)`, info.Table)
	}

	var err error
	if ins.element, err = tx.PrepareContext(ctx, query); err != nil {
		return nil, liberr.Storage("prepare", info.Table, err)
	}
	ins.tr, err = tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s_tr (%s, locale, name, description, keywords)
		VALUES (?, ?, ?, ?, ?)`, info.Table, info.IDColumn))
	if err != nil {
		ins.close()
		return nil, liberr.Storage("prepare", info.Table+"_tr", err)
	}
	if !info.Type.IsCategory() {
		ins.cat, err = tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s_cat (%s, category_uuid)
			VALUES (?, ?)`, info.Table, info.IDColumn))
		if err != nil {
			ins.close()
			return nil, liberr.Storage("prepare", info.Table+"_cat", err)
		}
	}
	return ins, nil
}

// insert writes one element row, one translation row per locale and one
// category row per category.
func (ins *inserter) insert(ctx context.Context, rec *element.Record) error {
	args := []any{rec.Path, rec.UUID.String(), rec.Version.String(), rec.Version.ComparableForm()}
	switch {
	case ins.info.Type.IsCategory():
		var parent any
		if rec.Parent != nil {
			parent = rec.Parent.String()
		}
		args = append(args, parent)
	case ins.info.Type == element.Device:
		args = append(args, rec.Component.String(), rec.Package.String())
	}

	result, err := ins.element.ExecContext(ctx, args...)
	if err != nil {
		return liberr.Storage("insert", ins.info.Table, fmt.Errorf("%s: %w", rec.Path, err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return liberr.Storage("insert", ins.info.Table, err)
	}

	for _, loc := range rec.AllLocales() {
		_, err := ins.tr.ExecContext(ctx, id, loc,
			nullString(rec.Names, loc), nullString(rec.Descriptions, loc), nullString(rec.Keywords, loc))
		if err != nil {
			return liberr.Storage("insert", ins.info.Table+"_tr", err)
		}
	}

	for _, c := range rec.Categories {
		if _, err := ins.cat.ExecContext(ctx, id, c.String()); err != nil {
			return liberr.Storage("insert", ins.info.Table+"_cat", err)
		}
	}
	return nil
}

func (ins *inserter) close() {
	for _, st := range []*sql.Stmt{ins.element, ins.tr, ins.cat} {
		if st != nil {
			st.Close()
		}
	}
}

func nullString(lt element.LocalizedText, loc string) sql.NullString {
	v, ok := lt[loc]
	return sql.NullString{String: v, Valid: ok}
}
