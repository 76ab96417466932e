// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/liberr"
	"github.com/jeranaias/partlib/internal/logging"
)

// =============================================================================
// DIRECTORY SCANNER
// =============================================================================

// ScanResult lists the candidate element files of a library, grouped by
// type. Paths are relative to the root, slash separated and sorted.
type ScanResult struct {
	Files    map[element.Type][]string
	Warnings []liberr.ScanWarning
}

// Count returns the number of candidate files.
func (r ScanResult) Count() int {
	n := 0
	for _, paths := range r.Files {
		n += len(paths)
	}
	return n
}

// Scanner walks a library root and classifies element files by suffix.
type Scanner struct {
	// IgnorePatterns are matched against directory base names with
	// filepath.Match. Matching directories are not descended into.
	IgnorePatterns []string

	// MaxElementSize skips larger files. Zero disables the limit.
	MaxElementSize int64

	Logger *logging.Logger
}

// DefaultIgnorePatterns skips hidden directories, which includes the
// cache directory and version control metadata.
var DefaultIgnorePatterns = []string{".*"}

// NewScanner returns a Scanner with the default ignore patterns.
func NewScanner() *Scanner {
	return &Scanner{
		IgnorePatterns: DefaultIgnorePatterns,
		Logger:         logging.Noop(),
	}
}

// Scan walks root recursively. Entries that cannot be read are reported
// as warnings and skipped; only a missing or non-directory root fails.
func (s *Scanner) Scan(ctx context.Context, root string) (ScanResult, error) {
	res := ScanResult{Files: make(map[element.Type][]string)}

	info, err := os.Stat(root)
	if err != nil {
		return res, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if !info.IsDir() {
		return res, fmt.Errorf("%w: %s is not a directory", ErrInvalidPath, root)
	}

	log := s.Logger
	if log == nil {
		log = logging.Noop()
	}
	warn := func(path string, err error) {
		w := liberr.ScanWarning{Path: path, Err: err}
		res.Warnings = append(res.Warnings, w)
		log.LogScanWarning(ctx, path, err)
		recordScanWarning()
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel := relSlash(root, path)
		if err != nil {
			if path == root {
				return err
			}
			warn(rel, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.shouldIgnore(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		t, ok := element.TypeFromSuffix(filepath.Ext(d.Name()))
		if !ok || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		if !d.Type().IsRegular() {
			// follow symlinks to regular files only
			fi, err := os.Stat(path)
			if err != nil {
				warn(rel, err)
				return nil
			}
			if !fi.Mode().IsRegular() {
				warn(rel, errors.New("not a regular file"))
				return nil
			}
		}
		if s.MaxElementSize > 0 {
			fi, err := d.Info()
			if err != nil {
				warn(rel, err)
				return nil
			}
			if fi.Size() > s.MaxElementSize {
				warn(rel, fmt.Errorf("file size %d exceeds limit %d", fi.Size(), s.MaxElementSize))
				return nil
			}
		}

		if err := checkReadable(path); err != nil {
			warn(rel, err)
			return nil
		}

		res.Files[t] = append(res.Files[t], rel)
		return nil
	})
	if err != nil {
		return res, err
	}

	for _, paths := range res.Files {
		sort.Strings(paths)
	}
	return res, nil
}

// checkReadable opens and closes path, so that files without read
// permission are reported by the scan instead of failing the load.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// shouldIgnore checks if a directory should be skipped.
func (s *Scanner) shouldIgnore(name string) bool {
	for _, pattern := range s.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
