// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/partlib/internal/element"
)

func TestScanner_ClassifiesBySuffix(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw("sym/b.sym", "")
	lib.writeRaw("sym/a.SYM", "")
	lib.writeRaw("fpt/deep/nested/x.fpt", "")
	lib.writeRaw("cat/r.cmpcat", "")
	lib.writeRaw("dev/d.dev", "")
	lib.writeRaw("readme.md", "")
	lib.writeRaw("sym/noext", "")

	res, err := NewScanner().Scan(context.Background(), lib.root)
	require.NoError(t, err)

	assert.Equal(t, []string{"sym/a.SYM", "sym/b.sym"}, res.Files[element.Symbol])
	assert.Equal(t, []string{"fpt/deep/nested/x.fpt"}, res.Files[element.Footprint])
	assert.Equal(t, []string{"cat/r.cmpcat"}, res.Files[element.ComponentCategory])
	assert.Equal(t, []string{"dev/d.dev"}, res.Files[element.Device])
	assert.Equal(t, 5, res.Count())
	assert.Empty(t, res.Warnings)
}

func TestScanner_IgnoresHiddenEntries(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw(".git/objects/x.sym", "")
	lib.writeRaw(".partlib/y.sym", "")
	lib.writeRaw("sym/.hidden.sym", "")
	lib.writeRaw("sym/visible.sym", "")

	res, err := NewScanner().Scan(context.Background(), lib.root)
	require.NoError(t, err)
	assert.Equal(t, []string{"sym/visible.sym"}, res.Files[element.Symbol])
	assert.Equal(t, 1, res.Count())
}

func TestScanner_CustomIgnorePatterns(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw("build/x.sym", "")
	lib.writeRaw("src/build-notes/y.sym", "")

	s := &Scanner{IgnorePatterns: []string{"build"}}
	res, err := s.Scan(context.Background(), lib.root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/build-notes/y.sym"}, res.Files[element.Symbol])
}

func TestScanner_OversizeFileIsWarning(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw("sym/big.sym", strings.Repeat("x", 100))
	lib.writeRaw("sym/small.sym", "x")

	s := NewScanner()
	s.MaxElementSize = 10
	res, err := s.Scan(context.Background(), lib.root)
	require.NoError(t, err)

	assert.Equal(t, []string{"sym/small.sym"}, res.Files[element.Symbol])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "sym/big.sym", res.Warnings[0].Path)
}

func TestScanner_DanglingSymlinkIsWarning(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw("sym/real.sym", "")
	link := filepath.Join(lib.root, "sym", "broken.sym")
	if err := os.Symlink(filepath.Join(lib.root, "missing"), link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	res, err := NewScanner().Scan(context.Background(), lib.root)
	require.NoError(t, err)
	assert.Equal(t, []string{"sym/real.sym"}, res.Files[element.Symbol])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "sym/broken.sym", res.Warnings[0].Path)
}

func TestScanner_UnreadableFileIsWarning(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("needs a platform and user that honor file permissions")
	}
	lib := newLibrary(t)
	lib.writeRaw("sym/real.sym", "")
	locked := lib.writeRaw("sym/locked.sym", "")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0644) })

	res, err := NewScanner().Scan(context.Background(), lib.root)
	require.NoError(t, err)
	assert.Equal(t, []string{"sym/real.sym"}, res.Files[element.Symbol])
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, "sym/locked.sym", res.Warnings[0].Path)
	assert.ErrorIs(t, res.Warnings[0], os.ErrPermission)
}

func TestScanner_InvalidRoot(t *testing.T) {
	lib := newLibrary(t)
	file := lib.writeRaw("file.txt", "")

	_, err := NewScanner().Scan(context.Background(), filepath.Join(lib.root, "missing"))
	assert.ErrorIs(t, err, ErrInvalidPath)

	_, err = NewScanner().Scan(context.Background(), file)
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestScanner_Cancelled(t *testing.T) {
	lib := newLibrary(t)
	lib.writeRaw("sym/a.sym", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewScanner().Scan(ctx, lib.root)
	assert.True(t, errors.Is(err, context.Canceled))
}
