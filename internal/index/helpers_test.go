// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/ident"
)

// Fixed identifiers used across the index tests.
const (
	uuidCatRoot  = "10000000-0000-4000-8000-000000000001"
	uuidCatChild = "10000000-0000-4000-8000-000000000002"
	uuidCatOther = "10000000-0000-4000-8000-000000000003"
	uuidSymbol   = "20000000-0000-4000-8000-000000000001"
	uuidSymbol2  = "20000000-0000-4000-8000-000000000002"
	uuidPackage  = "30000000-0000-4000-8000-000000000001"
	uuidComp     = "40000000-0000-4000-8000-000000000001"
	uuidComp2    = "40000000-0000-4000-8000-000000000002"
	uuidDevice   = "50000000-0000-4000-8000-000000000001"
)

// library is a temporary part library on disk.
type library struct {
	t    *testing.T
	root string
}

func newLibrary(t *testing.T) *library {
	t.Helper()
	return &library{t: t, root: t.TempDir()}
}

// write encodes d as TOML at rel and returns the absolute path.
func (l *library) write(rel string, d element.Descriptor) string {
	l.t.Helper()
	path := filepath.Join(l.root, filepath.FromSlash(rel))
	require.NoError(l.t, element.WriteFile(path, element.FormatTOML, &d))
	return path
}

func (l *library) writeRaw(rel, content string) string {
	l.t.Helper()
	path := filepath.Join(l.root, filepath.FromSlash(rel))
	require.NoError(l.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(l.t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func (l *library) remove(rel string) {
	l.t.Helper()
	require.NoError(l.t, os.Remove(filepath.Join(l.root, filepath.FromSlash(rel))))
}

func (l *library) config() *Config {
	cfg := DefaultConfig(l.root)
	cfg.BusyTimeout = 2 * time.Second
	return cfg
}

// open opens an index on the library and closes it with the test.
func (l *library) open(cfg *Config, opts ...Option) *Index {
	l.t.Helper()
	if cfg == nil {
		cfg = l.config()
	}
	idx, err := Open(cfg, opts...)
	require.NoError(l.t, err)
	l.t.Cleanup(func() { idx.Close() })
	return idx
}

func (l *library) rescan(idx *Index) int {
	l.t.Helper()
	n, err := idx.Rescan(context.Background())
	require.NoError(l.t, err)
	return n
}

func enUS(s string) map[string]string {
	return map[string]string{element.FallbackLocale: s}
}

func desc(uuid, version, name string) element.Descriptor {
	return element.Descriptor{UUID: uuid, Version: version, Name: enUS(name)}
}

func category(uuid, version, name, parent string) element.Descriptor {
	d := desc(uuid, version, name)
	d.Parent = parent
	return d
}

func uuidPtr(s string) *ident.UUID {
	u := ident.MustParseUUID(s)
	return &u
}

func uuids(ss ...string) []ident.UUID {
	out := make([]ident.UUID, 0, len(ss))
	for _, s := range ss {
		out = append(out, ident.MustParseUUID(s))
	}
	return out
}
