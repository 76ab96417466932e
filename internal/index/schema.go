// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/liberr"
)

const (
	// SchemaVersion is stored as internal.db_version. A cache written with
	// another version is discarded when the index is opened.
	SchemaVersion = 3
)

// internalTable holds key/value metadata about the last rescan.
const internalTable = `
CREATE TABLE internal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key TEXT UNIQUE NOT NULL,
    value_text TEXT,
    value_int INTEGER,
    value_real REAL,
    value_blob BLOB
)`

// Keys of the internal table.
const (
	keyDBVersion    = "db_version"
	keyLastRescan   = "last_rescan"
	keyElementCount = "element_count"
	keyLibraryRoot  = "library_root"
)

// =============================================================================
// DDL GENERATION
// =============================================================================

// tableDDL returns the CREATE statements of one element type: the element
// table with its lookup index, the translation table and, for categorized
// types, the category assignment table.
func tableDDL(info element.Info) []string {
	extra := ""
	switch {
	case info.Type.IsCategory():
		extra = ",\n    parent_uuid TEXT"
	case info.Type == element.Device:
		extra = ",\n    component_uuid TEXT NOT NULL,\n    package_uuid TEXT NOT NULL"
	}

	stmts := []string{
		fmt.Sprintf(`CREATE TABLE %[1]s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    filepath TEXT UNIQUE NOT NULL,
    uuid TEXT NOT NULL,
    version TEXT NOT NULL,
    version_key TEXT NOT NULL%[2]s
)`, info.Table, extra),
		fmt.Sprintf(`CREATE INDEX idx_%[1]s_uuid ON %[1]s(uuid, version_key)`, info.Table),
		fmt.Sprintf(`CREATE TABLE %[1]s_tr (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    %[2]s INTEGER NOT NULL REFERENCES %[1]s(id),
    locale TEXT NOT NULL,
    name TEXT,
    description TEXT,
    keywords TEXT,
    UNIQUE(%[2]s, locale)
)`, info.Table, info.IDColumn),
	}

	switch {
	case info.Type.IsCategory():
		stmts = append(stmts, fmt.Sprintf(`CREATE INDEX idx_%[1]s_parent ON %[1]s(parent_uuid)`, info.Table))
	default:
		stmts = append(stmts,
			fmt.Sprintf(`CREATE TABLE %[1]s_cat (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    %[2]s INTEGER NOT NULL REFERENCES %[1]s(id),
    category_uuid TEXT NOT NULL,
    UNIQUE(%[2]s, category_uuid)
)`, info.Table, info.IDColumn),
			fmt.Sprintf(`CREATE INDEX idx_%[1]s_cat_uuid ON %[1]s_cat(category_uuid)`, info.Table),
		)
	}
	if info.Type == element.Device {
		stmts = append(stmts, `CREATE INDEX idx_devices_component ON devices(component_uuid)`)
	}
	return stmts
}

// tablesDropOrder lists every table, referencing tables before the
// tables they reference.
func tablesDropOrder() []string {
	tables := []string{"internal"}
	for _, info := range element.Infos() {
		tables = append(tables, info.Table+"_tr")
		if !info.Type.IsCategory() {
			tables = append(tables, info.Table+"_cat")
		}
		tables = append(tables, info.Table)
	}
	return tables
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// resetSchema drops every cache table and creates the current schema.
// Run inside the rescan transaction it makes the rebuild atomic.
func resetSchema(ctx context.Context, ex execer) error {
	for _, table := range tablesDropOrder() {
		if _, err := ex.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return liberr.Storage("drop", table, err)
		}
	}
	return createSchema(ctx, ex)
}

func createSchema(ctx context.Context, ex execer) error {
	if _, err := ex.ExecContext(ctx, internalTable); err != nil {
		return liberr.Storage("create", "internal", err)
	}
	for _, info := range element.Infos() {
		for _, stmt := range tableDDL(info) {
			if _, err := ex.ExecContext(ctx, stmt); err != nil {
				return liberr.Storage("create", info.Table, err)
			}
		}
	}
	return setInternalInt(ctx, ex, keyDBVersion, SchemaVersion)
}

func setInternalInt(ctx context.Context, ex execer, key string, v int64) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO internal (key, value_int) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_int = excluded.value_int`, key, v)
	return liberr.Storage("insert", "internal", err)
}

func setInternalText(ctx context.Context, ex execer, key, v string) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO internal (key, value_text) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value_text = excluded.value_text`, key, v)
	return liberr.Storage("insert", "internal", err)
}

// cacheVersion reads internal.db_version. ok is false when the cache has
// no readable version, for example a fresh or foreign file.
func cacheVersion(ctx context.Context, db *sql.DB) (version int64, ok bool) {
	err := db.QueryRowContext(ctx,
		"SELECT value_int FROM internal WHERE key = ?", keyDBVersion).Scan(&version)
	if err != nil {
		return 0, false
	}
	return version, true
}

// hasSchema reports whether the cache already contains the internal table.
func hasSchema(ctx context.Context, db *sql.DB) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'internal'").Scan(&n)
	if err != nil {
		return false, liberr.Storage("query", "sqlite_master", err)
	}
	return n > 0, nil
}
