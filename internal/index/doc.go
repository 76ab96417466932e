// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package index maintains the SQLite cache of a part library.
//
// A library is a directory tree of element files (symbols, footprints,
// packages, components, devices and their categories). The index scans the
// tree, loads every element and stores its identity, translations and
// relations so that lookups do not touch the files again.
//
// # Key Types
//
//   - Index: the cache of one library root
//   - Scanner: classifies candidate element files by suffix
//   - Revisions: the on-disk revisions of one element
//   - CategoryNode: a node of a category tree
//   - FileWatcher: triggers rescans when the library changes
//
// # Usage
//
// Open the cache and rebuild it:
//
//	idx, err := index.Open(index.DefaultConfig("/path/to/library"))
//	count, err := idx.Rescan(ctx)
//
// Look up the newest revision of an element:
//
//	path, ok, err := idx.LatestComponent(ctx, uuid)
//
// Rescans are transactional. Readers using another Index on the same cache
// file keep seeing the previous contents until the rebuild commits.
package index
