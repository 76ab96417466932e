// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ident provides the identity primitives of library elements.
//
// Every library element is identified by a UUID that stays the same across
// all of its revisions, and a Version that orders those revisions.
//
// # Key Types
//
//   - UUID: lowercase random (v4) identifier, validated on parse
//   - Version: 1 to 10 numeric segments with trailing zeros ignored
//
// # Ordering
//
// Version.ComparableForm renders a version as a fixed-width string so that
// plain string comparison (for example a SQL ORDER BY) yields numeric
// version order:
//
//	ident.MustParseVersion("2.9").ComparableForm() < ident.MustParseVersion("2.10").ComparableForm()
package ident
