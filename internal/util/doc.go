// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides file helpers shared by the partlib packages.
//
// # Key Functions
//
//   - AtomicWriteFile: crash-safe file replacement with fsync
//   - AtomicWriteFileWithDir: the same with explicit directory permissions
//
// # Usage
//
//	// Write files atomically so readers never see partial content
//	err := util.AtomicWriteFile(path, data, 0644)
package util
