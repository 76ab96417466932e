// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package lock serializes library rescans across processes with advisory
// OS file locks (flock on Unix, LockFileEx on Windows).
//
// Locks are tracked by an explicit Registry object rather than a process
// global, so each owner decides when its locks are released:
//
//	reg := lock.NewRegistry()
//	if err := reg.Acquire(ctx, filepath.Join(cacheDir, "rescan.lock")); err != nil {
//		return err
//	}
//	defer reg.Release(filepath.Join(cacheDir, "rescan.lock"))
package lock
