// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for partlib.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and struct tag validation.
//
// # Key Types
//
//   - Config: Main configuration structure with all settings
//   - LibraryConfig: Library root, cache location and element file format
//   - IndexConfig: Locales, load workers and invalid element handling
//   - WatchConfig: Automatic rescans on file changes
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (PARTLIB_*)
//   - The file named by PARTLIB_CONFIG
//   - ~/.partlib/config.toml
//   - ~/.partlib/config.json
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	idx, err := index.Open(index.ConfigFromSettings(cfg))
package config
