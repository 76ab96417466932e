// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package element describes library elements and how their metadata is
// read from disk.
//
// A library holds nine kinds of elements (see Type). Each element is one
// file named "<anything>.<suffix>" below the library root, for example
// "resistors/r0805.cmp". The index only needs the element's identity,
// localized texts and references, which a Loader extracts into a Record.
//
// # Key Types
//
//   - Type: element kind with its fixed storage description (Info)
//   - Record: identity and metadata of one element file
//   - LocalizedText: locale keyed text with fallback resolution
//   - Loader / Registry: per type dispatch of file loading
//   - DescriptorLoader: default loader for TOML or YAML descriptors
//
// # Descriptor Format
//
//	uuid = "d2c30518-5cd1-4ce9-a569-44f783a3f66a"
//	version = "1.0"
//	categories = ["bdf7bea5-b88e-41b2-be85-c1604e8ddfca"]
//
//	[name]
//	en_US = "Resistor"
//
// Categories use "parent" instead of "categories"; devices additionally
// carry "component" and "package".
package element
