// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package element

import "strings"

// =============================================================================
// ELEMENT TYPES
// =============================================================================

// Type is the kind of a library element. Its value is the file suffix
// that identifies elements of that kind on disk.
type Type string

const (
	ComponentCategory Type = "cmpcat"
	PackageCategory   Type = "pkgcat"
	Symbol            Type = "sym"
	Footprint         Type = "fpt"
	Model3D           Type = "3dmdl"
	SpiceModel        Type = "spcmdl"
	Package           Type = "pkg"
	Component         Type = "cmp"
	Device            Type = "dev"
)

// Info describes how a Type is stored in the cache.
type Info struct {
	Type     Type
	Name     string // human readable, e.g. "component category"
	Table    string // e.g. "symbols"
	IDColumn string // foreign key column in the _tr/_cat tables

	// CategoryType is the category kind elements of this type are filed
	// under. Empty for the category types themselves.
	CategoryType Type
}

// types is the fixed rescan order: categories first, devices last.
var types = []Info{
	{ComponentCategory, "component category", "component_categories", "cat_id", ""},
	{PackageCategory, "package category", "package_categories", "cat_id", ""},
	{Symbol, "symbol", "symbols", "symbol_id", ComponentCategory},
	{Footprint, "footprint", "footprints", "footprint_id", PackageCategory},
	{Model3D, "3D model", "models3d", "model_id", PackageCategory},
	{SpiceModel, "SPICE model", "spice_models", "model_id", ComponentCategory},
	{Package, "package", "packages", "package_id", PackageCategory},
	{Component, "component", "components", "component_id", ComponentCategory},
	{Device, "device", "devices", "device_id", ComponentCategory},
}

// Types returns every element type in rescan order.
func Types() []Type {
	out := make([]Type, len(types))
	for i, info := range types {
		out[i] = info.Type
	}
	return out
}

// Infos returns the storage description of every type in rescan order.
func Infos() []Info {
	out := make([]Info, len(types))
	copy(out, types)
	return out
}

// TypeFromSuffix maps a file suffix (with or without the leading dot,
// case insensitive) to its Type.
func TypeFromSuffix(suffix string) (Type, bool) {
	s := strings.ToLower(strings.TrimPrefix(suffix, "."))
	for _, info := range types {
		if string(info.Type) == s {
			return info.Type, true
		}
	}
	return "", false
}

// String returns the file suffix of the type.
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the type is one of the known element types.
func (t Type) IsValid() bool {
	_, ok := t.lookup()
	return ok
}

// IsCategory reports whether elements of this type form a category tree.
func (t Type) IsCategory() bool {
	return t == ComponentCategory || t == PackageCategory
}

// Info returns the storage description of the type. It panics on an
// unknown type.
func (t Type) Info() Info {
	info, ok := t.lookup()
	if !ok {
		panic("element: unknown type " + string(t))
	}
	return info
}

// Table returns the cache table name of the type.
func (t Type) Table() string { return t.Info().Table }

func (t Type) lookup() (Info, bool) {
	for _, info := range types {
		if info.Type == t {
			return info, true
		}
	}
	return Info{}, false
}
