// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package element

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jeranaias/partlib/internal/ident"
	"github.com/jeranaias/partlib/internal/liberr"
)

// =============================================================================
// LOADER INTERFACE
// =============================================================================

// Loader reads one element file of a given type and extracts its Record.
//
// path is slash separated and relative to fsys. Returned errors should be
// ValidationErrors; anything else is wrapped as ErrInvalidRecord by the
// registry.
type Loader interface {
	Load(ctx context.Context, fsys fs.FS, t Type, path string) (*Record, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, fsys fs.FS, t Type, path string) (*Record, error)

// Load implements Loader.
func (f LoaderFunc) Load(ctx context.Context, fsys fs.FS, t Type, path string) (*Record, error) {
	return f(ctx, fsys, t, path)
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry maps each element type to its loader.
type Registry struct {
	loaders map[Type]Loader
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[Type]Loader)}
}

// DefaultRegistry returns a registry with a DescriptorLoader for every
// element type.
func DefaultRegistry(f Format) (*Registry, error) {
	dec, err := DecoderFor(f)
	if err != nil {
		return nil, err
	}
	r := NewRegistry()
	l := &DescriptorLoader{Decoder: dec}
	for _, t := range Types() {
		r.Register(t, l)
	}
	return r, nil
}

// Register sets the loader for t, replacing any previous one.
func (r *Registry) Register(t Type, l Loader) {
	r.loaders[t] = l
}

// Lookup returns the loader for t.
func (r *Registry) Lookup(t Type) (Loader, bool) {
	l, ok := r.loaders[t]
	return l, ok
}

// Load dispatches to the loader of t, then validates the record and makes
// sure type and path are set. Every returned error carries the path. A file
// that cannot be read, for lack of permission or because it vanished, is
// reported as a liberr.ScanWarning rather than as an invalid element.
func (r *Registry) Load(ctx context.Context, fsys fs.FS, t Type, path string) (*Record, error) {
	l, ok := r.loaders[t]
	if !ok {
		return nil, liberr.WithPath(fmt.Errorf("no loader registered for %s", t), path)
	}
	rec, err := l.Load(ctx, fsys, t, path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, fs.ErrNotExist) {
			return nil, liberr.ScanWarning{Path: path, Err: err}
		}
		return nil, liberr.WithPath(err, path)
	}
	rec.Type = t
	rec.Path = path
	if err := rec.Validate(); err != nil {
		return nil, liberr.WithPath(err, path)
	}
	return rec, nil
}

// =============================================================================
// DESCRIPTOR LOADER
// =============================================================================

// DescriptorLoader reads element files holding a TOML or YAML Descriptor.
type DescriptorLoader struct {
	Decoder Decoder
}

// Load implements Loader.
func (l *DescriptorLoader) Load(ctx context.Context, fsys fs.FS, t Type, path string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("read element: %w", err)
	}
	d, err := l.Decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode element: %w", err)
	}
	return d.Record(t)
}

// Record converts the descriptor into a Record of type t, parsing every
// identifier. The record is not validated.
func (d *Descriptor) Record(t Type) (*Record, error) {
	rec := &Record{
		Type:         t,
		Names:        LocalizedText(d.Name),
		Descriptions: LocalizedText(d.Description),
		Keywords:     LocalizedText(d.Keywords),
	}

	var err error
	if rec.UUID, err = ident.ParseUUID(d.UUID); err != nil {
		return nil, err
	}
	if rec.Version, err = ident.ParseVersion(d.Version); err != nil {
		return nil, err
	}
	for _, s := range d.Categories {
		c, err := ident.ParseUUID(s)
		if err != nil {
			return nil, withField(err, "categories")
		}
		rec.Categories = append(rec.Categories, c)
	}
	if d.Parent != "" {
		p, err := ident.ParseUUID(d.Parent)
		if err != nil {
			return nil, withField(err, "parent")
		}
		rec.Parent = &p
	}
	if d.Component != "" {
		if rec.Component, err = ident.ParseUUID(d.Component); err != nil {
			return nil, withField(err, "component")
		}
	}
	if d.Package != "" {
		if rec.Package, err = ident.ParseUUID(d.Package); err != nil {
			return nil, withField(err, "package")
		}
	}
	return rec, nil
}

func withField(err error, field string) error {
	if ve, ok := err.(*liberr.ValidationError); ok {
		cp := *ve
		cp.Field = field
		return &cp
	}
	return err
}
