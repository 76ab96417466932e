// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package element

import (
	"fmt"
	"sort"

	"github.com/jeranaias/partlib/internal/ident"
	"github.com/jeranaias/partlib/internal/liberr"
)

// Record is the metadata of one library element file, as needed by the
// index. It is produced by a Loader and consumed by the index builder.
type Record struct {
	Type    Type
	Path    string // relative to the library root, slash separated
	UUID    ident.UUID
	Version ident.Version

	Names        LocalizedText
	Descriptions LocalizedText
	Keywords     LocalizedText

	// Categories the element is filed under. Not used by category types.
	Categories []ident.UUID

	// Parent category, categories only. Nil means a root category.
	Parent *ident.UUID

	// Device only.
	Component ident.UUID
	Package   ident.UUID
}

// Validate checks the record is complete and consistent for its type.
func (r *Record) Validate() error {
	if !r.Type.IsValid() {
		return liberr.NewValidation("type", string(r.Type), liberr.ErrInvalidRecord)
	}
	if r.UUID.IsZero() {
		return liberr.NewValidation("uuid", "", fmt.Errorf("%w: missing uuid", liberr.ErrInvalidIdentifier))
	}
	if r.Version.IsZero() {
		return liberr.NewValidation("version", "", fmt.Errorf("%w: missing version", liberr.ErrInvalidVersion))
	}
	if err := r.Names.Validate("name", true); err != nil {
		return err
	}
	if err := r.Descriptions.Validate("description", false); err != nil {
		return err
	}
	if err := r.Keywords.Validate("keywords", false); err != nil {
		return err
	}

	if r.Type.IsCategory() {
		if len(r.Categories) > 0 {
			return liberr.NewValidation("categories", r.Categories[0].String(),
				fmt.Errorf("%w: categories cannot be filed under categories", liberr.ErrInvalidRecord))
		}
		if r.Parent != nil && *r.Parent == r.UUID {
			return liberr.NewValidation("parent", r.Parent.String(), liberr.ErrCategoryCycle)
		}
	} else if r.Parent != nil {
		return liberr.NewValidation("parent", r.Parent.String(),
			fmt.Errorf("%w: only categories have a parent", liberr.ErrInvalidRecord))
	}

	seen := make(map[ident.UUID]bool, len(r.Categories))
	for _, c := range r.Categories {
		if c.IsZero() {
			return liberr.NewValidation("categories", "", fmt.Errorf("%w: empty category", liberr.ErrInvalidIdentifier))
		}
		if seen[c] {
			return liberr.NewValidation("categories", c.String(), fmt.Errorf("%w: duplicate category", liberr.ErrInvalidRecord))
		}
		seen[c] = true
	}

	if r.Type == Device {
		if r.Component.IsZero() {
			return liberr.NewValidation("component", "", fmt.Errorf("%w: device without component", liberr.ErrInvalidRecord))
		}
		if r.Package.IsZero() {
			return liberr.NewValidation("package", "", fmt.Errorf("%w: device without package", liberr.ErrInvalidRecord))
		}
	} else if !r.Component.IsZero() || !r.Package.IsZero() {
		return liberr.NewValidation("component", r.Component.String(),
			fmt.Errorf("%w: only devices reference a component and package", liberr.ErrInvalidRecord))
	}
	return nil
}

// AllLocales returns the sorted union of the locales of names,
// descriptions and keywords.
func (r *Record) AllLocales() []string {
	set := make(map[string]struct{})
	for _, lt := range []LocalizedText{r.Names, r.Descriptions, r.Keywords} {
		for k := range lt {
			set[k] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
