// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/ident"
)

// Typed shorthands for Versions and Latest.

// ComponentCategories returns every revision of the component category uuid.
func (idx *Index) ComponentCategories(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.ComponentCategory, uuid)
}

// LatestComponentCategory returns the file of the newest revision of the component category uuid.
func (idx *Index) LatestComponentCategory(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.ComponentCategory, uuid)
}

// PackageCategories returns every revision of the package category uuid.
func (idx *Index) PackageCategories(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.PackageCategory, uuid)
}

// LatestPackageCategory returns the file of the newest revision of the package category uuid.
func (idx *Index) LatestPackageCategory(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.PackageCategory, uuid)
}

// Symbols returns every revision of the symbol uuid.
func (idx *Index) Symbols(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Symbol, uuid)
}

// LatestSymbol returns the file of the newest revision of the symbol uuid.
func (idx *Index) LatestSymbol(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Symbol, uuid)
}

// Footprints returns every revision of the footprint uuid.
func (idx *Index) Footprints(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Footprint, uuid)
}

// LatestFootprint returns the file of the newest revision of the footprint uuid.
func (idx *Index) LatestFootprint(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Footprint, uuid)
}

// Models3D returns every revision of the 3D model uuid.
func (idx *Index) Models3D(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Model3D, uuid)
}

// LatestModel3D returns the file of the newest revision of the 3D model uuid.
func (idx *Index) LatestModel3D(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Model3D, uuid)
}

// SpiceModels returns every revision of the SPICE model uuid.
func (idx *Index) SpiceModels(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.SpiceModel, uuid)
}

// LatestSpiceModel returns the file of the newest revision of the SPICE model uuid.
func (idx *Index) LatestSpiceModel(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.SpiceModel, uuid)
}

// Packages returns every revision of the package uuid.
func (idx *Index) Packages(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Package, uuid)
}

// LatestPackage returns the file of the newest revision of the package uuid.
func (idx *Index) LatestPackage(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Package, uuid)
}

// Components returns every revision of the component uuid.
func (idx *Index) Components(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Component, uuid)
}

// LatestComponent returns the file of the newest revision of the component uuid.
func (idx *Index) LatestComponent(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Component, uuid)
}

// Devices returns every revision of the device uuid.
func (idx *Index) Devices(ctx context.Context, uuid ident.UUID) (Revisions, error) {
	return idx.Versions(ctx, element.Device, uuid)
}

// LatestDevice returns the file of the newest revision of the device uuid.
func (idx *Index) LatestDevice(ctx context.Context, uuid ident.UUID) (string, bool, error) {
	return idx.Latest(ctx, element.Device, uuid)
}

// FindSymbols returns the symbols matching keyword as in Find.
func (idx *Index) FindSymbols(ctx context.Context, keyword string) ([]ident.UUID, error) {
	return idx.Find(ctx, element.Symbol, keyword)
}

// FindPackages returns the packages matching keyword as in Find.
func (idx *Index) FindPackages(ctx context.Context, keyword string) ([]ident.UUID, error) {
	return idx.Find(ctx, element.Package, keyword)
}

// FindComponents returns the components matching keyword as in Find.
func (idx *Index) FindComponents(ctx context.Context, keyword string) ([]ident.UUID, error) {
	return idx.Find(ctx, element.Component, keyword)
}

// FindDevices returns the devices matching keyword as in Find.
func (idx *Index) FindDevices(ctx context.Context, keyword string) ([]ident.UUID, error) {
	return idx.Find(ctx, element.Device, keyword)
}
