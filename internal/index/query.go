// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/ident"
	"github.com/jeranaias/partlib/internal/liberr"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// Revision is one on-disk revision of an element.
type Revision struct {
	Version ident.Version
	Path    string // absolute
}

// Revisions lists every revision of one UUID, ordered by version then path.
// Several files may carry the same version.
type Revisions []Revision

// Paths returns the files holding version v.
func (r Revisions) Paths(v ident.Version) []string {
	var out []string
	for _, rev := range r {
		if rev.Version.Equal(v) {
			out = append(out, rev.Path)
		}
	}
	return out
}

// ByVersion groups the paths by normalized version string.
func (r Revisions) ByVersion() map[string][]string {
	out := make(map[string][]string, len(r))
	for _, rev := range r {
		k := rev.Version.String()
		out[k] = append(out[k], rev.Path)
	}
	return out
}

// DeviceMetadata is the identity of a device and the elements it binds.
type DeviceMetadata struct {
	UUID          ident.UUID
	Version       ident.Version
	ComponentUUID ident.UUID
	PackageUUID   ident.UUID
	Name          string
}

// PackageMetadata is the identity of a package.
type PackageMetadata struct {
	UUID    ident.UUID
	Version ident.Version
	Name    string
}

// Translation holds the texts of an element resolved for a locale order.
type Translation struct {
	Name        string
	Description string
	Keywords    string
}

// =============================================================================
// VERSION QUERIES
// =============================================================================

// Versions returns every indexed revision of the element uuid.
func (idx *Index) Versions(ctx context.Context, t element.Type, uuid ident.UUID) (Revisions, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	table := t.Table()
	rows, err := idx.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT version, filepath FROM %s WHERE uuid = ? ORDER BY version_key, filepath", table),
		uuid.String())
	if err != nil {
		return nil, liberr.Storage("query", table, err)
	}
	defer rows.Close()

	var out Revisions
	for rows.Next() {
		var version, path string
		if err := rows.Scan(&version, &path); err != nil {
			return nil, liberr.Storage("scan", table, err)
		}
		v, err := ident.ParseVersion(version)
		if err != nil {
			return nil, liberr.Storage("scan", table, err)
		}
		out = append(out, Revision{Version: v, Path: idx.absPath(path)})
	}
	return out, liberr.Storage("query", table, rows.Err())
}

// Latest returns the file of the highest version of uuid. Equal versions
// are broken by the smallest path. ok is false for an unknown uuid.
func (idx *Index) Latest(ctx context.Context, t element.Type, uuid ident.UUID) (path string, ok bool, err error) {
	if err := idx.checkQuery(t); err != nil {
		return "", false, err
	}
	table := t.Table()
	var rel string
	err = idx.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT filepath FROM %s WHERE uuid = ? ORDER BY version_key DESC, filepath ASC LIMIT 1", table),
		uuid.String()).Scan(&rel)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, liberr.Storage("query", table, err)
	}
	return idx.absPath(rel), true, nil
}

// =============================================================================
// CATEGORY QUERIES
// =============================================================================

// CategoryChildren returns the distinct uuids of the categories whose
// parent is parent, sorted. A nil parent selects the root categories, the
// ones without parent. Categories whose parent is not indexed, or that
// form a parent cycle, are not reachable from the roots; Categories lists
// them too.
func (idx *Index) CategoryChildren(ctx context.Context, t element.Type, parent *ident.UUID) ([]ident.UUID, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	if !t.IsCategory() {
		return nil, fmt.Errorf("%w: %s is not a category type", ErrWrongType, t)
	}
	var arg any
	if parent != nil {
		arg = parent.String()
	}
	return idx.queryUUIDs(ctx, t.Table(), fmt.Sprintf(
		"SELECT DISTINCT uuid FROM %s WHERE parent_uuid IS ? ORDER BY uuid", t.Table()), arg)
}

// Categories returns the distinct uuids of every category of type t, sorted.
func (idx *Index) Categories(ctx context.Context, t element.Type) ([]ident.UUID, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	if !t.IsCategory() {
		return nil, fmt.Errorf("%w: %s is not a category type", ErrWrongType, t)
	}
	return idx.queryUUIDs(ctx, t.Table(), fmt.Sprintf(
		"SELECT DISTINCT uuid FROM %s ORDER BY uuid", t.Table()))
}

// ElementsByCategory returns the distinct uuids of elements filed under
// category, sorted. A nil category selects the elements without any
// category.
func (idx *Index) ElementsByCategory(ctx context.Context, t element.Type, category *ident.UUID) ([]ident.UUID, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	if t.IsCategory() {
		return nil, fmt.Errorf("%w: %s elements have no categories", ErrWrongType, t)
	}
	info := t.Info()
	if category == nil {
		return idx.queryUUIDs(ctx, info.Table, fmt.Sprintf(`
			SELECT DISTINCT e.uuid FROM %[1]s e
			LEFT JOIN %[1]s_cat c ON c.%[2]s = e.id
			WHERE c.category_uuid IS NULL
			ORDER BY e.uuid`, info.Table, info.IDColumn))
	}
	return idx.queryUUIDs(ctx, info.Table, fmt.Sprintf(`
		SELECT DISTINCT e.uuid FROM %[1]s e
		JOIN %[1]s_cat c ON c.%[2]s = e.id
		WHERE c.category_uuid = ?
		ORDER BY e.uuid`, info.Table, info.IDColumn), category.String())
}

// CategoryParents returns the ancestors of category, nearest first, using
// the latest revision of each category. A parent that is not indexed
// itself ends the chain.
func (idx *Index) CategoryParents(ctx context.Context, t element.Type, category ident.UUID) ([]ident.UUID, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	if !t.IsCategory() {
		return nil, fmt.Errorf("%w: %s is not a category type", ErrWrongType, t)
	}

	var parents []ident.UUID
	seen := map[ident.UUID]bool{category: true}
	current := category
	for {
		parent, found, err := idx.categoryParent(ctx, t, current)
		if err != nil {
			return nil, err
		}
		if !found {
			if current == category {
				return nil, liberr.NotFound(t.Table(), category.String())
			}
			return parents, nil
		}
		if parent == nil {
			return parents, nil
		}
		if seen[*parent] {
			return nil, &liberr.ValidationError{Field: "parent", Value: parent.String(), Err: liberr.ErrCategoryCycle}
		}
		seen[*parent] = true
		parents = append(parents, *parent)
		current = *parent
	}
}

func (idx *Index) categoryParent(ctx context.Context, t element.Type, uuid ident.UUID) (*ident.UUID, bool, error) {
	var parent sql.NullString
	err := idx.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT parent_uuid FROM %s WHERE uuid = ? ORDER BY version_key DESC, filepath ASC LIMIT 1", t.Table()),
		uuid.String()).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, liberr.Storage("query", t.Table(), err)
	}
	if !parent.Valid || parent.String == "" {
		return nil, true, nil
	}
	p, err := ident.ParseUUID(parent.String)
	if err != nil {
		return nil, false, liberr.Storage("scan", t.Table(), err)
	}
	return &p, true, nil
}

// =============================================================================
// COMPONENT AND DEVICE QUERIES
// =============================================================================

// DevicesOfComponent returns the uuids of devices implementing component.
func (idx *Index) DevicesOfComponent(ctx context.Context, component ident.UUID) ([]ident.UUID, error) {
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	return idx.queryUUIDs(ctx, "devices",
		"SELECT DISTINCT uuid FROM devices WHERE component_uuid = ? ORDER BY uuid", component.String())
}

// Find returns the elements of type t whose name or keywords contain
// keyword in any locale, or whose uuid equals keyword.
func (idx *Index) Find(ctx context.Context, t element.Type, keyword string) ([]ident.UUID, error) {
	if err := idx.checkQuery(t); err != nil {
		return nil, err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	info := t.Info()
	return idx.queryUUIDs(ctx, info.Table, findSQL(info)+" ORDER BY 1", findArgs(keyword)...)
}

// SearchComponents returns the components matching keyword as in Find,
// including the components of matching devices.
func (idx *Index) SearchComponents(ctx context.Context, keyword string) ([]ident.UUID, error) {
	if err := idx.checkOpen(); err != nil {
		return nil, err
	}
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	query := findSQL(element.Component.Info()) +
		" UNION SELECT component_uuid FROM devices WHERE uuid IN (" + findSQL(element.Device.Info()) + ")" +
		" ORDER BY 1"
	args := append(findArgs(keyword), findArgs(keyword)...)
	return idx.queryUUIDs(ctx, "components", query, args...)
}

// findSQL selects the uuids of one element table matching the arguments
// of findArgs.
func findSQL(info element.Info) string {
	return fmt.Sprintf(`SELECT DISTINCT e.uuid FROM %[1]s e
		LEFT JOIN %[1]s_tr tr ON tr.%[2]s = e.id
		WHERE tr.name LIKE ? ESCAPE '\' OR tr.keywords LIKE ? ESCAPE '\' OR e.uuid = ?`,
		info.Table, info.IDColumn)
}

func findArgs(keyword string) []any {
	pattern := "%" + escapeLike(keyword) + "%"
	return []any{pattern, pattern, strings.ToLower(keyword)}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// DeviceMetadata returns the identity of the device stored at path.
func (idx *Index) DeviceMetadata(ctx context.Context, path string) (DeviceMetadata, error) {
	var md DeviceMetadata
	if err := idx.checkOpen(); err != nil {
		return md, err
	}
	rel, err := idx.relPath(path)
	if err != nil {
		return md, err
	}

	var id int64
	var uuid, version, component, pkg string
	err = idx.db.QueryRowContext(ctx,
		"SELECT id, uuid, version, component_uuid, package_uuid FROM devices WHERE filepath = ?", rel).
		Scan(&id, &uuid, &version, &component, &pkg)
	if errors.Is(err, sql.ErrNoRows) {
		return md, liberr.NotFound("device", path)
	}
	if err != nil {
		return md, liberr.Storage("query", "devices", err)
	}

	if err := scanIdentity(uuid, version, &md.UUID, &md.Version); err != nil {
		return md, liberr.Storage("scan", "devices", err)
	}
	if md.ComponentUUID, err = ident.ParseUUID(component); err != nil {
		return md, liberr.Storage("scan", "devices", err)
	}
	if md.PackageUUID, err = ident.ParseUUID(pkg); err != nil {
		return md, liberr.Storage("scan", "devices", err)
	}

	tr, err := idx.translationsByID(ctx, element.Device.Info(), id)
	if err != nil {
		return md, err
	}
	md.Name = tr.resolve(idx.config.Locales).Name
	return md, nil
}

// PackageMetadata returns the identity of the package stored at path.
func (idx *Index) PackageMetadata(ctx context.Context, path string) (PackageMetadata, error) {
	var md PackageMetadata
	if err := idx.checkOpen(); err != nil {
		return md, err
	}
	rel, err := idx.relPath(path)
	if err != nil {
		return md, err
	}

	var id int64
	var uuid, version string
	err = idx.db.QueryRowContext(ctx,
		"SELECT id, uuid, version FROM packages WHERE filepath = ?", rel).Scan(&id, &uuid, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return md, liberr.NotFound("package", path)
	}
	if err != nil {
		return md, liberr.Storage("query", "packages", err)
	}
	if err := scanIdentity(uuid, version, &md.UUID, &md.Version); err != nil {
		return md, liberr.Storage("scan", "packages", err)
	}

	tr, err := idx.translationsByID(ctx, element.Package.Info(), id)
	if err != nil {
		return md, err
	}
	md.Name = tr.resolve(idx.config.Locales).Name
	return md, nil
}

func scanIdentity(uuid, version string, u *ident.UUID, v *ident.Version) error {
	var err error
	if *u, err = ident.ParseUUID(uuid); err != nil {
		return err
	}
	*v, err = ident.ParseVersion(version)
	return err
}

// =============================================================================
// TRANSLATIONS
// =============================================================================

// Translations resolves the texts of the element at path. A nil
// localeOrder uses the configured locales.
func (idx *Index) Translations(ctx context.Context, t element.Type, path string, localeOrder []string) (Translation, error) {
	if err := idx.checkQuery(t); err != nil {
		return Translation{}, err
	}
	rel, err := idx.relPath(path)
	if err != nil {
		return Translation{}, err
	}
	info := t.Info()

	var id int64
	err = idx.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE filepath = ?", info.Table), rel).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Translation{}, liberr.NotFound(info.Name, path)
	}
	if err != nil {
		return Translation{}, liberr.Storage("query", info.Table, err)
	}

	texts, err := idx.translationsByID(ctx, info, id)
	if err != nil {
		return Translation{}, err
	}
	if localeOrder == nil {
		localeOrder = idx.config.Locales
	}
	return texts.resolve(localeOrder), nil
}

// CategoryName returns the name of the latest revision of a category.
func (idx *Index) CategoryName(ctx context.Context, t element.Type, uuid ident.UUID) (string, error) {
	path, ok, err := idx.Latest(ctx, t, uuid)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", liberr.NotFound(t.Info().Name, uuid.String())
	}
	tr, err := idx.Translations(ctx, t, path, nil)
	if err != nil {
		return "", err
	}
	return tr.Name, nil
}

type localizedTexts struct {
	names, descriptions, keywords element.LocalizedText
}

func (lt localizedTexts) resolve(order []string) Translation {
	var tr Translation
	tr.Name, _ = lt.names.Resolve(order)
	tr.Description, _ = lt.descriptions.Resolve(order)
	tr.Keywords, _ = lt.keywords.Resolve(order)
	return tr
}

func (idx *Index) translationsByID(ctx context.Context, info element.Info, id int64) (localizedTexts, error) {
	lt := localizedTexts{
		names:        element.LocalizedText{},
		descriptions: element.LocalizedText{},
		keywords:     element.LocalizedText{},
	}
	table := info.Table + "_tr"
	rows, err := idx.db.QueryContext(ctx, fmt.Sprintf(
		"SELECT locale, name, description, keywords FROM %s WHERE %s = ?", table, info.IDColumn), id)
	if err != nil {
		return lt, liberr.Storage("query", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var locale string
		var name, desc, kw sql.NullString
		if err := rows.Scan(&locale, &name, &desc, &kw); err != nil {
			return lt, liberr.Storage("scan", table, err)
		}
		if name.Valid {
			lt.names[locale] = name.String
		}
		if desc.Valid {
			lt.descriptions[locale] = desc.String
		}
		if kw.Valid {
			lt.keywords[locale] = kw.String
		}
	}
	return lt, liberr.Storage("query", table, rows.Err())
}

// =============================================================================
// HELPERS
// =============================================================================

func (idx *Index) checkQuery(t element.Type) error {
	if err := idx.checkOpen(); err != nil {
		return err
	}
	if !t.IsValid() {
		return fmt.Errorf("%w: unknown element type %q", ErrWrongType, t)
	}
	return nil
}

func (idx *Index) queryUUIDs(ctx context.Context, table, query string, args ...any) ([]ident.UUID, error) {
	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, liberr.Storage("query", table, err)
	}
	defer rows.Close()

	var out []ident.UUID
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, liberr.Storage("scan", table, err)
		}
		u, err := ident.ParseUUID(s)
		if err != nil {
			return nil, liberr.Storage("scan", table, err)
		}
		out = append(out, u)
	}
	return out, liberr.Storage("query", table, rows.Err())
}
