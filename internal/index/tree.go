// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package index

import (
	"context"
	"fmt"

	"github.com/jeranaias/partlib/internal/element"
	"github.com/jeranaias/partlib/internal/ident"
)

// CategorySource is the read side needed to build a category tree.
// *Index implements it.
type CategorySource interface {
	CategoryChildren(ctx context.Context, t element.Type, parent *ident.UUID) ([]ident.UUID, error)
	CategoryName(ctx context.Context, t element.Type, uuid ident.UUID) (string, error)
}

// CategoryLister lists every category of a type. *Index implements it.
type CategoryLister interface {
	Categories(ctx context.Context, t element.Type) ([]ident.UUID, error)
}

// CategoryNode is one node of a category tree. The root node and the
// uncategorized node have no UUID.
type CategoryNode struct {
	UUID          *ident.UUID
	Name          string
	Uncategorized bool
	Children      []*CategoryNode
}

// Walk calls fn for n and every descendant, depth first.
func (n *CategoryNode) Walk(fn func(node *CategoryNode, depth int)) {
	n.walk(fn, 0)
}

func (n *CategoryNode) walk(fn func(*CategoryNode, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// UncategorizedName labels the synthetic node for elements without category.
const UncategorizedName = "(uncategorized)"

// BuildCategoryTree builds the tree of category type t from its root
// categories down. Every category appears once even if several revisions
// place it under different parents. The last child of the root is a
// synthetic node standing for elements without category.
//
// A category whose parent is not indexed, or that is part of a parent
// cycle, cannot be reached from the roots. If src is also a
// CategoryLister such categories are attached directly under the root,
// after the regular root categories, so that the tree holds every
// category. Otherwise they are missing from the tree.
func BuildCategoryTree(ctx context.Context, src CategorySource, t element.Type) (*CategoryNode, error) {
	if !t.IsCategory() {
		return nil, fmt.Errorf("%w: %s is not a category type", ErrWrongType, t)
	}
	root := &CategoryNode{}
	visited := make(map[ident.UUID]bool)
	if err := addChildren(ctx, src, t, root, visited); err != nil {
		return nil, err
	}
	if lister, ok := src.(CategoryLister); ok {
		all, err := lister.Categories(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, uuid := range all {
			if visited[uuid] {
				continue
			}
			child, err := newCategoryNode(ctx, src, t, uuid, visited)
			if err != nil {
				return nil, err
			}
			root.Children = append(root.Children, child)
		}
	}
	root.Children = append(root.Children, &CategoryNode{Name: UncategorizedName, Uncategorized: true})
	return root, nil
}

func addChildren(ctx context.Context, src CategorySource, t element.Type, node *CategoryNode, visited map[ident.UUID]bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, err := src.CategoryChildren(ctx, t, node.UUID)
	if err != nil {
		return err
	}
	for _, uuid := range children {
		if visited[uuid] {
			continue
		}
		child, err := newCategoryNode(ctx, src, t, uuid, visited)
		if err != nil {
			return err
		}
		node.Children = append(node.Children, child)
	}
	return nil
}

// newCategoryNode marks uuid visited and builds its subtree.
func newCategoryNode(ctx context.Context, src CategorySource, t element.Type, uuid ident.UUID, visited map[ident.UUID]bool) (*CategoryNode, error) {
	visited[uuid] = true
	name, err := src.CategoryName(ctx, t, uuid)
	if err != nil {
		return nil, err
	}
	child := &CategoryNode{UUID: &uuid, Name: name}
	if err := addChildren(ctx, src, t, child, visited); err != nil {
		return nil, err
	}
	return child, nil
}
