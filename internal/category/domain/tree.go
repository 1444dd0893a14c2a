package domain

import (
	"cmp"
	"iter"
	"slices"
	"strings"
)

// Rebuild recomputes depth, kind, path and nested-set bounds of every node
// from parent pointers, slugs and sort order, and returns the nodes in tree
// order. The input is not modified. Nodes whose parent is missing are
// treated as roots; nodes unreachable from any root form a cycle and make
// Rebuild fail with ErrCycle.
func Rebuild(nodes []Category) ([]Category, error) {
	known := make(map[int64]struct{}, len(nodes))
	for _, n := range nodes {
		known[n.ID] = struct{}{}
	}

	var roots []Category
	children := make(map[int64][]Category)
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		if _, ok := known[*n.ParentID]; !ok {
			n.ParentID = nil
			roots = append(roots, n)
			continue
		}
		children[*n.ParentID] = append(children[*n.ParentID], n)
	}

	sortSiblings(roots)
	for id := range children {
		sortSiblings(children[id])
	}

	out := make([]Category, 0, len(nodes))
	counter := 0

	var visit func(n Category, depth int, parentPath string)
	visit = func(n Category, depth int, parentPath string) {
		counter++
		n.Depth = depth
		n.Kind = KindForDepth(depth)
		if parentPath == "" {
			n.Path = n.Slug
		} else {
			n.Path = parentPath + PathSeparator + n.Slug
		}
		n.Lft = counter
		idx := len(out)
		out = append(out, n)

		for _, child := range children[n.ID] {
			visit(child, depth+1, n.Path)
		}

		counter++
		out[idx].Rgt = counter
	}

	for _, root := range roots {
		visit(root, 0, "")
	}

	if len(out) != len(nodes) {
		return nil, ErrCycle
	}
	return out, nil
}

func sortSiblings(nodes []Category) {
	slices.SortStableFunc(nodes, func(a, b Category) int {
		return cmp.Or(
			cmp.Compare(a.SortOrder, b.SortOrder),
			strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)),
			cmp.Compare(a.ID, b.ID),
		)
	})
}

// TreeFieldsChanged reports whether the derived fields of a and b differ.
func TreeFieldsChanged(a, b Category) bool {
	return a.Depth != b.Depth ||
		a.Kind != b.Kind ||
		a.Path != b.Path ||
		a.Lft != b.Lft ||
		a.Rgt != b.Rgt
}

// Lineage is the chain of categories from the root down to a node.
type Lineage []Category

// Self returns the node the lineage was built for.
func (l Lineage) Self() *Category {
	if len(l) == 0 {
		return nil
	}
	return &l[len(l)-1]
}

// Ancestors yields root first and the node itself last.
func (l Lineage) Ancestors() iter.Seq[Category] {
	return func(yield func(Category) bool) {
		for _, c := range l {
			if !yield(c) {
				return
			}
		}
	}
}

// Titles yields every title root→self.
func (l Lineage) Titles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for c := range l.Ancestors() {
			if !yield(c.Title) {
				return
			}
		}
	}
}

// BreadcrumbTitles yields titles root→self with the root left out, which is
// how breadcrumbs are displayed.
func (l Lineage) BreadcrumbTitles() iter.Seq[string] {
	return func(yield func(string) bool) {
		for c := range l.Ancestors() {
			if c.Depth == 0 {
				continue
			}
			if !yield(c.Title) {
				return
			}
		}
	}
}

// Breadcrumb joins BreadcrumbTitles with sep.
func (l Lineage) Breadcrumb(sep string) string {
	return strings.Join(slices.Collect(l.BreadcrumbTitles()), sep)
}

// ParentCandidate is a node that may receive children, labelled for a
// picker.
type ParentCandidate struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Depth int    `json:"depth"`
	Label string `json:"label"`
}

// ParentCandidates filters tree-ordered nodes down to those that can have
// children and indents each label by depth.
func ParentCandidates(ordered []Category) []ParentCandidate {
	out := make([]ParentCandidate, 0, len(ordered))
	for _, c := range ordered {
		if !c.CanHaveChildren() {
			continue
		}
		out = append(out, ParentCandidate{
			ID:    c.ID,
			Title: c.Title,
			Depth: c.Depth,
			Label: strings.Repeat("-- ", c.Depth) + c.Title,
		})
	}
	return out
}

// NormalizeSynonyms trims entries, drops blanks and case-insensitive
// duplicates, and keeps the first spelling of each.
func NormalizeSynonyms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.Join(strings.Fields(s), " ")
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
