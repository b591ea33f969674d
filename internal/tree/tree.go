// Package tree turns the flat page list into an ordered hierarchy.
//
// A Forest is an arena of pages keyed by id plus an adjacency index keyed by
// effective parent id. It is rebuilt from scratch after every mutation;
// nothing here writes back to the store.
package tree

import (
	"sort"

	"go-wiki-engine/internal/data"
)

// Root is the adjacency key for top-level pages.
const Root = ""

// Node is one entry of a built tree.
type Node struct {
	Page     *data.Page `json:"page"`
	Children []*Node    `json:"children"`
}

// Forest indexes pages by id and by parent.
type Forest struct {
	order    []string
	byID     map[string]*data.Page
	children map[string][]string
	parentOf map[string]string
	orphans  []string
}

// NewForest indexes pages. A parent id that references a missing page is
// treated as root level, as is any page caught in a parent cycle.
func NewForest(pages []*data.Page) *Forest {
	f := &Forest{
		order:    make([]string, 0, len(pages)),
		byID:     make(map[string]*data.Page, len(pages)),
		children: make(map[string][]string),
		parentOf: make(map[string]string, len(pages)),
	}
	for _, p := range pages {
		if p == nil {
			continue
		}
		if _, dup := f.byID[p.ID]; dup {
			continue
		}
		f.order = append(f.order, p.ID)
		f.byID[p.ID] = p
	}

	for _, id := range f.order {
		parent := f.byID[id].ParentKey()
		if parent != Root {
			if _, ok := f.byID[parent]; !ok {
				f.orphans = append(f.orphans, id)
				parent = Root
			}
		}
		f.parentOf[id] = parent
	}
	f.breakCycles()

	for _, id := range f.order {
		parent := f.parentOf[id]
		f.children[parent] = append(f.children[parent], id)
	}
	for parent := range f.children {
		f.sortSiblings(f.children[parent])
	}
	return f
}

// breakCycles promotes to root the first page found on each parent cycle so
// that every page is reachable from a root.
func (f *Forest) breakCycles() {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(f.order))
	for _, start := range f.order {
		var path []string
		id := start
		for id != Root && state[id] == unvisited {
			state[id] = visiting
			path = append(path, id)
			id = f.parentOf[id]
		}
		if id != Root && state[id] == visiting {
			f.parentOf[id] = Root
			f.orphans = append(f.orphans, id)
		}
		for _, p := range path {
			state[p] = done
		}
	}
}

func (f *Forest) sortSiblings(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool {
		a, b := f.byID[ids[i]], f.byID[ids[j]]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		return data.LessID(a.ID, b.ID)
	})
}

// Len returns the number of indexed pages.
func (f *Forest) Len() int { return len(f.order) }

// Pages returns every page in store order.
func (f *Forest) Pages() []*data.Page {
	out := make([]*data.Page, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.byID[id])
	}
	return out
}

// Page looks up a page by id.
func (f *Forest) Page(id string) (*data.Page, bool) {
	p, ok := f.byID[id]
	return p, ok
}

// Parent returns the effective parent id of a page, Root for top-level pages
// and for pages whose stored parent is missing.
func (f *Forest) Parent(id string) string {
	return f.parentOf[id]
}

// Children returns the ordered children under parent. Use Root for the top
// level. The returned slice is a copy.
func (f *Forest) Children(parent string) []*data.Page {
	ids := f.children[parent]
	out := make([]*data.Page, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.byID[id])
	}
	return out
}

// ChildIDs is Children without the page lookup.
func (f *Forest) ChildIDs(parent string) []string {
	return append([]string(nil), f.children[parent]...)
}

// Ancestors returns the chain of parents of id, nearest first.
func (f *Forest) Ancestors(id string) []*data.Page {
	var out []*data.Page
	seen := map[string]bool{id: true}
	for parent := f.parentOf[id]; parent != Root && !seen[parent]; parent = f.parentOf[parent] {
		seen[parent] = true
		out = append(out, f.byID[parent])
	}
	return out
}

// IsDescendant reports whether id sits somewhere below ancestorID.
func (f *Forest) IsDescendant(id, ancestorID string) bool {
	if ancestorID == Root {
		_, ok := f.byID[id]
		return ok
	}
	for _, a := range f.Ancestors(id) {
		if a.ID == ancestorID {
			return true
		}
	}
	return false
}

// MaxSortOrder returns the highest sort_order among the children of parent
// and false when there are none.
func (f *Forest) MaxSortOrder(parent string) (int, bool) {
	ids := f.children[parent]
	if len(ids) == 0 {
		return 0, false
	}
	max := f.byID[ids[0]].SortOrder
	for _, id := range ids[1:] {
		if o := f.byID[id].SortOrder; o > max {
			max = o
		}
	}
	return max, true
}

// NextSortOrder is the sort_order a new last child of parent receives.
func (f *Forest) NextSortOrder(parent string) int {
	max, ok := f.MaxSortOrder(parent)
	if !ok {
		return 0
	}
	return max + 1
}

// Orphans returns pages surfaced at root because their stored parent is
// missing or part of a cycle.
func (f *Forest) Orphans() []*data.Page {
	out := make([]*data.Page, 0, len(f.orphans))
	for _, id := range f.orphans {
		out = append(out, f.byID[id])
	}
	return out
}

// Find returns the first page in store order accepted by match.
func (f *Forest) Find(match func(*data.Page) bool) (*data.Page, bool) {
	for _, id := range f.order {
		if p := f.byID[id]; match(p) {
			return p, true
		}
	}
	return nil, false
}

// Path returns the breadcrumb from the root down to id, inclusive.
func (f *Forest) Path(id string) []*data.Page {
	p, ok := f.byID[id]
	if !ok {
		return nil
	}
	ancestors := f.Ancestors(id)
	out := make([]*data.Page, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		out = append(out, ancestors[i])
	}
	return append(out, p)
}

// Walk visits pages depth first in display order. Returning false from fn
// skips the page's subtree.
func (f *Forest) Walk(fn func(p *data.Page, depth int) bool) {
	var visit func(parent string, depth int)
	visit = func(parent string, depth int) {
		for _, id := range f.children[parent] {
			if fn(f.byID[id], depth) {
				visit(id, depth+1)
			}
		}
	}
	visit(Root, 0)
}

// Flatten lists pages in display order.
func (f *Forest) Flatten() []*data.Page {
	out := make([]*data.Page, 0, len(f.order))
	f.Walk(func(p *data.Page, _ int) bool {
		out = append(out, p)
		return true
	})
	return out
}

// Tree materialises the ordered node hierarchy.
func (f *Forest) Tree() []*Node {
	var build func(parent string) []*Node
	build = func(parent string) []*Node {
		ids := f.children[parent]
		nodes := make([]*Node, 0, len(ids))
		for _, id := range ids {
			nodes = append(nodes, &Node{Page: f.byID[id], Children: build(id)})
		}
		return nodes
	}
	return build(Root)
}

// Build is the one-shot form: index pages and return the ordered roots.
func Build(pages []*data.Page) []*Node {
	return NewForest(pages).Tree()
}

// Count returns the number of nodes in a built tree.
func Count(nodes []*Node) int {
	n := 0
	for _, node := range nodes {
		n += 1 + Count(node.Children)
	}
	return n
}
