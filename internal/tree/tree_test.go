//go:build unit

package tree

import (
	"fmt"
	"math/rand"
	"testing"

	"go-wiki-engine/internal/data"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(id string, parent string, folder bool, order int) *data.Page {
	p := &data.Page{ID: id, Title: id, IsFolder: folder, SortOrder: order}
	if parent != "" {
		p.ParentID = &parent
	}
	return p
}

func ids(pages []*data.Page) []string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		out = append(out, p.ID)
	}
	return out
}

// randomPages builds n pages whose parent references may point at any page,
// a missing id, or nothing. Cycles are allowed on purpose.
func randomPages(n int, seed int64) []*data.Page {
	r := rand.New(rand.NewSource(seed))
	pages := make([]*data.Page, 0, n)
	for i := 0; i < n; i++ {
		id := data.FormatID("WIKI", int64(i+1))
		parent := ""
		switch r.Intn(4) {
		case 0:
		case 1:
			parent = data.FormatID("GONE", int64(r.Intn(5)))
		default:
			if n > 0 {
				parent = data.FormatID("WIKI", int64(r.Intn(n)+1))
			}
		}
		pages = append(pages, page(id, parent, r.Intn(2) == 0, r.Intn(4)))
	}
	return pages
}

func TestBuild_Ordering(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "", true, 1),
		page("WIKI-00002", "", false, 0),
		page("WIKI-00003", "WIKI-00001", false, 5),
		page("WIKI-00004", "WIKI-00001", false, 2),
		page("WIKI-00005", "WIKI-00001", false, 2),
	}

	roots := Build(pages)
	require.Len(t, roots, 2)
	assert.Equal(t, "WIKI-00002", roots[0].Page.ID)
	assert.Equal(t, "WIKI-00001", roots[1].Page.ID)

	var children []string
	for _, c := range roots[1].Children {
		children = append(children, c.Page.ID)
	}
	assert.Equal(t, []string{"WIKI-00004", "WIKI-00005", "WIKI-00003"}, children, "ties break by id")
}

func TestBuild_DanglingParentSurfacesAtRoot(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "", false, 0),
		page("WIKI-00002", "WIKI-00042", false, 1),
	}

	f := NewForest(pages)
	assert.Equal(t, []string{"WIKI-00001", "WIKI-00002"}, ids(f.Children(Root)))
	assert.Equal(t, []string{"WIKI-00002"}, ids(f.Orphans()))
	assert.Equal(t, 2, Count(f.Tree()))
}

func TestBuild_CycleDoesNotLoseNodes(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "WIKI-00002", true, 0),
		page("WIKI-00002", "WIKI-00001", true, 0),
		page("WIKI-00003", "WIKI-00003", true, 0),
	}

	roots := Build(pages)
	assert.Equal(t, 3, Count(roots))
}

func TestForest_Helpers(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "", true, 0),
		page("WIKI-00002", "WIKI-00001", true, 0),
		page("WIKI-00003", "WIKI-00002", false, 3),
		page("WIKI-00004", "", false, 1),
	}
	f := NewForest(pages)

	t.Run("ancestors nearest first", func(t *testing.T) {
		assert.Equal(t, []string{"WIKI-00002", "WIKI-00001"}, ids(f.Ancestors("WIKI-00003")))
	})

	t.Run("is descendant", func(t *testing.T) {
		assert.True(t, f.IsDescendant("WIKI-00003", "WIKI-00001"))
		assert.False(t, f.IsDescendant("WIKI-00001", "WIKI-00003"))
		assert.False(t, f.IsDescendant("WIKI-00004", "WIKI-00001"))
	})

	t.Run("path", func(t *testing.T) {
		assert.Equal(t, []string{"WIKI-00001", "WIKI-00002", "WIKI-00003"}, ids(f.Path("WIKI-00003")))
		assert.Nil(t, f.Path("missing"))
	})

	t.Run("next sort order", func(t *testing.T) {
		assert.Equal(t, 4, f.NextSortOrder("WIKI-00002"))
		assert.Equal(t, 0, f.NextSortOrder("WIKI-00003"))
		assert.Equal(t, 2, f.NextSortOrder(Root))
	})

	t.Run("flatten follows display order", func(t *testing.T) {
		assert.Equal(t, []string{"WIKI-00001", "WIKI-00002", "WIKI-00003", "WIKI-00004"}, ids(f.Flatten()))
	})

	t.Run("walk depth and pruning", func(t *testing.T) {
		var seen []string
		f.Walk(func(p *data.Page, depth int) bool {
			seen = append(seen, fmt.Sprintf("%s@%d", p.ID, depth))
			return p.ID != "WIKI-00002"
		})
		assert.Equal(t, []string{"WIKI-00001@0", "WIKI-00002@1", "WIKI-00004@0"}, seen)
	})

	t.Run("find", func(t *testing.T) {
		p, ok := f.Find(func(p *data.Page) bool { return !p.IsFolder })
		require.True(t, ok)
		assert.Equal(t, "WIKI-00003", p.ID)
	})
}

func TestBuild_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("node count equals page count", prop.ForAll(
		func(n int, seed int64) bool {
			return Count(Build(randomPages(n, seed))) == n
		},
		gen.IntRange(0, 60),
		gen.Int64(),
	))

	properties.Property("siblings are sorted by sort_order then id", prop.ForAll(
		func(n int, seed int64) bool {
			var sorted func(nodes []*Node) bool
			sorted = func(nodes []*Node) bool {
				for i := 1; i < len(nodes); i++ {
					a, b := nodes[i-1].Page, nodes[i].Page
					if a.SortOrder > b.SortOrder || (a.SortOrder == b.SortOrder && data.LessID(b.ID, a.ID)) {
						return false
					}
				}
				for _, node := range nodes {
					if !sorted(node.Children) {
						return false
					}
				}
				return true
			}
			return sorted(Build(randomPages(n, seed)))
		},
		gen.IntRange(0, 60),
		gen.Int64(),
	))

	properties.Property("build is deterministic", prop.ForAll(
		func(n int, seed int64) bool {
			pages := randomPages(n, seed)
			a := ids(NewForest(pages).Flatten())
			b := ids(NewForest(pages).Flatten())
			return fmt.Sprint(a) == fmt.Sprint(b)
		},
		gen.IntRange(0, 60),
		gen.Int64(),
	))

	properties.TestingRun(t)
}
