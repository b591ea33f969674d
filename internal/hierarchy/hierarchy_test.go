//go:build unit

package hierarchy

import (
	"errors"
	"math/rand"
	"testing"

	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/tree"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func page(id, title, parent string, folder bool, order int) *data.Page {
	p := &data.Page{ID: id, Title: title, IsFolder: folder, SortOrder: order}
	if parent != "" {
		p.ParentID = &parent
	}
	return p
}

// apply persists a plan against a copy of pages, the way the service does.
func apply(pages []*data.Page, plan Plan) []*data.Page {
	byID := make(map[string]*data.Page, len(pages))
	out := make([]*data.Page, 0, len(pages))
	for _, p := range pages {
		c := p.Clone()
		byID[c.ID] = c
		out = append(out, c)
	}
	for _, patch := range plan.Patches {
		patch.Apply(byID[patch.ID])
	}
	return out
}

func sampleTree() []*data.Page {
	return []*data.Page{
		page("WIKI-00001", "Home", "", false, 0),
		page("WIKI-00002", "Guides", "", true, 1),
		page("WIKI-00003", "Install", "WIKI-00002", false, 0),
		page("WIKI-00004", "Advanced", "WIKI-00002", true, 1),
		page("WIKI-00005", "Tuning", "WIKI-00004", false, 0),
	}
}

func TestMove_ScenarioA(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "Home", "", false, 0),
		page("WIKI-00002", "Guides", "", true, 1),
	}

	plan, err := Move(tree.NewForest(pages), "WIKI-00001", "WIKI-00002")
	require.NoError(t, err)

	roots := tree.Build(apply(pages, plan))
	require.Len(t, roots, 1)
	assert.Equal(t, "Guides", roots[0].Page.Title)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "Home", roots[0].Children[0].Page.Title)
}

func TestMove_Validation(t *testing.T) {
	f := tree.NewForest(sampleTree())

	tests := []struct {
		name      string
		pageID    string
		newParent string
		wantErr   error
	}{
		{"missing page", "WIKI-00099", tree.Root, ErrPageNotFound},
		{"into itself", "WIKI-00002", "WIKI-00002", ErrMoveIntoSelf},
		{"into descendant", "WIKI-00002", "WIKI-00004", ErrCycle},
		{"parent missing", "WIKI-00001", "WIKI-00099", ErrParentNotFound},
		{"parent is a page", "WIKI-00001", "WIKI-00003", ErrParentNotFolder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Move(f, tt.pageID, tt.newParent)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr))
			assert.True(t, plan.Empty())
		})
	}
}

func TestMove_Success(t *testing.T) {
	f := tree.NewForest(sampleTree())

	t.Run("to root", func(t *testing.T) {
		plan, err := Move(f, "WIKI-00005", tree.Root)
		require.NoError(t, err)
		require.Len(t, plan.Patches, 1)
		patch := plan.Patches[0]
		assert.True(t, patch.SetParent)
		assert.Nil(t, patch.ParentID)
		assert.Nil(t, patch.SortOrder, "move leaves sort_order alone")
	})

	t.Run("same parent is a no-op", func(t *testing.T) {
		plan, err := Move(f, "WIKI-00003", "WIKI-00002")
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("reparented reports the patch", func(t *testing.T) {
		plan, err := Move(f, "WIKI-00001", "WIKI-00004")
		require.NoError(t, err)
		patch, ok := plan.Reparented()
		require.True(t, ok)
		assert.Equal(t, "WIKI-00004", *patch.ParentID)
	})
}

func TestReorder(t *testing.T) {
	pages := []*data.Page{
		page("WIKI-00001", "A", "", false, 0),
		page("WIKI-00002", "B", "", false, 1),
		page("WIKI-00003", "C", "", false, 2),
		page("WIKI-00004", "Folder", "", true, 3),
		page("WIKI-00005", "D", "WIKI-00004", false, 0),
	}
	f := tree.NewForest(pages)

	t.Run("moves to front and only patches changed pages", func(t *testing.T) {
		plan, err := Reorder(f, "WIKI-00003", tree.Root, 0)
		require.NoError(t, err)
		got := map[string]int{}
		for _, p := range plan.Patches {
			got[p.ID] = *p.SortOrder
		}
		assert.Equal(t, map[string]int{"WIKI-00003": 0, "WIKI-00001": 1, "WIKI-00002": 2}, got)
	})

	t.Run("same position is empty", func(t *testing.T) {
		plan, err := Reorder(f, "WIKI-00002", tree.Root, 1)
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("index past end appends", func(t *testing.T) {
		plan, err := Reorder(f, "WIKI-00001", tree.Root, 99)
		require.NoError(t, err)
		roots := tree.NewForest(apply(pages, plan)).ChildIDs(tree.Root)
		assert.Equal(t, "WIKI-00001", roots[len(roots)-1])
	})

	t.Run("negative index", func(t *testing.T) {
		_, err := Reorder(f, "WIKI-00001", tree.Root, -1)
		assert.ErrorIs(t, err, ErrInvalidIndex)
	})

	t.Run("into another parent", func(t *testing.T) {
		plan, err := Reorder(f, "WIKI-00001", "WIKI-00004", 0)
		require.NoError(t, err)
		moved, ok := plan.Reparented()
		require.True(t, ok)
		assert.Equal(t, "WIKI-00001", moved.ID)
		children := tree.NewForest(apply(pages, plan)).ChildIDs("WIKI-00004")
		assert.Equal(t, []string{"WIKI-00001", "WIKI-00005"}, children)
	})

	t.Run("into a page is rejected", func(t *testing.T) {
		_, err := Reorder(f, "WIKI-00001", "WIKI-00002", 0)
		assert.ErrorIs(t, err, ErrParentNotFolder)
	})
}

func TestDrop(t *testing.T) {
	pages := sampleTree()
	f := tree.NewForest(pages)

	t.Run("onto itself", func(t *testing.T) {
		plan, err := Drop(f, "WIKI-00003", "WIKI-00003", Inside)
		require.NoError(t, err)
		assert.True(t, plan.Empty())
	})

	t.Run("inside folder appends", func(t *testing.T) {
		plan, err := Drop(f, "WIKI-00001", "WIKI-00002", Inside)
		require.NoError(t, err)
		children := tree.NewForest(apply(pages, plan)).ChildIDs("WIKI-00002")
		assert.Equal(t, []string{"WIKI-00003", "WIKI-00004", "WIKI-00001"}, children)
	})

	t.Run("inside page rejected", func(t *testing.T) {
		_, err := Drop(f, "WIKI-00001", "WIKI-00003", Inside)
		assert.ErrorIs(t, err, ErrParentNotFolder)
	})

	t.Run("before target in another group", func(t *testing.T) {
		plan, err := Drop(f, "WIKI-00001", "WIKI-00004", Before)
		require.NoError(t, err)
		children := tree.NewForest(apply(pages, plan)).ChildIDs("WIKI-00002")
		assert.Equal(t, []string{"WIKI-00003", "WIKI-00001", "WIKI-00004"}, children)
	})

	t.Run("after target", func(t *testing.T) {
		plan, err := Drop(f, "WIKI-00003", "WIKI-00004", After)
		require.NoError(t, err)
		children := tree.NewForest(apply(pages, plan)).ChildIDs("WIKI-00002")
		assert.Equal(t, []string{"WIKI-00004", "WIKI-00003"}, children)
	})

	t.Run("folder next to its own descendant", func(t *testing.T) {
		_, err := Drop(f, "WIKI-00002", "WIKI-00005", Before)
		assert.ErrorIs(t, err, ErrCycle)
	})

	t.Run("unknown placement", func(t *testing.T) {
		_, err := ParsePlacement("over")
		assert.ErrorIs(t, err, ErrInvalidPlacement)
	})
}

// randomFlat returns n root pages with scrambled sort orders.
func randomFlat(n int, seed int64) []*data.Page {
	r := rand.New(rand.NewSource(seed))
	pages := make([]*data.Page, 0, n)
	for i := 0; i < n; i++ {
		id := data.FormatID("WIKI", int64(i+1))
		pages = append(pages, page(id, id, "", r.Intn(2) == 0, r.Intn(n*2)))
	}
	return pages
}

func TestReorder_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("reorder then build places the page at the index", prop.ForAll(
		func(n int, seed int64, pick, index int) bool {
			pages := randomFlat(n, seed)
			pageID := pages[pick%n].ID
			index = index % n

			plan, err := Reorder(tree.NewForest(pages), pageID, tree.Root, index)
			if err != nil {
				return false
			}
			roots := tree.Build(apply(pages, plan))
			return len(roots) == n && roots[index].Page.ID == pageID
		},
		gen.IntRange(1, 20),
		gen.Int64(),
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.Property("move into self or descendant never plans writes", prop.ForAll(
		func(depth int) bool {
			var pages []*data.Page
			parent := ""
			for i := 0; i < depth; i++ {
				id := data.FormatID("WIKI", int64(i+1))
				pages = append(pages, page(id, id, parent, true, 0))
				parent = id
			}
			f := tree.NewForest(pages)
			top := pages[0].ID
			for _, p := range pages {
				plan, err := Move(f, top, p.ID)
				if err == nil || !plan.Empty() {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 15),
	))

	properties.TestingRun(t)
}
