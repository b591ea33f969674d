//go:build unit

package links

import (
	"testing"

	"go-wiki-engine/internal/data"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pages() []*data.Page {
	return []*data.Page{
		{ID: "WIKI-00001", Title: "Home", Content: "Start at [[Guides]]."},
		{ID: "WIKI-00002", Title: "Guides", IsFolder: true},
		{ID: "WIKI-00003", Title: "Guides", Content: "See [[home]] and [[Release Guide]]."},
		{ID: "WIKI-00004", Title: "Release Guide", Content: "[[Guides|back]]"},
		{ID: "WIKI-00005", Title: "guides", Content: "duplicate by case"},
		{ID: "WIKI-00006", Title: "User Guidelines"},
	}
}

func ids(ps []*data.Page) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestResolve(t *testing.T) {
	ix := NewIndex(pages())

	t.Run("case-insensitive, folders skipped, first wins", func(t *testing.T) {
		p, ok := ix.Resolve("  GUIDES ", "")
		require.True(t, ok)
		assert.Equal(t, "WIKI-00003", p.ID)
	})

	t.Run("source page excluded", func(t *testing.T) {
		p, ok := ix.Resolve("guides", "WIKI-00003")
		require.True(t, ok)
		assert.Equal(t, "WIKI-00005", p.ID)
	})

	t.Run("missing", func(t *testing.T) {
		_, ok := ix.Resolve("Nope", "")
		assert.False(t, ok)
	})

	assert.Equal(t, 5, ix.Len())
}

func TestSuggest(t *testing.T) {
	ix := NewIndex(pages())

	t.Run("exact then prefix then rest", func(t *testing.T) {
		got := ids(ix.Suggest("guide", "", 0))
		require.NotEmpty(t, got)
		assert.ElementsMatch(t, []string{"WIKI-00003", "WIKI-00004", "WIKI-00005", "WIKI-00006"}, got)
		assert.Contains(t, []string{"WIKI-00003", "WIKI-00005"}, got[0], "prefix matches outrank inner matches")
		assert.NotEqual(t, "WIKI-00004", got[0])
	})

	t.Run("exact first", func(t *testing.T) {
		got := ids(ix.Suggest("home", "", 0))
		assert.Equal(t, []string{"WIKI-00001"}, got)
	})

	t.Run("excludes current page and folders", func(t *testing.T) {
		got := ids(ix.Suggest("guides", "WIKI-00003", 0))
		assert.Equal(t, []string{"WIKI-00005"}, got)
	})

	t.Run("limit", func(t *testing.T) {
		assert.Len(t, ix.Suggest("", "", 2), 2)
		assert.Len(t, ix.Suggest("", "", 0), DefaultSuggestLimit)
	})

	t.Run("no match", func(t *testing.T) {
		assert.Empty(t, ix.Suggest("zzz", "", 5))
	})
}

func TestBacklinks(t *testing.T) {
	ps := pages()
	got := Backlinks(ps, ps[2])
	assert.Equal(t, []string{"WIKI-00001", "WIKI-00004"}, ids(got))

	assert.Equal(t, []string{"WIKI-00003"}, ids(Backlinks(ps, ps[0])))
}
