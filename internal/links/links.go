// Package links resolves [[Title]] references to pages and ranks title
// suggestions while an author is typing one.
package links

import (
	"sort"
	"strings"

	"go-wiki-engine/internal/content"
	"go-wiki-engine/internal/data"

	"github.com/sahilm/fuzzy"
)

// DefaultSuggestLimit caps Suggest when no limit is given.
const DefaultSuggestLimit = 5

// Index holds the linkable pages: every non-folder page, in store order.
type Index struct {
	pages   []*data.Page
	byTitle map[string][]*data.Page
}

var _ content.LinkResolver = (*Index)(nil)

func normalize(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// NewIndex indexes the non-folder pages of pages.
func NewIndex(pages []*data.Page) *Index {
	ix := &Index{byTitle: make(map[string][]*data.Page)}
	for _, p := range pages {
		if p == nil || p.IsFolder {
			continue
		}
		ix.pages = append(ix.pages, p)
		key := normalize(p.Title)
		ix.byTitle[key] = append(ix.byTitle[key], p)
	}
	return ix
}

// Len returns the number of linkable pages.
func (ix *Index) Len() int { return len(ix.pages) }

// Resolve finds the page a link title points at. Matching is exact and
// case-insensitive; when several pages share a title the first in store
// order wins. The source page is never returned.
func (ix *Index) Resolve(title, sourceID string) (*data.Page, bool) {
	for _, p := range ix.byTitle[normalize(title)] {
		if p.ID != sourceID {
			return p, true
		}
	}
	return nil, false
}

type candidate struct {
	page  *data.Page
	pos   int
	tier  int
	score int
}

// Suggest returns up to limit pages whose title contains fragment,
// ignoring case. Exact matches rank first, then prefix matches, then by
// fuzzy score, then store order.
func (ix *Index) Suggest(fragment, excludeID string, limit int) []*data.Page {
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	needle := normalize(fragment)

	var cands []candidate
	var titles []string
	for i, p := range ix.pages {
		if p.ID == excludeID {
			continue
		}
		title := normalize(p.Title)
		if !strings.Contains(title, needle) {
			continue
		}
		tier := 2
		switch {
		case title == needle:
			tier = 0
		case strings.HasPrefix(title, needle):
			tier = 1
		}
		cands = append(cands, candidate{page: p, pos: i, tier: tier})
		titles = append(titles, title)
	}

	if needle != "" {
		for _, m := range fuzzy.Find(needle, titles) {
			cands[m.Index].score = m.Score
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.tier != b.tier {
			return a.tier < b.tier
		}
		if a.score != b.score {
			return a.score > b.score
		}
		return a.pos < b.pos
	})

	if len(cands) > limit {
		cands = cands[:limit]
	}
	out := make([]*data.Page, 0, len(cands))
	for _, c := range cands {
		out = append(out, c.page)
	}
	return out
}

// Backlinks returns the pages whose content links to target, in store order.
func Backlinks(pages []*data.Page, target *data.Page) []*data.Page {
	ix := NewIndex(pages)
	var out []*data.Page
	for _, p := range pages {
		if p.ID == target.ID {
			continue
		}
		for _, title := range content.ExtractLinks(p.Content) {
			if hit, ok := ix.Resolve(title, p.ID); ok && hit.ID == target.ID {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
