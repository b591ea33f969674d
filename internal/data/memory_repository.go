package data

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryPageRepository keeps pages in process memory. It backs the service
// and handler tests.
type MemoryPageRepository struct {
	mu     sync.RWMutex
	prefix string
	seq    int64
	pages  map[string]*Page
}

// NewMemoryPageRepository returns an empty in-memory store.
func NewMemoryPageRepository(idPrefix string) *MemoryPageRepository {
	if idPrefix == "" {
		idPrefix = "WIKI"
	}
	return &MemoryPageRepository{prefix: idPrefix, pages: make(map[string]*Page)}
}

// Seed inserts pages verbatim and advances the id sequence past the highest
// seeded id under the store's prefix.
func (r *MemoryPageRepository) Seed(pages ...*Page) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pages {
		r.pages[p.ID] = p.Clone()
		if n, ok := ParseID(r.prefix, p.ID); ok && n > r.seq {
			r.seq = n
		}
	}
}

func (r *MemoryPageRepository) ListPages(ctx context.Context) ([]*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Page, 0, len(r.pages))
	for _, p := range r.pages {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return LessID(out[i].ID, out[j].ID) })
	return out, nil
}

func (r *MemoryPageRepository) GetPage(ctx context.Context, id string) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.pages[id]
	if !ok {
		return nil, fmt.Errorf("page with id %s: %w", id, ErrPageNotFound)
	}
	return p.Clone(), nil
}

func (r *MemoryPageRepository) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	id := FormatID(r.prefix, r.seq)
	for r.pages[id] != nil {
		r.seq++
		id = FormatID(r.prefix, r.seq)
	}
	p := &Page{
		ID:        id,
		Title:     in.Title,
		Slug:      in.Slug,
		Content:   in.Content,
		ParentID:  in.ParentID,
		IsFolder:  in.IsFolder,
		SortOrder: in.SortOrder,
		CreatedAt: in.At,
		UpdatedAt: in.At,
		CreatedBy: in.Actor,
		UpdatedBy: in.Actor,
	}
	r.pages[id] = p.Clone()
	return p, nil
}

func (r *MemoryPageRepository) UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.pages[id]
	if !ok {
		return nil, fmt.Errorf("no page found to update with id %s: %w", id, ErrPageNotFound)
	}
	patch.Apply(p)
	return p.Clone(), nil
}

// UpdatePages validates every id before applying anything, so a failed batch
// leaves the store untouched.
func (r *MemoryPageRepository) UpdatePages(ctx context.Context, patches []PagePatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, patch := range patches {
		if _, ok := r.pages[patch.ID]; !ok {
			return fmt.Errorf("no page found to update with id %s: %w", patch.ID, ErrPageNotFound)
		}
	}
	for _, patch := range patches {
		patch.Apply(r.pages[patch.ID])
	}
	return nil
}

func (r *MemoryPageRepository) DeletePage(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pages[id]; !ok {
		return fmt.Errorf("no page found to delete with id %s: %w", id, ErrPageNotFound)
	}
	delete(r.pages, id)
	return nil
}
