//go:build unit

package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryPageRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create and list in id order", func(t *testing.T) {
		repo := NewMemoryPageRepository("DOC")
		for _, title := range []string{"one", "two", "three"} {
			if _, err := repo.CreatePage(ctx, CreatePageInput{Title: title, At: time.Now()}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		pages, err := repo.ListPages(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"DOC-00001", "DOC-00002", "DOC-00003"}
		for i, p := range pages {
			if p.ID != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], p.ID)
			}
		}
	})

	t.Run("returned pages are copies", func(t *testing.T) {
		repo := NewMemoryPageRepository("")
		p, _ := repo.CreatePage(ctx, CreatePageInput{Title: "orig", At: time.Now()})
		p.Title = "mutated"
		got, _ := repo.GetPage(ctx, p.ID)
		if got.Title != "orig" {
			t.Errorf("store was mutated through returned pointer: %q", got.Title)
		}
	})

	t.Run("seed advances sequence", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		repo.Seed(&Page{ID: "WIKI-00001", Title: "seeded"})
		p, _ := repo.CreatePage(ctx, CreatePageInput{Title: "new", At: time.Now()})
		if p.ID != "WIKI-00002" {
			t.Errorf("expected WIKI-00002, got %s", p.ID)
		}
	})

	t.Run("seed advances sequence past sparse ids", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		repo.Seed(&Page{ID: "WIKI-00007", Title: "seven"}, &Page{ID: "WIKI-00003", Title: "three"}, &Page{ID: "DOC-00042", Title: "foreign"})
		p, err := repo.CreatePage(ctx, CreatePageInput{Title: "new", At: time.Now()})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ID != "WIKI-00008" {
			t.Errorf("expected WIKI-00008, got %s", p.ID)
		}
	})

	t.Run("list keeps creation order past five digits", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		repo.Seed(&Page{ID: "WIKI-100000", Title: "later"}, &Page{ID: "WIKI-99999", Title: "earlier"})
		pages, err := repo.ListPages(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if pages[0].ID != "WIKI-99999" || pages[1].ID != "WIKI-100000" {
			t.Errorf("expected WIKI-99999 before WIKI-100000, got %s, %s", pages[0].ID, pages[1].ID)
		}
	})

	t.Run("batch update fails as a whole", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		p, _ := repo.CreatePage(ctx, CreatePageInput{Title: "a", At: time.Now()})
		order := 7
		err := repo.UpdatePages(ctx, []PagePatch{{ID: p.ID, SortOrder: &order}, {ID: "nope", SortOrder: &order}})
		if !errors.Is(err, ErrPageNotFound) {
			t.Fatalf("expected ErrPageNotFound, got %v", err)
		}
		got, _ := repo.GetPage(ctx, p.ID)
		if got.SortOrder != 0 {
			t.Errorf("expected untouched sort order, got %d", got.SortOrder)
		}
	})

	t.Run("delete missing", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		if err := repo.DeletePage(ctx, "WIKI-00001"); !errors.Is(err, ErrPageNotFound) {
			t.Errorf("expected ErrPageNotFound, got %v", err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		repo := NewMemoryPageRepository("WIKI")
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := repo.ListPages(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestParseID(t *testing.T) {
	tests := []struct {
		id   string
		want int64
		ok   bool
	}{
		{"WIKI-00007", 7, true},
		{"WIKI-100000", 100000, true},
		{"DOC-00007", 0, false},
		{"WIKI-", 0, false},
		{"WIKI-7a", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseID("WIKI", tt.id)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseID(%q) = %d, %v; want %d, %v", tt.id, got, ok, tt.want, tt.ok)
		}
	}
}
