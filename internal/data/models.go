package data

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrPageNotFound is returned when a page id does not exist in the store.
var ErrPageNotFound = errors.New("page not found")

// Page represents a single wiki page or folder in the database.
type Page struct {
	ID        string    `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Slug      string    `db:"slug" json:"slug"`
	Content   string    `db:"content" json:"content"`
	ParentID  *string   `db:"parent_id" json:"parent_id"`
	IsFolder  bool      `db:"is_folder" json:"is_folder"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	UpdatedBy string    `db:"updated_by" json:"updated_by"`
}

// ParentKey returns the parent id, or "" for root-level pages.
func (p *Page) ParentKey() string {
	if p.ParentID == nil {
		return ""
	}
	return *p.ParentID
}

// Clone returns a copy that shares no pointers with p.
func (p *Page) Clone() *Page {
	c := *p
	if p.ParentID != nil {
		parent := *p.ParentID
		c.ParentID = &parent
	}
	return &c
}

// CreatePageInput carries the fields of a page about to be created. The id is
// assigned by the store.
type CreatePageInput struct {
	Title     string
	Slug      string
	Content   string
	ParentID  *string
	IsFolder  bool
	SortOrder int
	Actor     string
	At        time.Time
}

// PagePatch is a partial update. Nil fields are left untouched; SetParent
// distinguishes "move to root" (ParentID nil) from "leave parent alone".
type PagePatch struct {
	ID        string
	Title     *string
	Slug      *string
	Content   *string
	SetParent bool
	ParentID  *string
	SortOrder *int
	UpdatedBy string
	UpdatedAt time.Time
}

// Apply copies the patched fields onto p.
func (patch PagePatch) Apply(p *Page) {
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Slug != nil {
		p.Slug = *patch.Slug
	}
	if patch.Content != nil {
		p.Content = *patch.Content
	}
	if patch.SetParent {
		if patch.ParentID == nil {
			p.ParentID = nil
		} else {
			parent := *patch.ParentID
			p.ParentID = &parent
		}
	}
	if patch.SortOrder != nil {
		p.SortOrder = *patch.SortOrder
	}
	if patch.UpdatedBy != "" {
		p.UpdatedBy = patch.UpdatedBy
	}
	if !patch.UpdatedAt.IsZero() {
		p.UpdatedAt = patch.UpdatedAt
	}
}

// FormatID renders a sequence number as a page id such as WIKI-00007.
func FormatID(prefix string, n int64) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// ParseID returns the sequence number of an id issued under prefix.
func ParseID(prefix, id string) (int64, bool) {
	digits, ok := strings.CutPrefix(id, prefix+"-")
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// LessID orders ids by creation. Shorter ids sort first so that WIKI-100000
// follows WIKI-99999 once the counter widens.
func LessID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}
