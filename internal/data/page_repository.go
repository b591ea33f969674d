package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const pageColumns = `id, title, slug, content, parent_id, is_folder, sort_order, created_at, updated_at, created_by, updated_by`

// SQLPageRepository is the sqlx-backed page store. It only knows about flat
// rows; hierarchy rules live in the tree and hierarchy packages.
type SQLPageRepository struct {
	db     *sqlx.DB
	prefix string
}

// NewSQLPageRepository creates a new SQLPageRepository that issues ids with the
// given prefix.
func NewSQLPageRepository(db *sqlx.DB, idPrefix string) *SQLPageRepository {
	if idPrefix == "" {
		idPrefix = "WIKI"
	}
	return &SQLPageRepository{db: db, prefix: idPrefix}
}

// ListPages retrieves every page and folder in creation order. Ids are
// compared by length first, matching LessID.
func (r *SQLPageRepository) ListPages(ctx context.Context) ([]*Page, error) {
	var pages []*Page
	query := `SELECT ` + pageColumns + ` FROM pages ORDER BY LENGTH(id), id`
	if err := r.db.SelectContext(ctx, &pages, query); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// GetPage retrieves a single page by its id.
func (r *SQLPageRepository) GetPage(ctx context.Context, id string) (*Page, error) {
	return getPage(ctx, r.db, id)
}

// CreatePage inserts a new page, drawing its id from the sequence table in the
// same transaction so ids are never reused.
func (r *SQLPageRepository) CreatePage(ctx context.Context, in CreatePageInput) (*Page, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin create page transaction: %w", err)
	}
	defer tx.Rollback()

	n, err := r.nextSequence(ctx, tx)
	if err != nil {
		return nil, err
	}

	page := &Page{
		ID:        FormatID(r.prefix, n),
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
	query := `INSERT INTO pages (` + pageColumns + `) VALUES (:id, :title, :slug, :content, :parent_id, :is_folder, :sort_order, :created_at, :updated_at, :created_by, :updated_by)`
	if _, err := tx.NamedExecContext(ctx, query, page); err != nil {
		return nil, fmt.Errorf("failed to execute create page query: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit create page: %w", err)
	}
	return page, nil
}

// UpdatePage applies a partial update and returns the stored result.
func (r *SQLPageRepository) UpdatePage(ctx context.Context, id string, patch PagePatch) (*Page, error) {
	patch.ID = id
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin update page transaction: %w", err)
	}
	defer tx.Rollback()

	if err := updatePage(ctx, tx, patch); err != nil {
		return nil, err
	}
	page, err := getPage(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit page update: %w", err)
	}
	return page, nil
}

// UpdatePages applies several patches atomically. Reorders use it so a sibling
// group is never left half renumbered.
func (r *SQLPageRepository) UpdatePages(ctx context.Context, patches []PagePatch) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin batch update transaction: %w", err)
	}
	defer tx.Rollback()

	for _, patch := range patches {
		if err := updatePage(ctx, tx, patch); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch update: %w", err)
	}
	return nil
}

// DeletePage removes a single row. Children are not touched.
func (r *SQLPageRepository) DeletePage(ctx context.Context, id string) error {
	query := r.db.Rebind(`DELETE FROM pages WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no page found to delete with id %s: %w", id, ErrPageNotFound)
	}
	return nil
}

func (r *SQLPageRepository) nextSequence(ctx context.Context, tx *sqlx.Tx) (int64, error) {
	res, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE page_sequences SET value = value + 1 WHERE name = ?`), r.prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to bump page sequence: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO page_sequences (name, value) VALUES (?, 1)`), r.prefix); err != nil {
			return 0, fmt.Errorf("failed to seed page sequence: %w", err)
		}
	}
	var value int64
	if err := tx.GetContext(ctx, &value, tx.Rebind(`SELECT value FROM page_sequences WHERE name = ?`), r.prefix); err != nil {
		return 0, fmt.Errorf("failed to read page sequence: %w", err)
	}
	return value, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func getPage(ctx context.Context, q queryer, id string) (*Page, error) {
	var page Page
	query := q.Rebind(`SELECT ` + pageColumns + ` FROM pages WHERE id = ?`)
	if err := sqlx.GetContext(ctx, q, &page, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("page with id %s: %w", id, ErrPageNotFound)
		}
		return nil, fmt.Errorf("failed to get page by id: %w", err)
	}
	return &page, nil
}

func updatePage(ctx context.Context, tx *sqlx.Tx, patch PagePatch) error {
	var sets []string
	var args []interface{}
	add := func(column string, value interface{}) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Slug != nil {
		add("slug", *patch.Slug)
	}
	if patch.Content != nil {
		add("content", *patch.Content)
	}
	if patch.SetParent {
		add("parent_id", patch.ParentID)
	}
	if patch.SortOrder != nil {
		add("sort_order", *patch.SortOrder)
	}
	if patch.UpdatedBy != "" {
		add("updated_by", patch.UpdatedBy)
	}
	if !patch.UpdatedAt.IsZero() {
		add("updated_at", patch.UpdatedAt)
	}
	if len(sets) == 0 {
		// Still report a missing row for an empty patch.
		_, err := getPage(ctx, tx, patch.ID)
		return err
	}

	args = append(args, patch.ID)
	query := tx.Rebind(`UPDATE pages SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// MySQL reports zero when the values did not change; confirm the row exists.
		if _, err := getPage(ctx, tx, patch.ID); err != nil {
			return fmt.Errorf("no page found to update with id %s: %w", patch.ID, ErrPageNotFound)
		}
	}
	return nil
}
