package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-wiki-engine/internal/content"
	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/hierarchy"
	"go-wiki-engine/internal/links"
	"go-wiki-engine/internal/logger"
	"go-wiki-engine/internal/tree"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// PageRepository defines the interface for database operations on pages.
type PageRepository interface {
	ListPages(ctx context.Context) ([]*data.Page, error)
	GetPage(ctx context.Context, id string) (*data.Page, error)
	CreatePage(ctx context.Context, in data.CreatePageInput) (*data.Page, error)
	UpdatePage(ctx context.Context, id string, patch data.PagePatch) (*data.Page, error)
	DeletePage(ctx context.Context, id string) error
}

// BatchUpdater is implemented by repositories that can apply several patches
// in one transaction.
type BatchUpdater interface {
	UpdatePages(ctx context.Context, patches []data.PagePatch) error
}

// Renderer turns page markdown into HTML.
type Renderer interface {
	Process(ctx context.Context, src string, opts content.Options) (*content.Rendered, error)
}

// MediaTracker follows managed media across edits.
type MediaTracker interface {
	Observe(pageID, previousContent, currentContent string)
	Discard(ctx context.Context, pageID, draftContent, savedContent string) int
}

// Actor identifies who performs a mutation.
type Actor struct {
	ID   string
	Name string
}

// IdentityProvider resolves the actor of a request.
type IdentityProvider interface {
	Actor(ctx context.Context) Actor
}

// AnonymousIdentity attributes every change to the same actor.
type AnonymousIdentity struct{}

// Actor returns the anonymous actor.
func (AnonymousIdentity) Actor(context.Context) Actor {
	return Actor{ID: "anonymous", Name: "Anonymous"}
}

var (
	ErrTitleRequired  = errors.New("title is required")
	ErrDuplicateTitle = errors.New("a sibling page already has this title")
	ErrInvalidParent  = errors.New("parent must be an existing folder")
)

// ValidationError reports input that was rejected before any write.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CreatePageRequest carries the user input for a new page.
type CreatePageRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	ParentID *string `json:"parent_id"`
	IsFolder bool    `json:"is_folder"`
}

// Validate checks the request fields.
func (r CreatePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.By(requireTitle), validation.RuneLength(0, 255)),
	)
}

// UpdatePageRequest changes the title, the content or both.
type UpdatePageRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Validate checks the request fields.
func (r UpdatePageRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.By(requireTitle), validation.RuneLength(0, 255)),
	)
}

func requireTitle(value any) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	}
	if strings.TrimSpace(s) == "" {
		return ErrTitleRequired
	}
	return nil
}

// inputError converts ozzo-validation output into a ValidationError.
func inputError(err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		for field, fieldErr := range errs {
			if errors.Is(fieldErr, ErrTitleRequired) {
				fieldErr = ErrTitleRequired
			}
			return &ValidationError{Field: field, Err: fieldErr}
		}
	}
	return &ValidationError{Err: err}
}

// PageServicer is the page API the HTTP and CLI layers depend on.
type PageServicer interface {
	Tree(ctx context.Context) ([]*tree.Node, error)
	GetPage(ctx context.Context, id string) (*data.Page, error)
	Breadcrumb(ctx context.Context, id string) ([]*data.Page, error)
	CreatePage(ctx context.Context, req CreatePageRequest) (*data.Page, error)
	UpdatePage(ctx context.Context, id string, req UpdatePageRequest) (*data.Page, error)
	DeletePage(ctx context.Context, id string) error
	MovePage(ctx context.Context, id string, newParentID *string) ([]*tree.Node, error)
	ReorderPage(ctx context.Context, id string, parentID *string, index int) ([]*tree.Node, error)
	DropPage(ctx context.Context, draggedID, targetID, placement string) ([]*tree.Node, error)
	RenderPage(ctx context.Context, id string) (*data.Page, *content.Rendered, error)
	Preview(ctx context.Context, sourceID, src string) (*content.Rendered, error)
	Suggest(ctx context.Context, fragment, excludeID string) ([]*data.Page, error)
	SuggestAt(ctx context.Context, text string, cursor int, excludeID string) (string, []*data.Page, bool, error)
	ObserveDraft(ctx context.Context, id, draft string) error
	DiscardDraft(ctx context.Context, id, draft string) (int, error)
	Backlinks(ctx context.Context, id string) ([]*data.Page, error)
	Orphans(ctx context.Context) ([]*data.Page, error)
	ListPages(ctx context.Context) ([]*data.Page, error)
}

var _ PageServicer = (*PageService)(nil)

// Options tunes a PageService.
type Options struct {
	SuggestLimit int
}

// PageService wires the page store to the tree, hierarchy, content, link and
// media components.
type PageService struct {
	repo     PageRepository
	renderer Renderer
	media    MediaTracker
	identity IdentityProvider
	opts     Options
	log      logger.Logger
	now      func() time.Time
}

// NewPageService creates a new PageService. A nil identity attributes changes
// to the anonymous actor.
func NewPageService(repo PageRepository, renderer Renderer, media MediaTracker, identity IdentityProvider, opts Options, log logger.Logger) *PageService {
	if identity == nil {
		identity = AnonymousIdentity{}
	}
	if opts.SuggestLimit <= 0 {
		opts.SuggestLimit = links.DefaultSuggestLimit
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PageService{
		repo:     repo,
		renderer: renderer,
		media:    media,
		identity: identity,
		opts:     opts,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *PageService) forest(ctx context.Context) (*tree.Forest, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return tree.NewForest(pages), nil
}

// Tree returns the page hierarchy. A context cancelled while the pages were
// loading yields its error instead of a stale tree.
func (s *PageService) Tree(ctx context.Context) ([]*tree.Node, error) {
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.Tree(), nil
}

// ListPages returns every page in store order.
func (s *PageService) ListPages(ctx context.Context) ([]*data.Page, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return pages, nil
}

// GetPage returns one page.
func (s *PageService) GetPage(ctx context.Context, id string) (*data.Page, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get page %s: %w", id, err)
	}
	return page, nil
}

// Breadcrumb returns the path from the root down to id.
func (s *PageService) Breadcrumb(ctx context.Context, id string) ([]*data.Page, error) {
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := f.Page(id); !ok {
		return nil, fmt.Errorf("failed to get page %s: %w", id, data.ErrPageNotFound)
	}
	return f.Path(id), nil
}

// titleTaken reports whether another page under parent already uses title.
func titleTaken(f *tree.Forest, parent, title, exceptID string) bool {
	want := strings.ToLower(strings.TrimSpace(title))
	for _, sibling := range f.Children(parent) {
		if sibling.ID != exceptID && strings.ToLower(strings.TrimSpace(sibling.Title)) == want {
			return true
		}
	}
	return false
}

// CreatePage validates the request and stores a new page at the end of its
// sibling group.
func (s *PageService) CreatePage(ctx context.Context, req CreatePageRequest) (*data.Page, error) {
	if err := req.Validate(); err != nil {
		return nil, inputError(err)
	}
	title := strings.TrimSpace(req.Title)

	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	parent := tree.Root
	if req.ParentID != nil && *req.ParentID != "" {
		p, ok := f.Page(*req.ParentID)
		if !ok || !p.IsFolder {
			return nil, &ValidationError{Field: "parent_id", Err: ErrInvalidParent}
		}
		parent = p.ID
	}
	if titleTaken(f, parent, title, "") {
		return nil, &ValidationError{Field: "title", Err: ErrDuplicateTitle}
	}

	var parentID *string
	if parent != tree.Root {
		parentID = &parent
	}
	actor := s.identity.Actor(ctx)
	page, err := s.repo.CreatePage(ctx, data.CreatePageInput{
		Title:     title,
		Slug:      content.Slugify(title),
		Content:   req.Content,
		ParentID:  parentID,
		IsFolder:  req.IsFolder,
		SortOrder: f.NextSortOrder(parent),
		Actor:     actor.ID,
		At:        s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	s.log.With(map[string]interface{}{"page_id": page.ID, "actor": actor.ID}).Info("page created")
	return page, nil
}

// UpdatePage renames a page and/or replaces its content. Media dropped from
// the content is scheduled for deletion.
func (s *PageService) UpdatePage(ctx context.Context, id string, req UpdatePageRequest) (*data.Page, error) {
	if err := req.Validate(); err != nil {
		return nil, inputError(err)
	}
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	current, ok := f.Page(id)
	if !ok {
		return nil, fmt.Errorf("failed to update page %s: %w", id, data.ErrPageNotFound)
	}

	patch := data.PagePatch{ID: id}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if titleTaken(f, f.Parent(id), title, id) {
			return nil, &ValidationError{Field: "title", Err: ErrDuplicateTitle}
		}
		slug := content.Slugify(title)
		patch.Title, patch.Slug = &title, &slug
	}
	patch.Content = req.Content
	s.stamp(ctx, &patch)

	updated, err := s.repo.UpdatePage(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update page %s: %w", id, err)
	}
	if req.Content != nil && s.media != nil {
		s.media.Observe(id, current.Content, updated.Content)
	}
	return updated, nil
}

// DeletePage removes one page. Children are kept and surface at the root
// level until they are moved.
func (s *PageService) DeletePage(ctx context.Context, id string) error {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete page %s: %w", id, err)
	}
	if err := s.repo.DeletePage(ctx, id); err != nil {
		return fmt.Errorf("failed to delete page %s: %w", id, err)
	}
	if s.media != nil {
		s.media.Observe(id, page.Content, "")
	}
	s.log.With(map[string]interface{}{"page_id": id}).Info("page deleted")
	return nil
}

// MovePage changes the parent of a page and returns the rebuilt tree. A nil
// or empty parent moves the page to the root level.
func (s *PageService) MovePage(ctx context.Context, id string, newParentID *string) ([]*tree.Node, error) {
	return s.restructure(ctx, func(f *tree.Forest) (hierarchy.Plan, error) {
		return hierarchy.Move(f, id, deref(newParentID))
	})
}

// ReorderPage places a page at index among the children of parentID, moving
// it there first when it lives elsewhere.
func (s *PageService) ReorderPage(ctx context.Context, id string, parentID *string, index int) ([]*tree.Node, error) {
	return s.restructure(ctx, func(f *tree.Forest) (hierarchy.Plan, error) {
		return hierarchy.Reorder(f, id, deref(parentID), index)
	})
}

// DropPage applies a drag-and-drop of dragged onto target.
func (s *PageService) DropPage(ctx context.Context, draggedID, targetID, placement string) ([]*tree.Node, error) {
	where, err := hierarchy.ParsePlacement(placement)
	if err != nil {
		return nil, err
	}
	return s.restructure(ctx, func(f *tree.Forest) (hierarchy.Plan, error) {
		return hierarchy.Drop(f, draggedID, targetID, where)
	})
}

// restructure plans an edit, applies it and rebuilds the tree from the store.
func (s *PageService) restructure(ctx context.Context, plan func(*tree.Forest) (hierarchy.Plan, error)) ([]*tree.Node, error) {
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	p, err := plan(f)
	if err != nil {
		return nil, err
	}
	if moved, ok := p.Reparented(); ok {
		page, _ := f.Page(moved.ID)
		if titleTaken(f, deref(moved.ParentID), page.Title, page.ID) {
			return nil, &ValidationError{Field: "title", Err: ErrDuplicateTitle}
		}
	}
	if !p.Empty() {
		if err := s.apply(ctx, p.Patches); err != nil {
			return nil, err
		}
	}
	return s.Tree(ctx)
}

func (s *PageService) apply(ctx context.Context, patches []data.PagePatch) error {
	for i := range patches {
		s.stamp(ctx, &patches[i])
	}
	if batch, ok := s.repo.(BatchUpdater); ok && len(patches) > 1 {
		if err := batch.UpdatePages(ctx, patches); err != nil {
			return fmt.Errorf("failed to apply structure change: %w", err)
		}
		return nil
	}
	for _, patch := range patches {
		if _, err := s.repo.UpdatePage(ctx, patch.ID, patch); err != nil {
			return fmt.Errorf("failed to apply structure change to %s: %w", patch.ID, err)
		}
	}
	return nil
}

func (s *PageService) stamp(ctx context.Context, patch *data.PagePatch) {
	patch.UpdatedBy = s.identity.Actor(ctx).ID
	patch.UpdatedAt = s.now()
}

func deref(id *string) string {
	if id == nil {
		return tree.Root
	}
	return *id
}

// RenderPage renders a stored page for viewing.
func (s *PageService) RenderPage(ctx context.Context, id string) (*data.Page, *content.Rendered, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list pages: %w", err)
	}
	var page *data.Page
	for _, p := range pages {
		if p.ID == id {
			page = p
			break
		}
	}
	if page == nil {
		return nil, nil, fmt.Errorf("failed to render page %s: %w", id, data.ErrPageNotFound)
	}
	out, err := s.renderer.Process(ctx, page.Content, content.Options{
		Mode:     content.ModeView,
		SourceID: id,
		Resolver: links.NewIndex(pages),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to render page %s: %w", id, err)
	}
	return page, out, nil
}

// Preview renders unsaved markdown as the editor preview. sourceID may be
// empty for a page that does not exist yet.
func (s *PageService) Preview(ctx context.Context, sourceID, src string) (*content.Rendered, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	out, err := s.renderer.Process(ctx, src, content.Options{
		Mode:     content.ModePreview,
		SourceID: sourceID,
		Resolver: links.NewIndex(pages),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render preview: %w", err)
	}
	return out, nil
}

// Suggest returns link targets whose titles contain fragment.
func (s *PageService) Suggest(ctx context.Context, fragment, excludeID string) ([]*data.Page, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return links.NewIndex(pages).Suggest(fragment, excludeID, s.opts.SuggestLimit), nil
}

// SuggestAt looks for an unterminated link before cursor in text and returns
// suggestions for it. ok is false when the cursor is not inside a link.
func (s *PageService) SuggestAt(ctx context.Context, text string, cursor int, excludeID string) (string, []*data.Page, bool, error) {
	fragment, ok := content.OpenLinkQuery(text, cursor)
	if !ok {
		return "", nil, false, nil
	}
	pages, err := s.Suggest(ctx, fragment, excludeID)
	if err != nil {
		return "", nil, false, err
	}
	return fragment, pages, true, nil
}

// ObserveDraft tracks an in-progress edit so media removed from the draft is
// collected once the edit settles. Media the saved page still references
// is kept until the edit is saved.
func (s *PageService) ObserveDraft(ctx context.Context, id, draft string) error {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get page %s: %w", id, err)
	}
	if s.media != nil {
		s.media.Observe(id, page.Content, draft)
	}
	return nil
}

// DiscardDraft drops an edit: media referenced only by the draft is deleted
// right away. It returns the number of objects removed.
func (s *PageService) DiscardDraft(ctx context.Context, id, draft string) (int, error) {
	page, err := s.repo.GetPage(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get page %s: %w", id, err)
	}
	if s.media == nil {
		return 0, nil
	}
	return s.media.Discard(ctx, id, draft, page.Content), nil
}

// Backlinks returns the pages linking to id.
func (s *PageService) Backlinks(ctx context.Context, id string) ([]*data.Page, error) {
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	target, ok := f.Page(id)
	if !ok {
		return nil, fmt.Errorf("failed to get page %s: %w", id, data.ErrPageNotFound)
	}
	return links.Backlinks(f.Pages(), target), nil
}

// Orphans returns the pages whose parent no longer exists.
func (s *PageService) Orphans(ctx context.Context) ([]*data.Page, error) {
	f, err := s.forest(ctx)
	if err != nil {
		return nil, err
	}
	return f.Orphans(), nil
}
