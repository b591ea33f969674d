// Package hierarchy validates structural edits to the page tree and plans the
// writes that carry them out. Planners are pure: they read a tree.Forest and
// return a Plan, and the caller decides how to persist it.
package hierarchy

import (
	"errors"
	"fmt"

	"go-wiki-engine/internal/data"
	"go-wiki-engine/internal/tree"
)

var (
	ErrPageNotFound     = data.ErrPageNotFound
	ErrParentNotFound   = errors.New("parent not found")
	ErrParentNotFolder  = errors.New("parent is not a folder")
	ErrMoveIntoSelf     = errors.New("cannot move a page into itself")
	ErrCycle            = errors.New("cannot move a folder into its own descendant")
	ErrInvalidIndex     = errors.New("index must not be negative")
	ErrInvalidPlacement = errors.New("placement must be inside, before or after")
)

// ValidationError reports why a structural edit was rejected.
type ValidationError struct {
	Op     string
	PageID string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.PageID, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(op, pageID string, err error) error {
	return &ValidationError{Op: op, PageID: pageID, Err: err}
}

// Plan is the ordered list of writes for one edit. An empty plan means
// nothing needs to change.
type Plan struct {
	Patches []data.PagePatch
}

// Empty reports whether the plan has no writes.
func (p Plan) Empty() bool { return len(p.Patches) == 0 }

// Reparented returns the patch that changes a page's parent, if any.
func (p Plan) Reparented() (data.PagePatch, bool) {
	for _, patch := range p.Patches {
		if patch.SetParent {
			return patch, true
		}
	}
	return data.PagePatch{}, false
}

// Placement says where a dragged page lands relative to a drop target.
type Placement string

const (
	Inside Placement = "inside"
	Before Placement = "before"
	After  Placement = "after"
)

// ParsePlacement validates a placement received from a client.
func ParsePlacement(s string) (Placement, error) {
	switch p := Placement(s); p {
	case Inside, Before, After:
		return p, nil
	}
	return "", invalid("drop", "", ErrInvalidPlacement)
}

func parentPtr(parentID string) *string {
	if parentID == tree.Root {
		return nil
	}
	id := parentID
	return &id
}

// CheckMove validates moving pageID under newParentID (tree.Root for top
// level) without planning anything.
func CheckMove(f *tree.Forest, pageID, newParentID string) error {
	if _, ok := f.Page(pageID); !ok {
		return invalid("move", pageID, ErrPageNotFound)
	}
	if newParentID == tree.Root {
		return nil
	}
	if newParentID == pageID {
		return invalid("move", pageID, ErrMoveIntoSelf)
	}
	parent, ok := f.Page(newParentID)
	if !ok {
		return invalid("move", pageID, ErrParentNotFound)
	}
	if !parent.IsFolder {
		return invalid("move", pageID, ErrParentNotFolder)
	}
	if f.IsDescendant(newParentID, pageID) {
		return invalid("move", pageID, ErrCycle)
	}
	return nil
}

// Move plans reparenting pageID. Sibling orders at the destination are left
// alone; moving to the current parent is an empty plan.
func Move(f *tree.Forest, pageID, newParentID string) (Plan, error) {
	if err := CheckMove(f, pageID, newParentID); err != nil {
		return Plan{}, err
	}
	p, _ := f.Page(pageID)
	if p.ParentKey() == newParentID {
		return Plan{}, nil
	}
	return Plan{Patches: []data.PagePatch{{
		ID:        pageID,
		SetParent: true,
		ParentID:  parentPtr(newParentID),
	}}}, nil
}

// Reorder plans placing pageID at newIndex among the children of parentID.
// Every sibling's sort_order becomes its position; only changed pages get a
// patch. An index past the end appends. When parentID differs from the
// page's parent the move is validated and folded into the plan.
func Reorder(f *tree.Forest, pageID, parentID string, newIndex int) (Plan, error) {
	p, ok := f.Page(pageID)
	if !ok {
		return Plan{}, invalid("reorder", pageID, ErrPageNotFound)
	}
	if newIndex < 0 {
		return Plan{}, invalid("reorder", pageID, ErrInvalidIndex)
	}

	group := parentID
	reparent := p.ParentKey() != parentID
	if reparent {
		if err := CheckMove(f, pageID, parentID); err != nil {
			return Plan{}, err
		}
	} else {
		group = f.Parent(pageID)
	}

	siblings := without(f.ChildIDs(group), pageID)
	if newIndex > len(siblings) {
		newIndex = len(siblings)
	}
	siblings = append(siblings, "")
	copy(siblings[newIndex+1:], siblings[newIndex:])
	siblings[newIndex] = pageID

	var plan Plan
	for i, id := range siblings {
		sib, _ := f.Page(id)
		moved := id == pageID && reparent
		if sib.SortOrder == i && !moved {
			continue
		}
		order := i
		patch := data.PagePatch{ID: id, SortOrder: &order}
		if moved {
			patch.SetParent = true
			patch.ParentID = parentPtr(parentID)
		}
		plan.Patches = append(plan.Patches, patch)
	}
	return plan, nil
}

// Drop plans a drag-and-drop of draggedID onto targetID. Dropping a page on
// itself does nothing.
func Drop(f *tree.Forest, draggedID, targetID string, placement Placement) (Plan, error) {
	if draggedID == targetID {
		return Plan{}, nil
	}
	if _, ok := f.Page(draggedID); !ok {
		return Plan{}, invalid("drop", draggedID, ErrPageNotFound)
	}
	if _, ok := f.Page(targetID); !ok {
		return Plan{}, invalid("drop", targetID, ErrPageNotFound)
	}

	switch placement {
	case Inside:
		if err := CheckMove(f, draggedID, targetID); err != nil {
			return Plan{}, err
		}
		return Reorder(f, draggedID, targetID, len(f.ChildIDs(targetID)))
	case Before, After:
		parent := f.Parent(targetID)
		siblings := without(f.ChildIDs(parent), draggedID)
		index := indexOf(siblings, targetID)
		if placement == After {
			index++
		}
		return Reorder(f, draggedID, parent, index)
	}
	return Plan{}, invalid("drop", draggedID, ErrInvalidPlacement)
}

func without(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return len(ids)
}
