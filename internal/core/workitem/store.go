package workitem

import (
	"context"
	"errors"
)

// Store errors.
var (
	// ErrNotFound indicates the work item does not exist.
	ErrNotFound = errors.New("work item not found")

	// ErrDuplicateBranch indicates another work item already owns the branch.
	ErrDuplicateBranch = errors.New("branch already bound to a work item")
)

// ListFilter narrows a List call. Zero value lists everything.
type ListFilter struct {
	Status Status // empty = all statuses
	Limit  int    // 0 = unlimited
}

// Store persists work items.
type Store interface {
	// Create inserts a new work item. Returns ErrDuplicateBranch when the
	// branch name is already bound.
	Create(ctx context.Context, item WorkItem) error
	// Get returns a work item by ID. Returns ErrNotFound if missing.
	Get(ctx context.Context, id string) (WorkItem, error)
	// List returns work items matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]WorkItem, error)
	// Update rewrites the mutable fields of an existing work item.
	Update(ctx context.Context, item WorkItem) error
	// Delete removes a work item and all of its commits in one transaction.
	Delete(ctx context.Context, id string) error
}

// CommitStore persists commits recorded through the commit flow.
type CommitStore interface {
	// Record inserts a commit row.
	Record(ctx context.Context, c Commit) error
	// ListForItem returns an item's commits, newest first.
	ListForItem(ctx context.Context, workItemID string) ([]Commit, error)
}
