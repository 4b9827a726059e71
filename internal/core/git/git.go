// Package git provides an abstraction for git operations against the one
// shared working tree calcifer manages.
package git

import "context"

// BranchCommit is a commit reachable from a branch but not from trunk.
type BranchCommit struct {
	SHA     string `json:"sha"`
	Subject string `json:"subject"`
}

// BranchRepo defines the git operations needed by the work item lifecycle.
// All mutating calls either fully succeed or leave the tree exactly as it
// was beforehand.
type BranchRepo interface {
	// CurrentBranch returns the currently checked-out branch name.
	CurrentBranch(ctx context.Context) (string, error)
	// Branches returns all local branch names.
	Branches(ctx context.Context) ([]string, error)
	// BranchExists reports whether a local branch exists.
	BranchExists(ctx context.Context, name string) (bool, error)
	// CreateBranch creates and checks out a new branch.
	// Returns ErrBranchExists on collision.
	CreateBranch(ctx context.Context, name string) error
	// Checkout switches to an existing branch. Returns
	// ErrUncommittedChanges when the tree is dirty.
	Checkout(ctx context.Context, name string) error
	// IsClean returns true if there are no uncommitted changes.
	IsClean(ctx context.Context) (bool, error)
	// StageAndCommit stages exactly the given paths (never a blanket add)
	// and commits on the current branch, returning the commit sha.
	StageAndCommit(ctx context.Context, paths []string, message string) (string, error)
	// BranchCommits returns commits on a branch that are not on trunk,
	// newest first, capped at limit (0 = no cap).
	BranchCommits(ctx context.Context, name, trunk string, limit int) ([]BranchCommit, error)
	// IsMerged reports whether every commit reachable from name is
	// reachable from trunk. Authoritative even for fast-forward merges.
	IsMerged(ctx context.Context, name, trunk string) (bool, error)
	// MergeBranch checks out trunk and merges name into it, returning the
	// merge commit sha. On conflict the merge is aborted, the previous
	// checkout is restored, and ErrMergeConflict is returned; the tree is
	// never left mid-conflict.
	MergeBranch(ctx context.Context, name, trunk string) (string, error)
	// DeleteBranch removes a local branch. It refuses to delete the
	// currently checked-out branch (ErrBranchCheckedOut); callers must
	// checkout trunk first.
	DeleteBranch(ctx context.Context, name string, force bool) error
	// IsValidRepo verifies the configured directory is a git repository.
	IsValidRepo(ctx context.Context) error
	// Init initializes a repository with the given initial branch.
	Init(ctx context.Context, trunk string) error
}
