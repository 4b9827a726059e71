package git

import "errors"

// Git operation errors.
var (
	// ErrNotGitRepo indicates the configured path is not a git repository.
	ErrNotGitRepo = errors.New("not a git repository")

	// ErrBranchExists indicates the branch already exists.
	ErrBranchExists = errors.New("branch already exists")

	// ErrBranchNotFound indicates the branch does not exist.
	ErrBranchNotFound = errors.New("branch not found")

	// ErrBranchCheckedOut indicates the branch is currently checked out
	// and cannot be deleted.
	ErrBranchCheckedOut = errors.New("branch is currently checked out")

	// ErrUncommittedChanges indicates the working tree has uncommitted
	// changes that block a checkout or merge.
	ErrUncommittedChanges = errors.New("working tree has uncommitted changes")

	// ErrNothingToCommit indicates there are no staged changes to commit.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrMergeConflict indicates a merge conflict occurred. The merge has
	// been aborted; resolution must happen outside the tool.
	ErrMergeConflict = errors.New("merge conflict")
)
