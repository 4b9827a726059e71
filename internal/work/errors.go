package work

import (
	"errors"
	"strings"
)

var (
	// ErrResourceLocked indicates the repository lock could not be acquired
	// within the configured timeout. The operation was not started and can
	// be retried.
	ErrResourceLocked = errors.New("repository is locked by another operation")

	// ErrFatalConsistency indicates the working tree diverged from tracked
	// state in a way that needs manual intervention, such as uncommitted
	// changes left by an outside process.
	ErrFatalConsistency = errors.New("repository state requires manual intervention")

	// ErrItemComplete indicates the work item is already in its terminal
	// state and cannot accept further work.
	ErrItemComplete = errors.New("work item is already complete")

	// ErrEmptyMessage indicates a commit was attempted without a message.
	ErrEmptyMessage = errors.New("commit message must not be empty")

	// ErrEmptyChangeLogEntry indicates a commit was attempted without a
	// change log entry.
	ErrEmptyChangeLogEntry = errors.New("change log entry must not be empty")

	// ErrIndexOutOfRange indicates a checklist index outside the item's
	// checklist bounds.
	ErrIndexOutOfRange = errors.New("checklist index out of range")
)

// ValidationError reports why a completion attempt was rejected. Reasons
// holds every unmet criterion, not just the first.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "completion validation failed: " + strings.Join(e.Reasons, "; ")
}
