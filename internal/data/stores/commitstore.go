package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/data/db"
)

// CommitStore implements workitem.CommitStore using SQLite.
type CommitStore struct {
	db *db.DB
}

var _ workitem.CommitStore = (*CommitStore)(nil)

// NewCommitStore creates a new SQLite-backed commit store.
func NewCommitStore(database *db.DB) *CommitStore {
	return &CommitStore{db: database}
}

// Record persists a commit made against a work item's branch.
func (s *CommitStore) Record(ctx context.Context, commit workitem.Commit) error {
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO commits (id, work_item_id, sha, message, change_log_entry, authored_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		commit.ID,
		commit.WorkItemID,
		commit.SHA,
		commit.Message,
		commit.ChangeLogEntry,
		commit.AuthoredAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert commit: %w", err)
	}
	return nil
}

// ListForItem returns all commits recorded for a work item, oldest first.
func (s *CommitStore) ListForItem(ctx context.Context, workItemID string) ([]workitem.Commit, error) {
	rows, err := s.db.Conn().QueryContext(ctx, `
		SELECT id, work_item_id, sha, message, change_log_entry, authored_at
		FROM commits WHERE work_item_id = ? ORDER BY authored_at ASC`, workItemID)
	if err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}
	defer rows.Close()

	var commits []workitem.Commit
	for rows.Next() {
		var (
			c          workitem.Commit
			authoredAt int64
		)
		if err := rows.Scan(&c.ID, &c.WorkItemID, &c.SHA, &c.Message, &c.ChangeLogEntry, &authoredAt); err != nil {
			return nil, fmt.Errorf("scan commit: %w", err)
		}
		c.AuthoredAt = time.Unix(0, authoredAt)
		commits = append(commits, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list commits: %w", err)
	}

	return commits, nil
}
