// Package stores implements sqlite-backed persistence for work items.
package stores

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/data/db"
)

// WorkItemStore implements workitem.Store using SQLite.
type WorkItemStore struct {
	db *db.DB
}

var _ workitem.Store = (*WorkItemStore)(nil)

// NewWorkItemStore creates a new SQLite-backed work item store.
func NewWorkItemStore(database *db.DB) *WorkItemStore {
	return &WorkItemStore{db: database}
}

const workItemColumns = `id, title, category, action_type, description, notes,
	checklist, branch_name, status, branch_merged, created_at, completed_at`

// Create inserts a new work item. Returns workitem.ErrDuplicateBranch when
// the branch name is already bound to another item.
func (s *WorkItemStore) Create(ctx context.Context, item workitem.WorkItem) error {
	checklistJSON, err := json.Marshal(item.Checklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}

	_, err = s.db.Conn().ExecContext(ctx, `
		INSERT INTO work_items (`+workItemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID,
		item.Title,
		string(item.Category),
		string(item.ActionType),
		item.Description,
		item.Notes,
		string(checklistJSON),
		item.BranchName,
		string(item.Status),
		boolToInt(item.BranchMerged),
		item.CreatedAt.UnixNano(),
		nullableTime(item.CompletedAt),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return workitem.ErrDuplicateBranch
		}
		return fmt.Errorf("insert work item: %w", err)
	}

	return nil
}

// Get returns a work item by ID. Returns workitem.ErrNotFound if missing.
func (s *WorkItemStore) Get(ctx context.Context, id string) (workitem.WorkItem, error) {
	row := s.db.Conn().QueryRowContext(ctx, `
		SELECT `+workItemColumns+` FROM work_items WHERE id = ?`, id)

	item, err := scanWorkItem(row)
	if IsNotFoundError(err) {
		return workitem.WorkItem{}, workitem.ErrNotFound
	}
	if err != nil {
		return workitem.WorkItem{}, fmt.Errorf("get work item: %w", err)
	}
	return item, nil
}

// List returns work items matching the filter, newest first.
func (s *WorkItemStore) List(ctx context.Context, filter workitem.ListFilter) ([]workitem.WorkItem, error) {
	query := `SELECT ` + workItemColumns + ` FROM work_items`
	var args []any

	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}
	defer rows.Close()

	var items []workitem.WorkItem
	for rows.Next() {
		item, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan work item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list work items: %w", err)
	}

	return items, nil
}

// Update rewrites the mutable fields of an existing work item.
func (s *WorkItemStore) Update(ctx context.Context, item workitem.WorkItem) error {
	checklistJSON, err := json.Marshal(item.Checklist)
	if err != nil {
		return fmt.Errorf("marshal checklist: %w", err)
	}

	res, err := s.db.Conn().ExecContext(ctx, `
		UPDATE work_items
		SET title = ?, description = ?, notes = ?, checklist = ?,
		    status = ?, branch_merged = ?, completed_at = ?
		WHERE id = ?`,
		item.Title,
		item.Description,
		item.Notes,
		string(checklistJSON),
		string(item.Status),
		boolToInt(item.BranchMerged),
		nullableTime(item.CompletedAt),
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update work item: %w", err)
	}
	if affected == 0 {
		return workitem.ErrNotFound
	}

	return nil
}

// Delete removes a work item and its commits in one transaction.
func (s *WorkItemStore) Delete(ctx context.Context, id string) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		// Explicit even though the FK cascades; the delete must not depend
		// on pragma state.
		if _, err := tx.ExecContext(ctx, `DELETE FROM commits WHERE work_item_id = ?`, id); err != nil {
			return fmt.Errorf("delete commits: %w", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM work_items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete work item: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete work item: %w", err)
		}
		if affected == 0 {
			return workitem.ErrNotFound
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkItem(row rowScanner) (workitem.WorkItem, error) {
	var (
		item          workitem.WorkItem
		category      string
		actionType    string
		status        string
		checklistJSON string
		branchMerged  int64
		createdAt     int64
		completedAt   sql.NullInt64
	)

	err := row.Scan(
		&item.ID,
		&item.Title,
		&category,
		&actionType,
		&item.Description,
		&item.Notes,
		&checklistJSON,
		&item.BranchName,
		&status,
		&branchMerged,
		&createdAt,
		&completedAt,
	)
	if err != nil {
		return workitem.WorkItem{}, err
	}

	item.Category = workitem.Category(category)
	item.ActionType = workitem.ActionType(actionType)
	item.Status = workitem.Status(status)
	item.BranchMerged = branchMerged != 0
	item.CreatedAt = time.Unix(0, createdAt)

	if completedAt.Valid {
		t := time.Unix(0, completedAt.Int64)
		item.CompletedAt = &t
	}

	if err := json.Unmarshal([]byte(checklistJSON), &item.Checklist); err != nil {
		return workitem.WorkItem{}, fmt.Errorf("unmarshal checklist: %w", err)
	}

	return item, nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixNano(), Valid: true}
}
