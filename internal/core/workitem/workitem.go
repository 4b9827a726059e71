// Package workitem defines work item domain types and interfaces.
package workitem

import (
	"fmt"
	"strings"
	"time"
)

// NotesLimit is the maximum stored length of the notes field, in bytes.
// Longer input is truncated, not rejected.
const NotesLimit = 2000

// Category classifies what part of the infrastructure a work item touches.
type Category string

// Known categories. Unknown values are rejected at the boundary; the
// checklist engine still has a fallback so stored data never blocks reads.
const (
	CategoryPlatformFeature Category = "platform_feature"
	CategoryIntegration     Category = "integration"
	CategoryService         Category = "service"
	CategoryDocumentation   Category = "documentation"
)

// Categories returns all known categories in display order.
func Categories() []Category {
	return []Category{
		CategoryPlatformFeature,
		CategoryIntegration,
		CategoryService,
		CategoryDocumentation,
	}
}

// ParseCategory validates a raw category string.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case CategoryPlatformFeature, CategoryIntegration, CategoryService, CategoryDocumentation:
		return c, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ActionType describes the kind of change a work item makes.
type ActionType string

// Known action types.
const (
	ActionNew       ActionType = "new"
	ActionChange    ActionType = "change"
	ActionFix       ActionType = "fix"
	ActionDeprecate ActionType = "deprecate"
)

// ActionTypes returns all known action types in display order.
func ActionTypes() []ActionType {
	return []ActionType{ActionNew, ActionChange, ActionFix, ActionDeprecate}
}

// ParseActionType validates a raw action type string.
func ParseActionType(s string) (ActionType, error) {
	a := ActionType(strings.ToLower(strings.TrimSpace(s)))
	switch a {
	case ActionNew, ActionChange, ActionFix, ActionDeprecate:
		return a, nil
	}
	return "", fmt.Errorf("unknown action type %q", s)
}

// Status is the lifecycle state of a work item.
type Status string

// Lifecycle states. Status only moves forward: planning -> in_progress ->
// complete. Deletion removes the row from any state.
const (
	StatusPlanning   Status = "planning"
	StatusInProgress Status = "in_progress"
	StatusComplete   Status = "complete"
)

// ChecklistItem is one boolean-gated sub-task of a work item.
type ChecklistItem struct {
	Text string `json:"text"`
	Done bool   `json:"done"`
}

// WorkItem is a tracked unit of infrastructure change bound to exactly one
// git branch. The checklist length is fixed at creation; only Done flips.
type WorkItem struct {
	ID          string
	Title       string
	Category    Category
	ActionType  ActionType
	Description string
	Notes       string
	Checklist   []ChecklistItem
	BranchName  string

	Status Status

	// BranchMerged is a cache of the live ancestry check. It is refreshed
	// whenever it feeds a decision and must never be trusted stale.
	BranchMerged bool

	CreatedAt   time.Time
	CompletedAt *time.Time
}

// FullType is the human-readable classification, e.g. "service / new".
func (w *WorkItem) FullType() string {
	return string(w.Category) + " / " + string(w.ActionType)
}

// ChecklistDone reports whether every checklist item is done.
func (w *WorkItem) ChecklistDone() bool {
	for _, item := range w.Checklist {
		if !item.Done {
			return false
		}
	}
	return true
}

// ChecklistProgress returns done and total checklist counts.
func (w *WorkItem) ChecklistProgress() (done, total int) {
	for _, item := range w.Checklist {
		if item.Done {
			done++
		}
	}
	return done, len(w.Checklist)
}

// MarkInProgress moves a planning item to in_progress. Later states are
// left untouched; status never moves backward.
func (w *WorkItem) MarkInProgress() {
	if w.Status == StatusPlanning {
		w.Status = StatusInProgress
	}
}

// MarkComplete transitions the item to its terminal state.
func (w *WorkItem) MarkComplete(now time.Time) {
	w.Status = StatusComplete
	w.CompletedAt = &now
	w.BranchMerged = true
}

// Active reports whether the item is still open.
func (w *WorkItem) Active() bool {
	return w.Status != StatusComplete
}

// Commit is a recorded git commit made through the commit flow, bound to a
// work item. Its branch context always matches the item's BranchName.
type Commit struct {
	ID             string
	WorkItemID     string
	SHA            string
	Message        string
	ChangeLogEntry string
	AuthoredAt     time.Time
}
