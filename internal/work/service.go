// Package work orchestrates the work item lifecycle: branch-bound creation,
// progress tracking, the commit flow, validated completion, and deletion.
// Every operation that touches the shared working tree runs under one
// repository lock.
package work

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/calciferhq/calcifer/internal/core/changelog"
	"github.com/calciferhq/calcifer/internal/core/checklist"
	"github.com/calciferhq/calcifer/internal/core/config"
	"github.com/calciferhq/calcifer/internal/core/eventbus"
	"github.com/calciferhq/calcifer/internal/core/git"
	"github.com/calciferhq/calcifer/internal/core/validation"
	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// branchCommitCap bounds how many branch commits Detail fetches.
const branchCommitCap = 50

// NewItemOptions configures work item creation.
type NewItemOptions struct {
	Title       string
	Category    workitem.Category
	ActionType  workitem.ActionType
	Description string
}

// CommitOptions configures a commit made through the commit flow.
type CommitOptions struct {
	Message        string
	ChangeLogEntry string
	Paths          []string // staged exactly, alongside the change log file
}

// Detail is the full view of one work item: stored state plus live git
// evidence.
type Detail struct {
	Item          workitem.WorkItem
	Commits       []workitem.Commit
	BranchCommits []git.BranchCommit
	Merged        bool
	CurrentBranch string
	WorkingDirty  bool
}

// WorkService orchestrates work item operations.
type WorkService struct {
	items     workitem.Store
	commits   workitem.CommitStore
	git       git.BranchRepo
	changelog *changelog.Writer
	engine    *validation.Engine
	config    *config.Config
	log       zerolog.Logger
	bus       *eventbus.EventBus
	lock      *Locker

	now func() time.Time
}

// NewWorkService creates a new WorkService.
func NewWorkService(
	items workitem.Store,
	commits workitem.CommitStore,
	gitRepo git.BranchRepo,
	clog *changelog.Writer,
	cfg *config.Config,
	bus *eventbus.EventBus,
	log zerolog.Logger,
) *WorkService {
	return &WorkService{
		items:     items,
		commits:   commits,
		git:       gitRepo,
		changelog: clog,
		engine:    validation.NewEngine(),
		config:    cfg,
		log:       log,
		bus:       bus,
		lock:      NewLocker(),
		now:       time.Now,
	}
}

// Create makes a new work item bound to a fresh git branch and checks the
// branch out. The branch and the stored row are created together or not at
// all: a branch failure leaves no row, and a row failure rolls the branch
// back.
func (s *WorkService) Create(ctx context.Context, opts NewItemOptions) (workitem.WorkItem, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return workitem.WorkItem{}, errors.New("title must not be empty")
	}

	release, err := s.lock.Acquire(ctx, s.config.LockTimeout)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	defer release()

	now := s.now()
	branch := git.BranchName(opts.Category, opts.ActionType, title, now)

	s.log.Info().Str("title", title).Str("branch", branch).Msg("creating work item")

	if err := s.git.CreateBranch(ctx, branch); err != nil {
		return workitem.WorkItem{}, fmt.Errorf("create branch %s: %w", branch, err)
	}

	item := workitem.WorkItem{
		ID:          ulid.Make().String(),
		Title:       title,
		Category:    opts.Category,
		ActionType:  opts.ActionType,
		Description: strings.TrimSpace(opts.Description),
		Checklist:   checklist.For(opts.Category, opts.ActionType),
		BranchName:  branch,
		Status:      workitem.StatusPlanning,
		CreatedAt:   now,
	}

	if err := s.items.Create(ctx, item); err != nil {
		s.rollbackBranch(ctx, branch)
		return workitem.WorkItem{}, fmt.Errorf("store work item: %w", err)
	}

	s.bus.PublishWorkItemCreated(eventbus.WorkItemCreatedPayload{Item: &item})
	return item, nil
}

// rollbackBranch restores trunk and removes a branch created during a failed
// Create. Best effort: the row never existed, so a leftover branch is only
// noise, logged for the operator.
func (s *WorkService) rollbackBranch(ctx context.Context, branch string) {
	if err := s.git.Checkout(ctx, s.config.Trunk); err != nil {
		s.log.Warn().Err(err).Str("branch", branch).Msg("rollback: checkout trunk failed")
		return
	}
	if err := s.git.DeleteBranch(ctx, branch, true); err != nil {
		s.log.Warn().Err(err).Str("branch", branch).Msg("rollback: delete branch failed")
	}
}

// Get returns a work item by ID.
func (s *WorkService) Get(ctx context.Context, id string) (workitem.WorkItem, error) {
	return s.items.Get(ctx, id)
}

// List returns work items matching the filter, newest first.
func (s *WorkService) List(ctx context.Context, filter workitem.ListFilter) ([]workitem.WorkItem, error) {
	return s.items.List(ctx, filter)
}

// RepoStatus is a snapshot of the working tree for list output.
type RepoStatus struct {
	CurrentBranch string
	WorkingDirty  bool
}

// Status reports the current branch and working tree state.
func (s *WorkService) Status(ctx context.Context) (RepoStatus, error) {
	current, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return RepoStatus{}, fmt.Errorf("current branch: %w", err)
	}
	clean, err := s.git.IsClean(ctx)
	if err != nil {
		return RepoStatus{}, fmt.Errorf("check working tree: %w", err)
	}
	return RepoStatus{CurrentBranch: current, WorkingDirty: !clean}, nil
}

// Detail returns the full view of a work item, refreshing the stored merge
// cache from live branch ancestry.
func (s *WorkService) Detail(ctx context.Context, id string) (Detail, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}

	merged := item.BranchMerged
	exists, err := s.git.BranchExists(ctx, item.BranchName)
	if err != nil {
		return Detail{}, fmt.Errorf("check branch %s: %w", item.BranchName, err)
	}
	if exists {
		merged, err = s.git.IsMerged(ctx, item.BranchName, s.config.Trunk)
		if err != nil {
			return Detail{}, fmt.Errorf("check ancestry of %s: %w", item.BranchName, err)
		}
	}

	if merged != item.BranchMerged {
		item.BranchMerged = merged
		if err := s.items.Update(ctx, item); err != nil {
			s.log.Warn().Err(err).Str("id", item.ID).Msg("refresh merge cache failed")
		}
	}

	commits, err := s.commits.ListForItem(ctx, id)
	if err != nil {
		return Detail{}, fmt.Errorf("list commits: %w", err)
	}

	var branchCommits []git.BranchCommit
	if exists {
		branchCommits, err = s.git.BranchCommits(ctx, item.BranchName, s.config.Trunk, branchCommitCap)
		if err != nil {
			return Detail{}, fmt.Errorf("list branch commits: %w", err)
		}
	}

	current, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return Detail{}, fmt.Errorf("current branch: %w", err)
	}
	clean, err := s.git.IsClean(ctx)
	if err != nil {
		return Detail{}, fmt.Errorf("check working tree: %w", err)
	}

	return Detail{
		Item:          item,
		Commits:       commits,
		BranchCommits: branchCommits,
		Merged:        merged,
		CurrentBranch: current,
		WorkingDirty:  !clean,
	}, nil
}

// ToggleChecklistItem flips one checklist entry by zero-based index. The
// first touch of a planning item moves it to in_progress. Storage only,
// no lock needed.
func (s *WorkService) ToggleChecklistItem(ctx context.Context, id string, index int) (workitem.WorkItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	if index < 0 || index >= len(item.Checklist) {
		return workitem.WorkItem{}, fmt.Errorf("checklist item %d of %d: %w", index, len(item.Checklist), ErrIndexOutOfRange)
	}

	item.Checklist[index].Done = !item.Checklist[index].Done
	item.MarkInProgress()

	if err := s.items.Update(ctx, item); err != nil {
		return workitem.WorkItem{}, fmt.Errorf("update work item: %w", err)
	}
	return item, nil
}

// UpdateNotes replaces the item's notes, truncated to the notes limit.
func (s *WorkService) UpdateNotes(ctx context.Context, id, notes string) (workitem.WorkItem, error) {
	item, err := s.items.Get(ctx, id)
	if err != nil {
		return workitem.WorkItem{}, err
	}

	runes := []rune(notes)
	if len(runes) > workitem.NotesLimit {
		runes = runes[:workitem.NotesLimit]
	}
	item.Notes = string(runes)
	item.MarkInProgress()

	if err := s.items.Update(ctx, item); err != nil {
		return workitem.WorkItem{}, fmt.Errorf("update work item: %w", err)
	}
	return item, nil
}

// CommitWork appends a change log entry, stages it with the given paths, and
// commits on the item's branch, recording the commit against the item. The
// working tree must either already be on the item's branch or be clean
// enough to switch to it.
func (s *WorkService) CommitWork(ctx context.Context, id string, opts CommitOptions) (workitem.Commit, error) {
	if strings.TrimSpace(opts.Message) == "" {
		return workitem.Commit{}, ErrEmptyMessage
	}
	if strings.TrimSpace(opts.ChangeLogEntry) == "" {
		return workitem.Commit{}, ErrEmptyChangeLogEntry
	}

	release, err := s.lock.Acquire(ctx, s.config.LockTimeout)
	if err != nil {
		return workitem.Commit{}, err
	}
	defer release()

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return workitem.Commit{}, err
	}
	if !item.Active() {
		return workitem.Commit{}, ErrItemComplete
	}

	if err := s.ensureOnBranch(ctx, item.BranchName); err != nil {
		return workitem.Commit{}, err
	}

	now := s.now()
	entry := changelog.Entry{
		Date:     now,
		Author:   s.config.Author,
		WorkType: item.FullType(),
		Text:     strings.TrimSpace(opts.ChangeLogEntry),
	}
	if err := s.changelog.Append(entry); err != nil {
		return workitem.Commit{}, fmt.Errorf("append change log: %w", err)
	}

	paths := append([]string{s.changelog.RelPath()}, opts.Paths...)
	sha, err := s.git.StageAndCommit(ctx, paths, opts.Message)
	if err != nil {
		return workitem.Commit{}, fmt.Errorf("commit on %s: %w", item.BranchName, err)
	}

	commit := workitem.Commit{
		ID:             ulid.Make().String(),
		WorkItemID:     item.ID,
		SHA:            sha,
		Message:        opts.Message,
		ChangeLogEntry: entry.Text,
		AuthoredAt:     now,
	}
	if err := s.commits.Record(ctx, commit); err != nil {
		// The git commit exists; surface the gap instead of hiding it.
		s.log.Error().Err(err).Str("sha", sha).Msg("commit exists on branch but was not recorded")
		return workitem.Commit{}, fmt.Errorf("record commit %s: %w", sha, ErrFatalConsistency)
	}

	item.MarkInProgress()
	if err := s.items.Update(ctx, item); err != nil {
		return workitem.Commit{}, fmt.Errorf("update work item: %w", err)
	}

	s.log.Info().Str("id", item.ID).Str("sha", sha).Msg("recorded commit")
	s.bus.PublishCommitRecorded(eventbus.CommitRecordedPayload{Item: &item, Commit: &commit})
	return commit, nil
}

// ensureOnBranch switches the working tree to the item's branch when it is
// checked out elsewhere. A dirty tree left by an outside process blocks the
// switch and needs manual intervention.
func (s *WorkService) ensureOnBranch(ctx context.Context, branch string) error {
	current, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("current branch: %w", err)
	}
	if current == branch {
		return nil
	}

	s.log.Debug().Str("from", current).Str("to", branch).Msg("switching branch")
	if err := s.git.Checkout(ctx, branch); err != nil {
		if errors.Is(err, git.ErrUncommittedChanges) {
			return fmt.Errorf("working tree on %s has uncommitted changes: %w", current, ErrFatalConsistency)
		}
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

// MergeAndComplete validates the item against every completion criterion and,
// if approved, merges its branch into trunk and marks it complete. Rejection
// and merge conflict both leave item and repository untouched.
func (s *WorkService) MergeAndComplete(ctx context.Context, id string) (workitem.WorkItem, error) {
	release, err := s.lock.Acquire(ctx, s.config.LockTimeout)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	defer release()

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return workitem.WorkItem{}, err
	}
	if !item.Active() {
		return workitem.WorkItem{}, ErrItemComplete
	}

	// Live ancestry; the stored cache is never trusted for this decision.
	merged, err := s.git.IsMerged(ctx, item.BranchName, s.config.Trunk)
	if err != nil {
		return workitem.WorkItem{}, fmt.Errorf("check ancestry of %s: %w", item.BranchName, err)
	}

	commits, err := s.commits.ListForItem(ctx, id)
	if err != nil {
		return workitem.WorkItem{}, fmt.Errorf("list commits: %w", err)
	}

	result := s.engine.Evaluate(item, validation.Evidence{
		Commits:   commits,
		Merged:    merged,
		Mergeable: true, // conflicts surface from the merge itself below
	})
	if !result.Approved {
		s.log.Info().Str("id", item.ID).Strs("reasons", result.Reasons).Msg("completion rejected")
		return workitem.WorkItem{}, &ValidationError{Reasons: result.Reasons}
	}

	if !merged {
		sha, err := s.git.MergeBranch(ctx, item.BranchName, s.config.Trunk)
		if err != nil {
			return workitem.WorkItem{}, fmt.Errorf("merge %s into %s: %w", item.BranchName, s.config.Trunk, err)
		}
		s.log.Info().Str("id", item.ID).Str("sha", sha).Msg("merged branch")
	}

	item.MarkComplete(s.now())
	if err := s.items.Update(ctx, item); err != nil {
		return workitem.WorkItem{}, fmt.Errorf("update work item: %w", err)
	}

	s.log.Info().Str("id", item.ID).Str("branch", item.BranchName).Msg("work item complete")
	s.bus.PublishWorkItemCompleted(eventbus.WorkItemCompletedPayload{Item: &item})
	return item, nil
}

// Delete removes a work item, its recorded commits, and its branch. Unmerged
// branch work is discarded; callers confirm before getting here. Works from
// any status, including complete.
func (s *WorkService) Delete(ctx context.Context, id string) error {
	release, err := s.lock.Acquire(ctx, s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	item, err := s.items.Get(ctx, id)
	if err != nil {
		return err
	}

	exists, err := s.git.BranchExists(ctx, item.BranchName)
	if err != nil {
		return fmt.Errorf("check branch %s: %w", item.BranchName, err)
	}

	if exists {
		current, err := s.git.CurrentBranch(ctx)
		if err != nil {
			return fmt.Errorf("current branch: %w", err)
		}
		if current == item.BranchName {
			if err := s.git.Checkout(ctx, s.config.Trunk); err != nil {
				return fmt.Errorf("checkout %s: %w", s.config.Trunk, err)
			}
		}
		if err := s.git.DeleteBranch(ctx, item.BranchName, true); err != nil {
			return fmt.Errorf("delete branch %s: %w", item.BranchName, err)
		}
	}

	if err := s.items.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}

	s.log.Info().Str("id", item.ID).Str("branch", item.BranchName).Msg("deleted work item")
	s.bus.PublishWorkItemDeleted(eventbus.WorkItemDeletedPayload{
		WorkItemID: item.ID,
		BranchName: item.BranchName,
	})
	return nil
}

// InitRepo bootstraps the managed repository: initializes git with the
// configured trunk when the directory is not a repository yet, and seeds the
// change log file. Idempotent on an already initialized repository.
func (s *WorkService) InitRepo(ctx context.Context) error {
	release, err := s.lock.Acquire(ctx, s.config.LockTimeout)
	if err != nil {
		return err
	}
	defer release()

	fresh := false
	if err := s.git.IsValidRepo(ctx); err != nil {
		if !errors.Is(err, git.ErrNotGitRepo) {
			return fmt.Errorf("check repository: %w", err)
		}
		if err := s.git.Init(ctx, s.config.Trunk); err != nil {
			return fmt.Errorf("init repository: %w", err)
		}
		fresh = true
		s.log.Info().Str("trunk", s.config.Trunk).Msg("initialized repository")
	}

	if err := s.changelog.Ensure(); err != nil {
		return fmt.Errorf("seed change log: %w", err)
	}

	if fresh {
		_, err := s.git.StageAndCommit(ctx, []string{s.changelog.RelPath()}, "Initial commit")
		if err != nil && !errors.Is(err, git.ErrNothingToCommit) {
			return fmt.Errorf("initial commit: %w", err)
		}
	}
	return nil
}

// Reconcile cross-checks the working tree against tracked state at startup.
// It never switches branches; it only warns when the checked-out branch is
// not owned by any active work item.
func (s *WorkService) Reconcile(ctx context.Context) error {
	current, err := s.git.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("current branch: %w", err)
	}
	if current == s.config.Trunk {
		return nil
	}

	items, err := s.items.List(ctx, workitem.ListFilter{})
	if err != nil {
		return fmt.Errorf("list work items: %w", err)
	}
	for _, item := range items {
		if item.Active() && item.BranchName == current {
			return nil
		}
	}

	s.log.Warn().Str("branch", current).Msg("checked-out branch is not owned by any active work item")
	return nil
}
