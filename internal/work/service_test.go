package work

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/calciferhq/calcifer/internal/core/changelog"
	"github.com/calciferhq/calcifer/internal/core/config"
	"github.com/calciferhq/calcifer/internal/core/eventbus"
	"github.com/calciferhq/calcifer/internal/core/eventbus/testbus"
	"github.com/calciferhq/calcifer/internal/core/git"
	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeStore is an in-memory workitem.Store.
type fakeStore struct {
	mu        sync.Mutex
	items     map[string]workitem.WorkItem
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]workitem.WorkItem)}
}

func (f *fakeStore) Create(_ context.Context, item workitem.WorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.items {
		if existing.BranchName == item.BranchName {
			return workitem.ErrDuplicateBranch
		}
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) Get(_ context.Context, id string) (workitem.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return workitem.WorkItem{}, workitem.ErrNotFound
	}
	return item, nil
}

func (f *fakeStore) List(_ context.Context, filter workitem.ListFilter) ([]workitem.WorkItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []workitem.WorkItem
	for _, item := range f.items {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, item workitem.WorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[item.ID]; !ok {
		return workitem.ErrNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return workitem.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

// fakeCommitStore is an in-memory workitem.CommitStore.
type fakeCommitStore struct {
	mu      sync.Mutex
	commits []workitem.Commit
}

func (f *fakeCommitStore) Record(_ context.Context, c workitem.Commit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commits = append(f.commits, c)
	return nil
}

func (f *fakeCommitStore) ListForItem(_ context.Context, id string) ([]workitem.Commit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []workitem.Commit
	for _, c := range f.commits {
		if c.WorkItemID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

// fakeGit is a stateful in-memory git.BranchRepo. Branch state is explicit
// so tests can assert exactly what the service did to the repository.
type fakeGit struct {
	mu       sync.Mutex
	current  string
	branches map[string]bool
	merged   map[string]bool // branch -> all commits reachable from trunk
	dirty    bool
	shaSeq   int

	staged      [][]string // paths passed to each StageAndCommit
	mergedInto  []string   // branches merged via MergeBranch
	conflictOn  string     // branch whose merge conflicts
	commitDelay time.Duration
	inCommit    atomic.Int32
	overlapped  atomic.Bool
	notARepo    bool
}

func newFakeGit(trunk string) *fakeGit {
	return &fakeGit{
		current:  trunk,
		branches: map[string]bool{trunk: true},
		merged:   make(map[string]bool),
	}
}

func (f *fakeGit) CurrentBranch(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, nil
}

func (f *fakeGit) Branches(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for b := range f.branches {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeGit) BranchExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.branches[name], nil
}

func (f *fakeGit) CreateBranch(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.branches[name] {
		return git.ErrBranchExists
	}
	f.branches[name] = true
	f.current = name
	return nil
}

func (f *fakeGit) Checkout(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dirty {
		return git.ErrUncommittedChanges
	}
	if !f.branches[name] {
		return git.ErrBranchNotFound
	}
	f.current = name
	return nil
}

func (f *fakeGit) IsClean(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.dirty, nil
}

func (f *fakeGit) StageAndCommit(_ context.Context, paths []string, _ string) (string, error) {
	if f.inCommit.Add(1) > 1 {
		f.overlapped.Store(true)
	}
	defer f.inCommit.Add(-1)
	if f.commitDelay > 0 {
		time.Sleep(f.commitDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.staged = append(f.staged, paths)
	f.shaSeq++
	return fmt.Sprintf("sha-%d", f.shaSeq), nil
}

func (f *fakeGit) BranchCommits(_ context.Context, name, _ string, _ int) ([]git.BranchCommit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.merged[name] {
		return nil, nil
	}
	return []git.BranchCommit{{SHA: "sha-1", Subject: "work on " + name}}, nil
}

func (f *fakeGit) IsMerged(_ context.Context, name, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.merged[name], nil
}

func (f *fakeGit) MergeBranch(_ context.Context, name, trunk string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.conflictOn {
		return "", git.ErrMergeConflict
	}
	f.merged[name] = true
	f.mergedInto = append(f.mergedInto, name)
	f.current = trunk
	f.shaSeq++
	return fmt.Sprintf("sha-%d", f.shaSeq), nil
}

func (f *fakeGit) DeleteBranch(_ context.Context, name string, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == name {
		return git.ErrBranchCheckedOut
	}
	if !f.branches[name] {
		return git.ErrBranchNotFound
	}
	delete(f.branches, name)
	return nil
}

func (f *fakeGit) IsValidRepo(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notARepo {
		return git.ErrNotGitRepo
	}
	return nil
}

func (f *fakeGit) Init(_ context.Context, trunk string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notARepo = false
	f.branches[trunk] = true
	f.current = trunk
	return nil
}

var (
	_ workitem.Store       = (*fakeStore)(nil)
	_ workitem.CommitStore = (*fakeCommitStore)(nil)
	_ git.BranchRepo       = (*fakeGit)(nil)
)

type fixture struct {
	svc     *WorkService
	store   *fakeStore
	commits *fakeCommitStore
	git     *fakeGit
	bus     *testbus.Bus
	fs      afero.Fs
	cfg     *config.Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{
		Trunk:       "main",
		ChangeLog:   "docs/CHANGES.md",
		Author:      "Tester",
		LockTimeout: 2 * time.Second,
	}
	store := newFakeStore()
	commits := &fakeCommitStore{}
	gitRepo := newFakeGit(cfg.Trunk)
	fs := afero.NewMemMapFs()
	clog := changelog.NewWriter(fs, "/repo", cfg.ChangeLog)
	bus := testbus.New(t)

	svc := NewWorkService(store, commits, gitRepo, clog, cfg, bus.EventBus, zerolog.Nop())
	return &fixture{svc: svc, store: store, commits: commits, git: gitRepo, bus: bus, fs: fs, cfg: cfg}
}

func (fx *fixture) mustCreate(t *testing.T, title string) workitem.WorkItem {
	t.Helper()
	item, err := fx.svc.Create(context.Background(), NewItemOptions{
		Title:      title,
		Category:   workitem.CategoryService,
		ActionType: workitem.ActionNew,
	})
	require.NoError(t, err)
	return item
}

// readyToComplete drives an item through the full flow so every completion
// criterion holds.
func (fx *fixture) readyToComplete(t *testing.T, item workitem.WorkItem) workitem.WorkItem {
	t.Helper()
	ctx := context.Background()

	got, err := fx.store.Get(ctx, item.ID)
	require.NoError(t, err)
	for i := range got.Checklist {
		got, err = fx.svc.ToggleChecklistItem(ctx, item.ID, i)
		require.NoError(t, err)
	}

	_, err = fx.svc.UpdateNotes(ctx, item.ID, "verified end to end")
	require.NoError(t, err)

	_, err = fx.svc.CommitWork(ctx, item.ID, CommitOptions{
		Message:        "apply the change",
		ChangeLogEntry: "Applied the change",
	})
	require.NoError(t, err)

	got, err = fx.store.Get(ctx, item.ID)
	require.NoError(t, err)
	return got
}

func TestWorkServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates branch and row together", func(t *testing.T) {
		fx := newFixture(t)

		item := fx.mustCreate(t, "Provision staging cluster")

		assert.NotEmpty(t, item.ID)
		assert.Equal(t, workitem.StatusPlanning, item.Status)
		assert.NotEmpty(t, item.Checklist)
		assert.Contains(t, item.BranchName, "service/new/provision-staging-cluster")

		exists, err := fx.git.BranchExists(ctx, item.BranchName)
		require.NoError(t, err)
		assert.True(t, exists)

		current, err := fx.git.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, item.BranchName, current, "new branch is checked out")

		stored, err := fx.store.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, item.BranchName, stored.BranchName)

		assert.True(t, fx.bus.WaitFor(eventbus.EventWorkItemCreated, time.Second))
	})

	t.Run("rejects empty title", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.Create(ctx, NewItemOptions{
			Title:      "   ",
			Category:   workitem.CategoryService,
			ActionType: workitem.ActionNew,
		})
		assert.Error(t, err)
	})

	t.Run("branch failure leaves no row", func(t *testing.T) {
		fx := newFixture(t)

		item := fx.mustCreate(t, "First")

		// Second attempt at the identical timestamp collides on the branch.
		fx.svc.now = func() time.Time { return item.CreatedAt }
		_, err := fx.svc.Create(ctx, NewItemOptions{
			Title:      "First",
			Category:   workitem.CategoryService,
			ActionType: workitem.ActionNew,
		})
		require.ErrorIs(t, err, git.ErrBranchExists)

		items, err := fx.store.List(ctx, workitem.ListFilter{})
		require.NoError(t, err)
		assert.Len(t, items, 1)
	})

	t.Run("row failure rolls the branch back", func(t *testing.T) {
		fx := newFixture(t)
		fx.store.createErr = fmt.Errorf("disk full")

		_, err := fx.svc.Create(ctx, NewItemOptions{
			Title:      "Doomed",
			Category:   workitem.CategoryService,
			ActionType: workitem.ActionNew,
		})
		require.Error(t, err)

		current, err := fx.git.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", current, "trunk restored")

		branches, err := fx.git.Branches(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"main"}, branches, "orphan branch removed")
	})
}

func TestWorkServiceChecklistAndNotes(t *testing.T) {
	ctx := context.Background()

	t.Run("first toggle moves planning to in_progress", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Toggle me")

		got, err := fx.svc.ToggleChecklistItem(ctx, item.ID, 0)
		require.NoError(t, err)
		assert.True(t, got.Checklist[0].Done)
		assert.Equal(t, workitem.StatusInProgress, got.Status)

		// Untoggling flips the flag but never moves status backward.
		got, err = fx.svc.ToggleChecklistItem(ctx, item.ID, 0)
		require.NoError(t, err)
		assert.False(t, got.Checklist[0].Done)
		assert.Equal(t, workitem.StatusInProgress, got.Status)
	})

	t.Run("index out of range", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Bounds")

		_, err := fx.svc.ToggleChecklistItem(ctx, item.ID, len(item.Checklist))
		assert.ErrorIs(t, err, ErrIndexOutOfRange)

		_, err = fx.svc.ToggleChecklistItem(ctx, item.ID, -1)
		assert.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("unknown item", func(t *testing.T) {
		fx := newFixture(t)

		_, err := fx.svc.ToggleChecklistItem(ctx, "nope", 0)
		assert.ErrorIs(t, err, workitem.ErrNotFound)
	})

	t.Run("notes truncated to limit", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Notes")

		long := strings.Repeat("x", workitem.NotesLimit+50)
		got, err := fx.svc.UpdateNotes(ctx, item.ID, long)
		require.NoError(t, err)
		assert.Len(t, got.Notes, workitem.NotesLimit)
	})
}

func TestWorkServiceCommitWork(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Commit flow")

		commit, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "add manifests",
			ChangeLogEntry: "Added staging manifests",
			Paths:          []string{"manifests/app.yaml"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, commit.SHA)
		assert.Equal(t, "Added staging manifests", commit.ChangeLogEntry)

		// Change log file written and staged first, then caller paths.
		content, err := afero.ReadFile(fx.fs, "/repo/docs/CHANGES.md")
		require.NoError(t, err)
		assert.Contains(t, string(content), "Added staging manifests")
		assert.Contains(t, string(content), "Tester")

		require.Len(t, fx.git.staged, 1)
		assert.Equal(t, []string{"docs/CHANGES.md", "manifests/app.yaml"}, fx.git.staged[0])

		recorded, err := fx.commits.ListForItem(ctx, item.ID)
		require.NoError(t, err)
		require.Len(t, recorded, 1)

		got, err := fx.store.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, workitem.StatusInProgress, got.Status)

		assert.True(t, fx.bus.WaitFor(eventbus.EventCommitRecorded, time.Second))
	})

	t.Run("empty message", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "No message")

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{ChangeLogEntry: "entry"})
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("empty change log entry", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "No entry")

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{Message: "msg"})
		assert.ErrorIs(t, err, ErrEmptyChangeLogEntry)
	})

	t.Run("switches back to the item branch", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Re-checkout")

		require.NoError(t, fx.git.Checkout(ctx, "main"))

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "msg",
			ChangeLogEntry: "entry",
		})
		require.NoError(t, err)

		current, err := fx.git.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, item.BranchName, current)
	})

	t.Run("dirty tree on another branch is fatal", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Dirty")

		require.NoError(t, fx.git.Checkout(ctx, "main"))
		fx.git.dirty = true

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "msg",
			ChangeLogEntry: "entry",
		})
		assert.ErrorIs(t, err, ErrFatalConsistency)
	})

	t.Run("complete item refuses commits", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Done already")
		fx.readyToComplete(t, item)

		_, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.NoError(t, err)

		_, err = fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "msg",
			ChangeLogEntry: "entry",
		})
		assert.ErrorIs(t, err, ErrItemComplete)
	})
}

func TestWorkServiceMergeAndComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects with every unmet criterion", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Fresh")

		_, err := fx.svc.MergeAndComplete(ctx, item.ID)

		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Len(t, verr.Reasons, 3, "checklist, notes, and commit reasons together")

		got, err := fx.store.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, workitem.StatusPlanning, got.Status, "rejection mutates nothing")
		assert.Empty(t, fx.git.mergedInto)
	})

	t.Run("merges and completes when approved", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Ship it")
		fx.readyToComplete(t, item)

		got, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, workitem.StatusComplete, got.Status)
		assert.True(t, got.BranchMerged)
		require.NotNil(t, got.CompletedAt)

		assert.Equal(t, []string{item.BranchName}, fx.git.mergedInto)

		current, err := fx.git.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", current, "merge lands on trunk")

		assert.True(t, fx.bus.WaitFor(eventbus.EventWorkItemCompleted, time.Second))
	})

	t.Run("already merged branch completes without a merge", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Pre-merged")
		fx.readyToComplete(t, item)
		fx.git.merged[item.BranchName] = true

		got, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, workitem.StatusComplete, got.Status)
		assert.Empty(t, fx.git.mergedInto, "no second merge")
	})

	t.Run("merge conflict leaves the item untouched", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Conflicting")
		fx.readyToComplete(t, item)
		fx.git.conflictOn = item.BranchName

		_, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.ErrorIs(t, err, git.ErrMergeConflict)

		got, err := fx.store.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.Equal(t, workitem.StatusInProgress, got.Status)
		assert.False(t, got.BranchMerged)
		assert.Nil(t, got.CompletedAt)
	})

	t.Run("complete item cannot complete again", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Twice")
		fx.readyToComplete(t, item)

		_, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.NoError(t, err)

		_, err = fx.svc.MergeAndComplete(ctx, item.ID)
		assert.ErrorIs(t, err, ErrItemComplete)
	})
}

func TestWorkServiceDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes branch, row, and commits", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Remove me")

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "some work",
			ChangeLogEntry: "Some work",
		})
		require.NoError(t, err)

		// Item branch is checked out; Delete must move off it first.
		require.NoError(t, fx.svc.Delete(ctx, item.ID))

		current, err := fx.git.CurrentBranch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", current)

		exists, err := fx.git.BranchExists(ctx, item.BranchName)
		require.NoError(t, err)
		assert.False(t, exists)

		_, err = fx.store.Get(ctx, item.ID)
		assert.ErrorIs(t, err, workitem.ErrNotFound)

		assert.True(t, fx.bus.WaitFor(eventbus.EventWorkItemDeleted, time.Second))
	})

	t.Run("tolerates an already deleted branch", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Branchless")

		require.NoError(t, fx.git.Checkout(ctx, "main"))
		require.NoError(t, fx.git.DeleteBranch(ctx, item.BranchName, true))

		require.NoError(t, fx.svc.Delete(ctx, item.ID))
	})

	t.Run("works on complete items", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Complete then delete")
		fx.readyToComplete(t, item)

		_, err := fx.svc.MergeAndComplete(ctx, item.ID)
		require.NoError(t, err)

		require.NoError(t, fx.svc.Delete(ctx, item.ID))
	})

	t.Run("unknown item", func(t *testing.T) {
		fx := newFixture(t)
		assert.ErrorIs(t, fx.svc.Delete(ctx, "nope"), workitem.ErrNotFound)
	})
}

func TestWorkServiceSerialization(t *testing.T) {
	ctx := context.Background()

	t.Run("tree-mutating operations never overlap", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Contended")
		fx.git.commitDelay = 30 * time.Millisecond

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
					Message:        fmt.Sprintf("change %d", i),
					ChangeLogEntry: fmt.Sprintf("Change %d", i),
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.False(t, fx.git.overlapped.Load(), "second caller blocked, not interleaved")
		require.Len(t, fx.git.staged, 4, "every caller eventually ran")
	})

	t.Run("held lock surfaces ErrResourceLocked after the timeout", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Locked out")
		fx.cfg.LockTimeout = 20 * time.Millisecond

		release, err := fx.svc.lock.Acquire(ctx, 0)
		require.NoError(t, err)
		defer release()

		_, err = fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "msg",
			ChangeLogEntry: "entry",
		})
		assert.ErrorIs(t, err, ErrResourceLocked)
	})

	t.Run("cancelled context surfaces ErrResourceLocked", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Cancelled")

		release, err := fx.svc.lock.Acquire(ctx, 0)
		require.NoError(t, err)
		defer release()

		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err = fx.svc.MergeAndComplete(cancelled, item.ID)
		assert.ErrorIs(t, err, ErrResourceLocked)
	})
}

func TestWorkServiceReconcile(t *testing.T) {
	ctx := context.Background()

	t.Run("trunk checkout is fine", func(t *testing.T) {
		fx := newFixture(t)
		require.NoError(t, fx.svc.Reconcile(ctx))
	})

	t.Run("active item branch is fine", func(t *testing.T) {
		fx := newFixture(t)
		fx.mustCreate(t, "Owned branch")
		require.NoError(t, fx.svc.Reconcile(ctx))
	})

	t.Run("unowned branch only warns", func(t *testing.T) {
		fx := newFixture(t)
		require.NoError(t, fx.git.CreateBranch(ctx, "stray-branch"))
		require.NoError(t, fx.svc.Reconcile(ctx))
	})
}

func TestWorkServiceInitRepo(t *testing.T) {
	ctx := context.Background()

	t.Run("fresh directory gets a repo and an initial commit", func(t *testing.T) {
		fx := newFixture(t)
		fx.git.notARepo = true

		require.NoError(t, fx.svc.InitRepo(ctx))

		require.NoError(t, fx.git.IsValidRepo(ctx))
		exists, err := afero.Exists(fx.fs, "/repo/docs/CHANGES.md")
		require.NoError(t, err)
		assert.True(t, exists)
		require.Len(t, fx.git.staged, 1)
		assert.Equal(t, []string{"docs/CHANGES.md"}, fx.git.staged[0])
	})

	t.Run("idempotent on an existing repo", func(t *testing.T) {
		fx := newFixture(t)

		require.NoError(t, fx.svc.InitRepo(ctx))
		require.NoError(t, fx.svc.InitRepo(ctx))
		assert.Empty(t, fx.git.staged, "no commits on an already initialized repo")
	})
}

func TestWorkServiceDetail(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes the merge cache from live ancestry", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Detail view")

		// Branch merged outside the tool; the stored cache is stale.
		fx.git.merged[item.BranchName] = true

		detail, err := fx.svc.Detail(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, detail.Merged)

		stored, err := fx.store.Get(ctx, item.ID)
		require.NoError(t, err)
		assert.True(t, stored.BranchMerged, "cache refreshed in storage")
	})

	t.Run("includes recorded and branch commits", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "With commits")

		_, err := fx.svc.CommitWork(ctx, item.ID, CommitOptions{
			Message:        "work",
			ChangeLogEntry: "Work",
		})
		require.NoError(t, err)

		detail, err := fx.svc.Detail(ctx, item.ID)
		require.NoError(t, err)
		assert.Len(t, detail.Commits, 1)
		assert.NotEmpty(t, detail.BranchCommits)
		assert.Equal(t, item.BranchName, detail.CurrentBranch)
		assert.False(t, detail.WorkingDirty)
	})

	t.Run("survives a deleted branch", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Gone branch")

		require.NoError(t, fx.git.Checkout(ctx, "main"))
		require.NoError(t, fx.git.DeleteBranch(ctx, item.BranchName, true))

		detail, err := fx.svc.Detail(ctx, item.ID)
		require.NoError(t, err)
		assert.Empty(t, detail.BranchCommits)
	})
}

func TestWorkServiceStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("reports branch and clean tree", func(t *testing.T) {
		fx := newFixture(t)
		item := fx.mustCreate(t, "Status check")

		status, err := fx.svc.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, item.BranchName, status.CurrentBranch)
		assert.False(t, status.WorkingDirty)
	})

	t.Run("reports a dirty tree", func(t *testing.T) {
		fx := newFixture(t)
		fx.git.dirty = true

		status, err := fx.svc.Status(ctx)
		require.NoError(t, err)
		assert.Equal(t, "main", status.CurrentBranch)
		assert.True(t, status.WorkingDirty)
	})
}
