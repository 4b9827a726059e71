package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/calciferhq/calcifer/pkg/executil"
)

// Executor implements BranchRepo using the git command-line tool against a
// single repository directory.
type Executor struct {
	gitPath string
	repoDir string
	exec    executil.Executor
}

var _ BranchRepo = (*Executor)(nil)

// NewExecutor creates a BranchRepo for the repository at repoDir.
func NewExecutor(gitPath, repoDir string, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, repoDir: repoDir, exec: exec}
}

func (e *Executor) git(ctx context.Context, args ...string) ([]byte, error) {
	return e.exec.RunDir(ctx, e.repoDir, e.gitPath, args...)
}

func (e *Executor) CurrentBranch(ctx context.Context) (string, error) {
	out, err := e.git(ctx, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) Branches(ctx context.Context) ([]string, error) {
	out, err := e.git(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}

	var branches []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			branches = append(branches, line)
		}
	}
	return branches, nil
}

func (e *Executor) BranchExists(ctx context.Context, name string) (bool, error) {
	_, err := e.git(ctx, "show-ref", "--verify", "--quiet", "refs/heads/"+name)
	if err != nil {
		// show-ref exits non-zero for a missing ref; treat any failure as
		// absence rather than trying to distinguish exec errors.
		return false, nil
	}
	return true, nil
}

func (e *Executor) CreateBranch(ctx context.Context, name string) error {
	exists, err := e.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("create branch %s: %w", name, ErrBranchExists)
	}

	if out, err := e.git(ctx, "checkout", "-b", name); err != nil {
		return fmt.Errorf("create branch %s: %s: %w", name, firstLine(out), err)
	}
	return nil
}

func (e *Executor) Checkout(ctx context.Context, name string) error {
	clean, err := e.IsClean(ctx)
	if err != nil {
		return err
	}
	if !clean {
		return fmt.Errorf("checkout %s: %w", name, ErrUncommittedChanges)
	}

	exists, err := e.BranchExists(ctx, name)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("checkout %s: %w", name, ErrBranchNotFound)
	}

	if out, err := e.git(ctx, "checkout", name); err != nil {
		return fmt.Errorf("checkout %s: %s: %w", name, firstLine(out), err)
	}
	return nil
}

func (e *Executor) IsClean(ctx context.Context) (bool, error) {
	out, err := e.git(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(string(out))) == 0, nil
}

func (e *Executor) StageAndCommit(ctx context.Context, paths []string, message string) (string, error) {
	if len(paths) == 0 {
		return "", fmt.Errorf("stage: %w", ErrNothingToCommit)
	}

	args := append([]string{"add", "--"}, paths...)
	if out, err := e.git(ctx, args...); err != nil {
		return "", fmt.Errorf("stage %v: %s: %w", paths, firstLine(out), err)
	}

	// Staging may be a no-op when the named paths are unchanged.
	if _, err := e.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return "", ErrNothingToCommit
	}

	if out, err := e.git(ctx, "commit", "-m", message); err != nil {
		return "", fmt.Errorf("commit: %s: %w", firstLine(out), err)
	}

	out, err := e.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) BranchCommits(ctx context.Context, name, trunk string, limit int) ([]BranchCommit, error) {
	args := []string{"log", "--format=%H%x09%s", trunk + ".." + name}
	if limit > 0 {
		args = append(args, "-n", strconv.Itoa(limit))
	}

	out, err := e.git(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("branch commits %s: %s: %w", name, firstLine(out), err)
	}

	var commits []BranchCommit
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		sha, subject, _ := strings.Cut(line, "\t")
		commits = append(commits, BranchCommit{SHA: sha, Subject: subject})
	}
	return commits, nil
}

func (e *Executor) IsMerged(ctx context.Context, name, trunk string) (bool, error) {
	out, err := e.git(ctx, "rev-list", "--count", trunk+".."+name)
	if err != nil {
		return false, fmt.Errorf("ancestry %s..%s: %s: %w", trunk, name, firstLine(out), err)
	}

	count, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return false, fmt.Errorf("ancestry %s..%s: parse count: %w", trunk, name, err)
	}
	return count == 0, nil
}

func (e *Executor) MergeBranch(ctx context.Context, name, trunk string) (string, error) {
	prev, err := e.CurrentBranch(ctx)
	if err != nil {
		return "", err
	}

	if err := e.Checkout(ctx, trunk); err != nil {
		return "", err
	}

	if out, err := e.git(ctx, "merge", "--no-ff", name); err != nil {
		// Abort any half-applied merge, then restore the prior checkout so
		// the tree is exactly as it was before the call.
		_, _ = e.git(ctx, "merge", "--abort")
		if prev != trunk {
			_ = e.Checkout(ctx, prev)
		}

		if strings.Contains(string(out), "CONFLICT") || strings.Contains(string(out), "Automatic merge failed") {
			return "", fmt.Errorf("merge %s into %s: %w", name, trunk, ErrMergeConflict)
		}
		return "", fmt.Errorf("merge %s into %s: %s: %w", name, trunk, firstLine(out), err)
	}

	out, err := e.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", fmt.Errorf("resolve merge commit: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (e *Executor) DeleteBranch(ctx context.Context, name string, force bool) error {
	current, err := e.CurrentBranch(ctx)
	if err != nil {
		return err
	}
	if current == name {
		return fmt.Errorf("delete branch %s: %w", name, ErrBranchCheckedOut)
	}

	flag := "-d"
	if force {
		flag = "-D"
	}
	if out, err := e.git(ctx, "branch", flag, name); err != nil {
		if strings.Contains(string(out), "not found") {
			return fmt.Errorf("delete branch %s: %w", name, ErrBranchNotFound)
		}
		return fmt.Errorf("delete branch %s: %s: %w", name, firstLine(out), err)
	}
	return nil
}

func (e *Executor) IsValidRepo(ctx context.Context) error {
	if _, err := e.git(ctx, "rev-parse", "--git-dir"); err != nil {
		return fmt.Errorf("%s: %w", e.repoDir, ErrNotGitRepo)
	}
	return nil
}

func (e *Executor) Init(ctx context.Context, trunk string) error {
	if out, err := e.git(ctx, "init", "-b", trunk); err != nil {
		return fmt.Errorf("init repository: %s: %w", firstLine(out), err)
	}
	return nil
}

// firstLine returns the first non-empty line of command output for error
// messages, keeping multi-line git output out of logs.
func firstLine(out []byte) string {
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
