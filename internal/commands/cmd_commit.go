package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/work"
	"github.com/urfave/cli/v3"
)

type CommitCmd struct {
	flags *Flags

	// Command-specific flags
	message string
	entry   string
}

// NewCommitCmd creates a new commit command
func NewCommitCmd(flags *Flags) *CommitCmd {
	return &CommitCmd{flags: flags}
}

// Register adds the commit command to the application
func (cmd *CommitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "commit",
		Usage:     "Commit work on a work item's branch",
		UsageText: "calcifer commit <id> -m <message> -e <entry> [path ...]",
		Description: `Appends the change log entry to the change log file, stages it together
with the given paths, and commits on the work item's branch. The commit
is recorded against the item and counts toward its completion criteria.

Paths may be literal files or glob patterns like 'manifests/**/*.yaml',
resolved relative to the repository root. Nothing outside the named
paths is ever staged.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "message",
				Aliases:     []string{"m"},
				Usage:       "commit message",
				Destination: &cmd.message,
			},
			&cli.StringFlag{
				Name:        "entry",
				Aliases:     []string{"e"},
				Usage:       "change log entry describing the change",
				Destination: &cmd.entry,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *CommitCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: calcifer commit <id> -m <message> -e <entry> [path ...]")
	}

	paths, err := cmd.expandPaths(c.Args().Slice()[1:])
	if err != nil {
		return err
	}

	commit, err := cmd.flags.Service.CommitWork(ctx, id, work.CommitOptions{
		Message:        cmd.message,
		ChangeLogEntry: cmd.entry,
		Paths:          paths,
	})
	switch {
	case errors.Is(err, workitem.ErrNotFound):
		return fmt.Errorf("work item %q not found", id)
	case errors.Is(err, work.ErrEmptyMessage):
		return fmt.Errorf("a commit message is required (-m)")
	case errors.Is(err, work.ErrEmptyChangeLogEntry):
		return fmt.Errorf("a change log entry is required (-e)")
	case err != nil:
		return fmt.Errorf("commit work: %w", err)
	}

	p := cmd.flags.Printer
	p.Success("Committed %s", shortSHA(commit.SHA))
	p.Field("Message", "%s", commit.Message)
	p.Field("Change log", "%s", commit.ChangeLogEntry)
	return nil
}

// expandPaths resolves glob patterns against the repository root. Literal
// paths pass through untouched so removals can still be staged.
func (cmd *CommitCmd) expandPaths(args []string) ([]string, error) {
	repoFS := os.DirFS(cmd.flags.Config.RepoDir)

	var paths []string
	for _, arg := range args {
		if !containsGlobMeta(arg) {
			paths = append(paths, arg)
			continue
		}

		matches, err := doublestar.Glob(repoFS, arg)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("pattern %q matched no files", arg)
		}
		paths = append(paths, matches...)
	}
	return paths, nil
}

func containsGlobMeta(s string) bool {
	for _, r := range s {
		switch r {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
