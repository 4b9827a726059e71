package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/calciferhq/calcifer/internal/core/git"
	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/work"
	"github.com/urfave/cli/v3"
)

type CompleteCmd struct {
	flags *Flags
}

// NewCompleteCmd creates a new complete command
func NewCompleteCmd(flags *Flags) *CompleteCmd {
	return &CompleteCmd{flags: flags}
}

// Register adds the complete command to the application
func (cmd *CompleteCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "complete",
		Usage:     "Validate a work item and merge its branch into trunk",
		UsageText: "calcifer complete <id>",
		Description: `Checks every completion criterion: all checklist items done, notes
present, at least one commit with a change log entry, and a branch that
merges cleanly. When every criterion holds, the branch is merged into
trunk and the item becomes complete.

A rejection lists every unmet criterion and changes nothing. There is no
force flag; completion is earned, not declared.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *CompleteCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: calcifer complete <id>")
	}

	p := cmd.flags.Printer

	item, err := cmd.flags.Service.MergeAndComplete(ctx, id)

	var verr *work.ValidationError
	switch {
	case errors.As(err, &verr):
		p.Error("Cannot complete yet:")
		for _, reason := range verr.Reasons {
			p.Reason(reason)
		}
		return fmt.Errorf("%d completion criterion(s) unmet", len(verr.Reasons))
	case errors.Is(err, git.ErrMergeConflict):
		p.Error("Merge conflict with %s", cmd.flags.Config.Trunk)
		p.Muted("The merge was aborted; resolve the conflict manually and retry")
		return err
	case errors.Is(err, workitem.ErrNotFound):
		return fmt.Errorf("work item %q not found", id)
	case errors.Is(err, work.ErrItemComplete):
		return fmt.Errorf("work item is already complete")
	case err != nil:
		return fmt.Errorf("complete work item: %w", err)
	}

	p.Success("Completed %s", item.Title)
	p.Field("Branch", "%s merged into %s", item.BranchName, cmd.flags.Config.Trunk)
	return nil
}
