package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/work"
	"github.com/urfave/cli/v3"
)

type CheckCmd struct {
	flags *Flags
}

// NewCheckCmd creates a new check command
func NewCheckCmd(flags *Flags) *CheckCmd {
	return &CheckCmd{flags: flags}
}

// Register adds the check command to the application
func (cmd *CheckCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "check",
		Usage:     "Toggle a checklist item",
		UsageText: "calcifer check <id> <item-number>",
		Description: `Toggles one checklist item by its number as shown in 'calcifer show'.
The first toggle on a planning item moves it to in_progress.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *CheckCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	numArg := c.Args().Get(1)
	if id == "" || numArg == "" {
		return fmt.Errorf("usage: calcifer check <id> <item-number>")
	}

	num, err := strconv.Atoi(numArg)
	if err != nil {
		return fmt.Errorf("item number %q is not a number", numArg)
	}

	item, err := cmd.flags.Service.ToggleChecklistItem(ctx, id, num-1)
	switch {
	case errors.Is(err, workitem.ErrNotFound):
		return fmt.Errorf("work item %q not found", id)
	case errors.Is(err, work.ErrIndexOutOfRange):
		return fmt.Errorf("item number %d is out of range", num)
	case err != nil:
		return fmt.Errorf("toggle checklist item: %w", err)
	}

	p := cmd.flags.Printer
	entry := item.Checklist[num-1]
	if entry.Done {
		p.Success("Checked %q", entry.Text)
	} else {
		p.Success("Unchecked %q", entry.Text)
	}
	done, total := item.ChecklistProgress()
	p.Muted("%d/%d complete, status %s", done, total, item.Status)
	return nil
}
