package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
)

type RmCmd struct {
	flags *Flags

	// Command-specific flags
	force bool
}

// NewRmCmd creates a new rm command
func NewRmCmd(flags *Flags) *RmCmd {
	return &RmCmd{flags: flags}
}

// Register adds the rm command to the application
func (cmd *RmCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rm",
		Usage:     "Delete a work item and its branch",
		UsageText: "calcifer rm [--force] <id>",
		Description: `Deletes a work item, its recorded commits, and its git branch. Unmerged
work on the branch is lost. A confirmation prompt guards the deletion
unless --force is given.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "force",
				Aliases:     []string{"f"},
				Usage:       "skip the confirmation prompt",
				Destination: &cmd.force,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RmCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: calcifer rm [--force] <id>")
	}

	item, err := cmd.flags.Service.Get(ctx, id)
	if errors.Is(err, workitem.ErrNotFound) {
		return fmt.Errorf("work item %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("load work item: %w", err)
	}

	if !cmd.force {
		confirmed := false
		prompt := huh.NewConfirm().
			Title(fmt.Sprintf("Delete %q and branch %s?", item.Title, item.BranchName)).
			Description("Unmerged commits on the branch will be lost.").
			Value(&confirmed)
		if err := prompt.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("confirm: %w", err)
		}
		if !confirmed {
			return nil
		}
	}

	if err := cmd.flags.Service.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete work item: %w", err)
	}

	cmd.flags.Printer.Success("Deleted %s", item.Title)
	return nil
}
