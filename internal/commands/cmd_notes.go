package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/urfave/cli/v3"
)

type NotesCmd struct {
	flags *Flags
}

// NewNotesCmd creates a new notes command
func NewNotesCmd(flags *Flags) *NotesCmd {
	return &NotesCmd{flags: flags}
}

// Register adds the notes command to the application
func (cmd *NotesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "notes",
		Usage:     "Set the notes on a work item",
		UsageText: "calcifer notes <id> [text]",
		Description: `Replaces the notes on a work item. When text is omitted, notes are read
from stdin. Notes longer than ` + fmt.Sprint(workitem.NotesLimit) + ` characters are truncated.

Notes are a completion criterion: an item cannot complete with empty notes.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *NotesCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: calcifer notes <id> [text]")
	}

	text := strings.Join(c.Args().Slice()[1:], " ")
	if text == "" {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimSpace(string(raw))
	}

	item, err := cmd.flags.Service.UpdateNotes(ctx, id, text)
	if errors.Is(err, workitem.ErrNotFound) {
		return fmt.Errorf("work item %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("update notes: %w", err)
	}

	p := cmd.flags.Printer
	p.Success("Updated notes on %s", item.Title)
	if len(text) > len(item.Notes) {
		p.Warn("Notes truncated to %d characters", workitem.NotesLimit)
	}
	return nil
}
