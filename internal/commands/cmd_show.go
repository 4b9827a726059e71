package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/urfave/cli/v3"
)

type ShowCmd struct {
	flags *Flags
}

// NewShowCmd creates a new show command
func NewShowCmd(flags *Flags) *ShowCmd {
	return &ShowCmd{flags: flags}
}

// Register adds the show command to the application
func (cmd *ShowCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "show",
		Usage:     "Show the full detail of one work item",
		UsageText: "calcifer show <id>",
		Description: `Displays everything known about a work item: checklist state, notes,
recorded commits, live branch commits, and whether the branch has been
merged into trunk. The merged flag is read from git, not from storage.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *ShowCmd) run(ctx context.Context, c *cli.Command) error {
	id := c.Args().First()
	if id == "" {
		return fmt.Errorf("usage: calcifer show <id>")
	}

	p := cmd.flags.Printer

	detail, err := cmd.flags.Service.Detail(ctx, id)
	if errors.Is(err, workitem.ErrNotFound) {
		return fmt.Errorf("work item %q not found", id)
	}
	if err != nil {
		return fmt.Errorf("load work item: %w", err)
	}

	item := detail.Item

	p.Title("%s", item.Title)
	p.Field("ID", "%s", item.ID)
	p.Field("Type", "%s", item.FullType())
	p.Field("Status", "%s", item.Status)
	p.Field("Branch", "%s", item.BranchName)
	p.Field("Merged", "%t", detail.Merged)
	p.Field("Created", "%s", item.CreatedAt.Format("2006-01-02 15:04"))
	if item.CompletedAt != nil {
		p.Field("Completed", "%s", item.CompletedAt.Format("2006-01-02 15:04"))
	}
	if item.Description != "" {
		p.Blank()
		p.Line("%s", item.Description)
	}

	p.Blank()
	done, total := item.ChecklistProgress()
	p.Title("Checklist (%d/%d)", done, total)
	for i, entry := range item.Checklist {
		mark := "[ ]"
		if entry.Done {
			mark = "[x]"
		}
		p.Line("  %d. %s %s", i+1, mark, entry.Text)
	}

	if item.Notes != "" {
		p.Blank()
		p.Title("Notes")
		p.Line("%s", item.Notes)
	}

	if len(detail.Commits) > 0 {
		p.Blank()
		p.Title("Recorded commits")
		for _, commit := range detail.Commits {
			p.Line("  %s  %s", shortSHA(commit.SHA), commit.Message)
			p.Muted("          %s", commit.ChangeLogEntry)
		}
	}

	if len(detail.BranchCommits) > 0 {
		p.Blank()
		p.Title("Branch commits not on trunk")
		for _, commit := range detail.BranchCommits {
			p.Line("  %s  %s", shortSHA(commit.SHA), commit.Subject)
		}
	}

	p.Blank()
	if detail.WorkingDirty {
		p.Warn("Working tree on %s has uncommitted changes", detail.CurrentBranch)
	} else {
		p.Muted("On %s, working tree clean", detail.CurrentBranch)
	}

	return nil
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
