package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/internal/work"
	"github.com/charmbracelet/huh"
	"github.com/urfave/cli/v3"
)

type NewCmd struct {
	flags *Flags

	// Command-specific flags
	title       string
	category    string
	action      string
	description string
}

// NewNewCmd creates a new new command
func NewNewCmd(flags *Flags) *NewCmd {
	return &NewCmd{flags: flags}
}

// Register adds the new command to the application
func (cmd *NewCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "new",
		Usage:     "Create a work item on its own git branch",
		UsageText: "calcifer new [options]",
		Description: `Creates a work item bound to a fresh git branch and checks the branch out.

The branch name is derived from the category, action, and title, e.g.
service/new/staging-cluster-20260826120000. A checklist template for the
category and action combination is attached to the item.

When --title is omitted, an interactive form prompts for input.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "title",
				Aliases:     []string{"t"},
				Usage:       "work item title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "category",
				Aliases:     []string{"c"},
				Usage:       "category (platform_feature, integration, service, documentation)",
				Value:       string(workitem.CategoryService),
				Destination: &cmd.category,
			},
			&cli.StringFlag{
				Name:        "action",
				Aliases:     []string{"a"},
				Usage:       "action type (new, change, fix, deprecate)",
				Value:       string(workitem.ActionNew),
				Destination: &cmd.action,
			},
			&cli.StringFlag{
				Name:        "description",
				Aliases:     []string{"d"},
				Usage:       "longer description of the work",
				Destination: &cmd.description,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *NewCmd) run(ctx context.Context, c *cli.Command) error {
	p := cmd.flags.Printer

	if cmd.title == "" {
		if err := cmd.runForm(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				return nil
			}
			return fmt.Errorf("form: %w", err)
		}
	}

	category, err := workitem.ParseCategory(cmd.category)
	if err != nil {
		return err
	}
	action, err := workitem.ParseActionType(cmd.action)
	if err != nil {
		return err
	}

	item, err := cmd.flags.Service.Create(ctx, work.NewItemOptions{
		Title:       cmd.title,
		Category:    category,
		ActionType:  action,
		Description: cmd.description,
	})
	if err != nil {
		return fmt.Errorf("create work item: %w", err)
	}

	p.Success("Created %s (%s)", item.Title, item.ID)
	p.Field("Branch", "%s", item.BranchName)
	p.Field("Checklist", "%d item(s)", len(item.Checklist))
	return nil
}

func (cmd *NewCmd) runForm() error {
	categoryOpts := make([]huh.Option[string], 0, len(workitem.Categories()))
	for _, c := range workitem.Categories() {
		categoryOpts = append(categoryOpts, huh.NewOption(string(c), string(c)))
	}
	actionOpts := make([]huh.Option[string], 0, len(workitem.ActionTypes()))
	for _, a := range workitem.ActionTypes() {
		actionOpts = append(actionOpts, huh.NewOption(string(a), string(a)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Description("What is this work item about?").
				Validate(validateTitle).
				Value(&cmd.title),
			huh.NewSelect[string]().
				Title("Category").
				Options(categoryOpts...).
				Value(&cmd.category),
			huh.NewSelect[string]().
				Title("Action").
				Options(actionOpts...).
				Value(&cmd.action),
			huh.NewText().
				Title("Description").
				Description("Optional longer description").
				Value(&cmd.description),
		),
	).Run()
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}
