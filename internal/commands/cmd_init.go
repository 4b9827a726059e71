package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

type InitCmd struct {
	flags *Flags
}

// NewInitCmd creates a new init command
func NewInitCmd(flags *Flags) *InitCmd {
	return &InitCmd{flags: flags}
}

// Register adds the init command to the application
func (cmd *InitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "init",
		Usage:     "Initialize the managed repository",
		UsageText: "calcifer init",
		Description: `Initializes the configured repository directory: creates a git repository
on the configured trunk branch when one does not exist, and seeds the
change log file. Safe to run on an already initialized repository.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *InitCmd) run(ctx context.Context, c *cli.Command) error {
	if err := cmd.flags.Service.InitRepo(ctx); err != nil {
		return fmt.Errorf("init repository: %w", err)
	}

	p := cmd.flags.Printer
	p.Success("Repository ready at %s", cmd.flags.Config.RepoDir)
	p.Field("Trunk", "%s", cmd.flags.Config.Trunk)
	p.Field("Change log", "%s", cmd.flags.Config.ChangeLog)
	return nil
}
