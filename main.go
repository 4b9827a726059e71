package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"

	"github.com/calciferhq/calcifer/internal/commands"
	"github.com/calciferhq/calcifer/internal/core/changelog"
	"github.com/calciferhq/calcifer/internal/core/config"
	"github.com/calciferhq/calcifer/internal/core/eventbus"
	"github.com/calciferhq/calcifer/internal/core/git"
	"github.com/calciferhq/calcifer/internal/core/logging"
	"github.com/calciferhq/calcifer/internal/data/db"
	"github.com/calciferhq/calcifer/internal/data/stores"
	"github.com/calciferhq/calcifer/internal/printer"
	"github.com/calciferhq/calcifer/internal/work"
	"github.com/calciferhq/calcifer/pkg/executil"
	"github.com/calciferhq/calcifer/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var (
		logCloser func()
		database  *db.DB
		busCancel context.CancelFunc
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "calcifer",
		Usage:     "Track infrastructure work items bound to git branches",
		UsageText: "calcifer [global options] command [command options]",
		Description: `Calcifer binds every unit of infrastructure work to its own git branch
and gates completion on evidence: a finished checklist, written notes, a
documented commit, and a branch that merges cleanly into trunk.

Run 'calcifer new' to start a work item on a fresh branch, 'calcifer
commit' to record documented work on it, and 'calcifer complete' to
validate and merge it.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("CALCIFER_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/calcifer.log)",
				Sources:     cli.EnvVars("CALCIFER_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("CALCIFER_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("CALCIFER_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// Always log to a file; CLI output stays clean for the printer.
			logFile := flags.LogFile
			if logFile == "" {
				logFile = filepath.Join(flags.DataDir, "calcifer.log")
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			dbOpts := db.OpenOptions{
				MaxOpenConns: cfg.Database.MaxOpenConns,
				MaxIdleConns: cfg.Database.MaxIdleConns,
				BusyTimeout:  cfg.Database.BusyTimeout,
			}
			database, err = db.Open(cfg.DataDir, dbOpts)
			if err != nil {
				return ctx, fmt.Errorf("open database: %w", err)
			}

			itemStore := stores.NewWorkItemStore(database)
			commitStore := stores.NewCommitStore(database)

			var (
				exec    = &executil.RealExecutor{}
				gitExec = git.NewExecutor(cfg.GitPath, cfg.RepoDir, exec)
				clog    = changelog.NewWriter(afero.NewOsFs(), cfg.RepoDir, cfg.ChangeLog)
			)

			bus := eventbus.New(64)
			busCtx, cancel := context.WithCancel(context.Background())
			busCancel = cancel
			eventbus.RegisterDebugLogger(bus, logging.Component("eventbus"))
			go bus.Start(busCtx)

			flags.Service = work.NewWorkService(itemStore, commitStore, gitExec, clog, cfg, bus, logging.Component("work"))
			flags.Printer = printer.New(os.Stdout)

			// Init has to work before the repo exists; everything else
			// expects a valid repository and a sane working tree.
			if c.Args().First() != "init" {
				if err := gitExec.IsValidRepo(ctx); err != nil {
					return ctx, fmt.Errorf("%s: %w (run 'calcifer init')", cfg.RepoDir, err)
				}
				if err := flags.Service.Reconcile(ctx); err != nil {
					log.Warn().Err(err).Msg("startup reconcile failed")
				}
			}

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if busCancel != nil {
				busCancel()
			}

			if database != nil {
				if err := database.Close(); err != nil {
					log.Error().Err(err).Msg("failed to close database")
					return err
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewInitCmd(flags).Register(app)
	app = commands.NewNewCmd(flags).Register(app)
	app = commands.NewLsCmd(flags).Register(app)
	app = commands.NewShowCmd(flags).Register(app)
	app = commands.NewCheckCmd(flags).Register(app)
	app = commands.NewNotesCmd(flags).Register(app)
	app = commands.NewCommitCmd(flags).Register(app)
	app = commands.NewCompleteCmd(flags).Register(app)
	app = commands.NewRmCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
