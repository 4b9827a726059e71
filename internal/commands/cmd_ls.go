package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/calciferhq/calcifer/internal/core/workitem"
	"github.com/calciferhq/calcifer/pkg/iojson"
	"github.com/sahilm/fuzzy"
	"github.com/urfave/cli/v3"
)

type LsCmd struct {
	flags *Flags

	// flags
	all        bool
	status     string
	search     string
	jsonOutput bool
}

// NewLsCmd creates a new ls command
func NewLsCmd(flags *Flags) *LsCmd {
	return &LsCmd{flags: flags}
}

// Register adds the ls command to the application
func (cmd *LsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "ls",
		Usage:     "List work items",
		UsageText: "calcifer ls [--all] [--status <status>] [--search <term>] [--json]",
		Description: `Displays a table of work items with their type, status, checklist
progress, and branch.

By default only active items are shown. Use --all to include completed
items, --status to filter by a single status, and --search for fuzzy
matching on titles.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "all",
				Aliases:     []string{"a"},
				Usage:       "include completed items",
				Destination: &cmd.all,
			},
			&cli.StringFlag{
				Name:        "status",
				Usage:       "filter by status (planning, in_progress, complete)",
				Destination: &cmd.status,
			},
			&cli.StringFlag{
				Name:        "search",
				Aliases:     []string{"s"},
				Usage:       "fuzzy search on titles",
				Destination: &cmd.search,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output as JSON lines",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *LsCmd) run(ctx context.Context, c *cli.Command) error {
	filter := workitem.ListFilter{}
	if cmd.status != "" {
		filter.Status = workitem.Status(cmd.status)
	}

	items, err := cmd.flags.Service.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("list work items: %w", err)
	}

	if !cmd.all && cmd.status == "" {
		items = activeOnly(items)
	}
	if cmd.search != "" {
		items = fuzzyFilter(items, cmd.search)
	}

	if len(items) == 0 {
		if !cmd.jsonOutput {
			fmt.Fprintf(os.Stderr, "No work items found\n")
		}
		return nil
	}

	out := c.Root().Writer

	if cmd.jsonOutput {
		for _, item := range items {
			if err := iojson.WriteLine(out, buildItemInfo(item)); err != nil {
				return fmt.Errorf("encode work item: %w", err)
			}
		}
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tTYPE\tSTATUS\tCHECKLIST\tBRANCH")
	for _, item := range items {
		done, total := item.ChecklistProgress()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			item.ID, item.Title, item.FullType(), item.Status, done, total, item.BranchName)
	}
	_ = w.Flush()

	// Best effort; the table is still useful when git is unreachable.
	if status, err := cmd.flags.Service.Status(ctx); err == nil {
		if status.WorkingDirty {
			cmd.flags.Printer.Warn("On %s, working tree has uncommitted changes", status.CurrentBranch)
		} else {
			cmd.flags.Printer.Muted("On %s, working tree clean", status.CurrentBranch)
		}
	}

	return nil
}

func activeOnly(items []workitem.WorkItem) []workitem.WorkItem {
	var out []workitem.WorkItem
	for _, item := range items {
		if item.Active() {
			out = append(out, item)
		}
	}
	return out
}

type itemTitles []workitem.WorkItem

func (t itemTitles) String(i int) string { return t[i].Title }
func (t itemTitles) Len() int            { return len(t) }

func fuzzyFilter(items []workitem.WorkItem, term string) []workitem.WorkItem {
	matches := fuzzy.FindFrom(term, itemTitles(items))
	out := make([]workitem.WorkItem, 0, len(matches))
	for _, m := range matches {
		out = append(out, items[m.Index])
	}
	return out
}

// itemInfo is the JSON output format for calcifer ls --json.
type itemInfo struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Category      string     `json:"category"`
	ActionType    string     `json:"action_type"`
	Status        string     `json:"status"`
	Branch        string     `json:"branch"`
	ChecklistDone int        `json:"checklist_done"`
	ChecklistAll  int        `json:"checklist_total"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func buildItemInfo(item workitem.WorkItem) itemInfo {
	done, total := item.ChecklistProgress()
	return itemInfo{
		ID:            item.ID,
		Title:         item.Title,
		Category:      string(item.Category),
		ActionType:    string(item.ActionType),
		Status:        string(item.Status),
		Branch:        item.BranchName,
		ChecklistDone: done,
		ChecklistAll:  total,
		CreatedAt:     item.CreatedAt,
		CompletedAt:   item.CompletedAt,
	}
}
