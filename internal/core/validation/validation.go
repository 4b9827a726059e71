// Package validation evaluates work items against completion criteria.
package validation

import (
	"fmt"
	"strings"

	"github.com/calciferhq/calcifer/internal/core/workitem"
)

// Evidence is the live repository and persistence state a completion
// decision is made against. Merged comes from a synchronous ancestry check,
// never from the stored cache.
type Evidence struct {
	Commits   []workitem.Commit // DB commits recorded for the item
	Merged    bool              // all branch commits reachable from trunk
	Mergeable bool              // branch merges into trunk without conflict
}

// Result is a completion verdict. Approved is true only when every criterion
// holds; there is no partial approval. Reasons lists every unmet criterion,
// in evaluation order, so callers can show all of them at once.
type Result struct {
	Approved bool
	Reasons  []string
}

// Engine checks the completion policy: no completion without a finished
// checklist, notes, a documented commit, and a mergeable (or merged) branch.
type Engine struct{}

// NewEngine creates a validation engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs every completion criterion against the item and evidence.
// Criteria are evaluated independently, never short-circuited.
func (e *Engine) Evaluate(item workitem.WorkItem, ev Evidence) Result {
	var reasons []string

	if done, total := item.ChecklistProgress(); done < total {
		reasons = append(reasons, fmt.Sprintf("%d of %d checklist item(s) not completed", total-done, total))
	}

	if strings.TrimSpace(item.Notes) == "" {
		reasons = append(reasons, "notes required: document the work before completing")
	}

	if !hasDocumentedCommit(ev.Commits) {
		reasons = append(reasons, "at least one commit with a change log entry is required")
	}

	if !ev.Merged && !ev.Mergeable {
		reasons = append(reasons, "branch does not merge cleanly into trunk: resolve conflicts first")
	}

	return Result{Approved: len(reasons) == 0, Reasons: reasons}
}

func hasDocumentedCommit(commits []workitem.Commit) bool {
	for _, c := range commits {
		if strings.TrimSpace(c.ChangeLogEntry) != "" {
			return true
		}
	}
	return false
}
