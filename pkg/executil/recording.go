package executil

import (
	"context"
	"strings"
	"sync"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir  string
	Cmd  string
	Args []string
}

// RecordingExecutor captures commands for testing. Outputs and Errors are
// keyed by the full command line ("git rev-parse HEAD"); a bare command name
// key acts as a fallback for any invocation of that command.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	Outputs map[string][]byte
	Errors  map[string]error
}

// Run records the command and returns configured output/error.
func (e *RecordingExecutor) Run(ctx context.Context, cmd string, args ...string) ([]byte, error) {
	return e.record("", cmd, args...)
}

// RunDir records the command with directory and returns configured output/error.
func (e *RecordingExecutor) RunDir(ctx context.Context, dir, cmd string, args ...string) ([]byte, error) {
	return e.record(dir, cmd, args...)
}

func (e *RecordingExecutor) record(dir, cmd string, args ...string) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.Commands = append(e.Commands, RecordedCommand{
		Dir:  dir,
		Cmd:  cmd,
		Args: args,
	})

	full := cmd
	if len(args) > 0 {
		full = cmd + " " + strings.Join(args, " ")
	}

	for _, key := range []string{full, cmd} {
		if out, ok := e.Outputs[key]; ok {
			return out, e.Errors[key]
		}
		if err, ok := e.Errors[key]; ok {
			return nil, err
		}
	}
	return nil, nil
}

// CommandLines returns each recorded invocation as one string.
func (e *RecordingExecutor) CommandLines() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	lines := make([]string, 0, len(e.Commands))
	for _, c := range e.Commands {
		line := c.Cmd
		if len(c.Args) > 0 {
			line += " " + strings.Join(c.Args, " ")
		}
		lines = append(lines, line)
	}
	return lines
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}

var _ Executor = (*RecordingExecutor)(nil)
