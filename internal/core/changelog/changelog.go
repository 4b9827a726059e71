// Package changelog appends structured entries to the shared change-log file.
package changelog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const openAppendFlags = os.O_CREATE | os.O_WRONLY | os.O_APPEND

const fileHeader = "# Change Log\n\nAll notable infrastructure changes are recorded here.\n"

// Entry is one change-log record. Every commit made through the commit flow
// carries exactly one entry.
type Entry struct {
	Date     time.Time
	Author   string
	WorkType string // human-readable classification, e.g. "service / new"
	Text     string
}

// Writer appends entries to the change-log file inside the repository
// working tree. The pairing between an appended entry and its git commit is
// best-effort, not crash-atomic; both happen under the same repository lock.
type Writer struct {
	fs      afero.Fs
	root    string // repository root
	relPath string // change-log path relative to root
}

// NewWriter creates a Writer for the change-log at relPath under root.
func NewWriter(fs afero.Fs, root, relPath string) *Writer {
	return &Writer{fs: fs, root: root, relPath: relPath}
}

// RelPath returns the change-log path relative to the repository root, as
// passed to staging.
func (w *Writer) RelPath() string {
	return w.relPath
}

// Append writes an entry to the end of the change-log file, creating the
// file (with its header) when missing.
func (w *Writer) Append(entry Entry) error {
	path := filepath.Join(w.root, w.relPath)

	if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create change log dir: %w", err)
	}

	exists, err := afero.Exists(w.fs, path)
	if err != nil {
		return fmt.Errorf("stat change log: %w", err)
	}

	f, err := w.fs.OpenFile(path, openAppendFlags, 0o644)
	if err != nil {
		return fmt.Errorf("open change log: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	if !exists {
		b.WriteString(fileHeader)
	}
	b.WriteString(fmt.Sprintf("\n## %s — %s — %s\n\n%s\n",
		entry.Date.Format("2006-01-02"),
		entry.Author,
		entry.WorkType,
		strings.TrimSpace(entry.Text),
	))

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("append change log entry: %w", err)
	}
	return nil
}

// Ensure creates the change-log file with its header if it does not exist.
func (w *Writer) Ensure() error {
	path := filepath.Join(w.root, w.relPath)

	exists, err := afero.Exists(w.fs, path)
	if err != nil {
		return fmt.Errorf("stat change log: %w", err)
	}
	if exists {
		return nil
	}

	if err := w.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create change log dir: %w", err)
	}
	if err := afero.WriteFile(w.fs, path, []byte(fileHeader), 0o644); err != nil {
		return fmt.Errorf("seed change log: %w", err)
	}
	return nil
}
