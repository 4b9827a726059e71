// Package printer renders user-facing CLI output. Structured logs go to
// zerolog; anything meant for a human on the terminal goes through here.
package printer

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("45")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(14)
)

// Printer writes styled output to a terminal.
type Printer struct {
	out io.Writer
}

// New creates a Printer writing to out.
func New(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Success prints a green checkmarked line.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.out, successStyle.Render("✓")+" "+fmt.Sprintf(format, args...))
}

// Error prints a red cross line.
func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.out, errorStyle.Render("✗")+" "+fmt.Sprintf(format, args...))
}

// Warn prints a yellow warning line.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.out, warnStyle.Render("!")+" "+fmt.Sprintf(format, args...))
}

// Title prints a bold section heading.
func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.out, titleStyle.Render(fmt.Sprintf(format, args...)))
}

// Muted prints a dimmed line.
func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.out, mutedStyle.Render(fmt.Sprintf(format, args...)))
}

// Line prints an unstyled line.
func (p *Printer) Line(format string, args ...any) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Blank prints an empty line.
func (p *Printer) Blank() {
	fmt.Fprintln(p.out)
}

// Field prints an aligned key/value pair.
func (p *Printer) Field(key, format string, args ...any) {
	fmt.Fprintln(p.out, keyStyle.Render(key)+" "+fmt.Sprintf(format, args...))
}

// Reason prints one indented rejection reason.
func (p *Printer) Reason(text string) {
	fmt.Fprintln(p.out, "  "+errorStyle.Render("-")+" "+text)
}
