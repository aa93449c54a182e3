// Package ux styles terminal output.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	ColorAccent  = lipgloss.Color("#2CD7C7")
	ColorMuted   = lipgloss.Color("#6C7A89")
	ColorSuccess = lipgloss.Color("#2ECC71")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles holds the styles used by Printer.
var Styles = struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(ColorAccent),
	Label:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(ColorMuted),
	Success: lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning: lipgloss.NewStyle().Foreground(ColorWarning),
	Error:   lipgloss.NewStyle().Foreground(ColorError),
}

// Printer writes styled lines to one writer. Styling is dropped when the
// writer is not a terminal.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter creates a printer for w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plain: !IsTerminal(w)}
}

// Stdout is a printer for standard output.
func Stdout() *Printer {
	return NewPrinter(os.Stdout)
}

// Stderr is a printer for standard error.
func Stderr() *Printer {
	return NewPrinter(os.Stderr)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (p *Printer) render(style lipgloss.Style, text string) string {
	if p.plain {
		return text
	}
	return style.Render(text)
}

func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) Title(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Title, fmt.Sprintf(format, args...)))
}

func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.w, fmt.Sprintf(format, args...))
}

func (p *Printer) Muted(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Muted, fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Success, "✓ "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Warning, "warning: "+fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	fmt.Fprintln(p.w, p.render(Styles.Error, "error: "+fmt.Sprintf(format, args...)))
}

// Prefix prints msg after a bold, fixed width label.
func (p *Printer) Prefix(label, format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.render(Styles.Label, fmt.Sprintf("%-14s", label)), fmt.Sprintf(format, args...))
}
