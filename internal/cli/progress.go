package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ditaref/ditaref/internal/ux"
)

type progressReporter struct {
	out     io.Writer
	enabled bool
	label   string
	start   time.Time
	spinner int
	lastLen int
}

// newProgressReporter draws a spinner on stderr when it is a terminal.
func newProgressReporter(label string, quiet bool) *progressReporter {
	return &progressReporter{
		out:     os.Stderr,
		enabled: !quiet && ux.IsTerminal(os.Stderr),
		label:   label,
		start:   time.Now(),
	}
}

// Update matches the Progress hook of audit.Options.
func (r *progressReporter) Update(key string, done, total int) {
	if !r.enabled {
		return
	}
	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	key = strings.TrimSpace(key)
	if len(key) > 88 {
		key = "..." + key[len(key)-85:]
	}

	status := fmt.Sprintf("%s %s %d checking %s", frame, r.label, done+1, key)
	if total > 0 {
		status = fmt.Sprintf("%s %s %d/%d checking %s", frame, r.label, done+1, total, key)
	}
	r.printStatus(status)
}

func (r *progressReporter) Done(count int) {
	if !r.enabled {
		return
	}
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("%s complete (%d documents in %s)", r.label, count, elapsed))
	fmt.Fprintln(r.out)
}

func (r *progressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(r.out, "\r%s", status)
}
