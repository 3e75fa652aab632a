// Package progress implements a terminal step-counter/spinner for
// interactive CLI builds, adapted from the teacher's progress.Bar: a
// human-facing indicator kept deliberately separate from structured
// logging (pkg/buildlog) so piping build output to a file never captures
// spinner control characters.
package progress

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/forgebuild/engine/pkg/events"
)

var frames = []string{"|", "/", "-", "\\"}

// Bar is a simple terminal progress indicator: a spinner plus a
// "step N/total: message" line, redrawn in place on each Tick.
type Bar struct {
	mu       sync.Mutex
	out      io.Writer
	total    int
	step     int
	message  string
	frame    int
	lastDraw time.Time
	silent   bool
}

// New returns a Bar that writes to out. If out is nil (or silent is true),
// all operations become no-ops — used for non-interactive runs (CI, piped
// output) where a spinner would just produce noise.
func New(out io.Writer, total int) *Bar {
	return &Bar{out: out, total: total, silent: out == nil}
}

// Step advances to step n (1-indexed) with the given status message and
// redraws.
func (b *Bar) Step(n int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.step = n
	b.message = message
	b.draw()
}

// Tick advances the spinner frame without changing step/message, for use
// during a long-running single step.
func (b *Bar) Tick() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = (b.frame + 1) % len(frames)
	b.draw()
}

// Done clears the progress line, leaving the terminal clean for whatever
// comes next.
func (b *Bar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.silent {
		return
	}
	fmt.Fprint(b.out, "\r\033[K")
}

func (b *Bar) draw() {
	if b.silent {
		return
	}
	fmt.Fprintf(b.out, "\r\033[K%s [%d/%d] %s", frames[b.frame], b.step, b.total, b.message)
	b.lastDraw = time.Now()
}

// ConsoleReporter drains a build event channel onto a terminal, one line
// per project/task transition, in place of the teacher's interactive
// deployment progress printer (which drove its Bar off SSE events rather
// than the bus's in-process channel).
type ConsoleReporter struct {
	out io.Writer
	n   int
}

// NewConsoleReporter returns a reporter that writes human-readable lines to
// out as events arrive.
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

// Run consumes ch until it is closed, printing one line per event. It is
// meant to be run in its own goroutine for the duration of a build.
func (r *ConsoleReporter) Run(ch <-chan events.Event) {
	for ev := range ch {
		r.n++
		switch {
		case ev.Task != "":
			fmt.Fprintf(r.out, "[%s] %s: %s (%s)\n", ev.Project, ev.Task, ev.Status, ev.Level)
		case ev.Project != "":
			fmt.Fprintf(r.out, "[%s] %s (%s)\n", ev.Project, ev.Name, ev.Level)
		default:
			fmt.Fprintf(r.out, "%s (%s)\n", ev.Name, ev.Level)
		}
	}
}
