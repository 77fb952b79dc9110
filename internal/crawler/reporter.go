package crawler

import (
	"io"
	"sync"

	"github.com/fatih/color"
)

// ConsoleReporter prints crawl events as coloured lines
type ConsoleReporter struct {
	mu      sync.Mutex
	out     io.Writer
	found   *color.Color
	invalid *color.Color
	failed  *color.Color
}

// NewConsoleReporter creates a reporter writing to out.
// Colour follows color.NoColor unless noColor forces it off.
func NewConsoleReporter(out io.Writer, noColor bool) *ConsoleReporter {
	r := &ConsoleReporter{
		out:     out,
		found:   color.New(color.FgGreen),
		invalid: color.New(color.FgYellow),
		failed:  color.New(color.FgRed, color.Bold),
	}
	if noColor {
		r.found.DisableColor()
		r.invalid.DisableColor()
		r.failed.DisableColor()
	}
	return r
}

// Discovered prints "parent -> child (n)"
func (r *ConsoleReporter) Discovered(parentKey, childURL string, branching int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.found.Fprintf(r.out, "[FOUND] %s -> %s (%d)\n", parentKey, childURL, branching)
}

// Invalid prints a discarded page or link
func (r *ConsoleReporter) Invalid(target, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalid.Fprintf(r.out, "[INVALID] %s: %s\n", target, reason)
}

// Failed prints a page whose content could not be read
func (r *ConsoleReporter) Failed(target string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed.Fprintf(r.out, "[ERROR] %s: %v\n", target, err)
}

// nopReporter discards every event
type nopReporter struct{}

func (nopReporter) Discovered(string, string, int) {}
func (nopReporter) Invalid(string, string)         {}
func (nopReporter) Failed(string, error)           {}

// levelReporter forwards events allowed by the configured verbosity
type levelReporter struct {
	next  Reporter
	level Verbosity
}

func (r levelReporter) Discovered(parentKey, childURL string, branching int) {
	if r.level >= VerbositySuccesses {
		r.next.Discovered(parentKey, childURL, branching)
	}
}

func (r levelReporter) Invalid(target, reason string) {
	if r.level >= VerbosityAll {
		r.next.Invalid(target, reason)
	}
}

// Content read failures are errors, shown whenever logging is on
func (r levelReporter) Failed(target string, err error) {
	if r.level >= VerbositySuccesses {
		r.next.Failed(target, err)
	}
}

// withVerbosity wraps r so that only events allowed by level get through
func withVerbosity(r Reporter, level Verbosity) Reporter {
	if r == nil || level == VerbosityNone {
		return nopReporter{}
	}
	return levelReporter{next: r, level: level}
}
