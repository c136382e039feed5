// Package report provides monitor.Reporter implementations: terminal,
// JSONL, in-memory history and plots, webhooks, audit log and SQLite.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// Console prints one line per step.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	styles  *Styles
	verbose bool
}

// NewConsole writes to w. verbose adds the membership degrees.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, styles: NewStyles(w), verbose: verbose}
}

// Report implements monitor.Reporter.
func (c *Console) Report(s monitor.Step) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, FormatStep(s, c.styles, c.verbose))
}

// FormatStep renders a step as one line:
//
//	#3    p=0.9276  Critical  ALARM  Activity=Jumping Proximity=NearHazard ...
func FormatStep(s monitor.Step, styles *Styles, verbose bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%-4d p=%.4f  %s", s.Index+1, s.Probability, styles.Label(s.Decision.Label, 9))
	if s.Alarm {
		b.WriteString(" " + styles.Alarm())
	}
	b.WriteString("  " + s.Evidence.String())
	if verbose {
		parts := make([]string, 0, len(s.Decision.Memberships))
		for _, m := range s.Decision.Memberships {
			parts = append(parts, fmt.Sprintf("%s=%.3f", m.Label, m.Degree))
		}
		b.WriteString("  " + styles.Muted("["+strings.Join(parts, " ")+"]"))
	}
	return b.String()
}
