// Package tui is a live terminal view of a monitoring run.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/report"
)

// StepMsg carries one monitoring step into the program.
type StepMsg monitor.Step

// DoneMsg reports that the loop has stopped.
type DoneMsg struct {
	Summary monitor.Summary
	Err     error
}

// Options configures the view.
type Options struct {
	Source     string
	Threshold  float64
	History    int       // sparkline length
	ExitOnDone bool      // quit when the loop ends instead of waiting for q
	Output     io.Writer // color profile source; defaults to stdout
}

// Model is the bubbletea model.
type Model struct {
	opts    Options
	styles  *report.Styles
	title   lipgloss.Style
	muted   lipgloss.Style
	last    *monitor.Step
	probs   []float64
	steps   int
	alarms  int
	done    *DoneMsg
	width   int
	quitted bool
}

// NewModel builds an empty view.
func NewModel(opts Options) Model {
	if opts.History <= 0 {
		opts.History = 40
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	r := lipgloss.NewRenderer(opts.Output)
	return Model{
		opts:   opts,
		styles: report.NewStyles(opts.Output),
		title:  r.NewStyle().Bold(true).Foreground(report.ColorSafe),
		muted:  r.NewStyle().Faint(true),
		width:  80,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitted = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case StepMsg:
		s := monitor.Step(msg)
		m.last = &s
		m.steps++
		if s.Alarm {
			m.alarms++
		}
		m.probs = append(m.probs, s.Probability)
		if len(m.probs) > m.opts.History {
			m.probs = m.probs[len(m.probs)-m.opts.History:]
		}
	case DoneMsg:
		m.done = &msg
		if m.opts.ExitOnDone {
			return m, tea.Quit
		}
	}
	return m, nil
}

// Quitted reports whether the user asked to leave.
func (m Model) Quitted() bool { return m.quitted }

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n",
		m.title.Render("hazardwatch"),
		m.muted.Render(fmt.Sprintf("source %s · steps %d · alarms %d", m.opts.Source, m.steps, m.alarms)))

	if m.last == nil {
		b.WriteString("waiting for the first observation...\n")
	} else {
		s := m.last
		fmt.Fprintf(&b, "step %d  %s", s.Index+1, m.styles.Label(s.Decision.Label, 0))
		if s.Alarm {
			b.WriteString("  " + m.styles.Alarm())
		}
		fmt.Fprintf(&b, "\n\nprobability %.4f  %s\n", s.Probability, bar(s.Probability, m.barWidth()))
		if m.opts.Threshold > 0 {
			fmt.Fprintf(&b, "%s\n", m.muted.Render(fmt.Sprintf("alarm above %.2f", m.opts.Threshold)))
		}
		b.WriteString("\n")
		for _, mem := range s.Decision.Memberships {
			fmt.Fprintf(&b, "  %-9s %.3f %s\n", mem.Label, mem.Degree, bar(mem.Degree, m.barWidth()/2))
		}
		fmt.Fprintf(&b, "\n  %s\n", s.Evidence)
		fmt.Fprintf(&b, "\ntrend  %s\n", Sparkline(m.probs))
	}

	if m.done != nil {
		b.WriteString("\n")
		if m.done.Err != nil {
			fmt.Fprintf(&b, "stopped: %v\n", m.done.Err)
		} else {
			fmt.Fprintf(&b, "finished after %d steps, max probability %.4f\n", m.done.Summary.Steps, m.done.Summary.MaxProbability)
		}
	}
	b.WriteString(m.muted.Render("\nq to quit") + "\n")
	return b.String()
}

func (m Model) barWidth() int {
	w := m.width - 30
	if w < 10 {
		w = 10
	}
	if w > 50 {
		w = 50
	}
	return w
}

func bar(v float64, width int) string {
	n := int(fuzzy.Clamp(v)*float64(width) + 0.5)
	return strings.Repeat("█", n) + strings.Repeat("·", width-n)
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders probabilities in [0,1] as block characters.
func Sparkline(values []float64) string {
	out := make([]rune, len(values))
	for i, v := range values {
		idx := int(fuzzy.Clamp(v) * float64(len(sparks)-1))
		out[i] = sparks[idx]
	}
	return string(out)
}
