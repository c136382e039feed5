package report

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
)

// Label colors, least to most severe.
var (
	ColorSafe     = lipgloss.Color("#8BC34A")
	ColorCaution  = lipgloss.Color("#FFC107")
	ColorHigh     = lipgloss.Color("#FF8A65")
	ColorCritical = lipgloss.Color("#E53935")
)

// Styles renders labels for one output. The renderer picks the color
// profile of the writer, so non-terminals get plain text.
type Styles struct {
	r      *lipgloss.Renderer
	labels map[fuzzy.Label]lipgloss.Style
	alarm  lipgloss.Style
	muted  lipgloss.Style
}

// NewStyles builds styles bound to w.
func NewStyles(w io.Writer) *Styles {
	r := lipgloss.NewRenderer(w)
	return &Styles{
		r: r,
		labels: map[fuzzy.Label]lipgloss.Style{
			fuzzy.Safe:     r.NewStyle().Foreground(ColorSafe),
			fuzzy.Caution:  r.NewStyle().Foreground(ColorCaution),
			fuzzy.High:     r.NewStyle().Foreground(ColorHigh).Bold(true),
			fuzzy.Critical: r.NewStyle().Foreground(ColorCritical).Bold(true),
		},
		alarm: r.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(ColorCritical).Bold(true),
		muted: r.NewStyle().Faint(true),
	}
}

// Label renders a label padded to width.
func (s *Styles) Label(label fuzzy.Label, width int) string {
	st, ok := s.labels[label]
	if !ok {
		st = s.r.NewStyle()
	}
	return st.Width(width).Render(string(label))
}

// Alarm renders the alarm marker.
func (s *Styles) Alarm() string {
	return s.alarm.Render(" ALARM ")
}

// Muted renders secondary text.
func (s *Styles) Muted(text string) string {
	return s.muted.Render(text)
}
