package report

import (
	"sync"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// Point is one plotted sample.
type Point struct {
	Step        int
	Probability float64
	Label       fuzzy.Label
	Alarm       bool
}

// History keeps the probability series of a run for plotting.
type History struct {
	mu     sync.Mutex
	limit  int
	points []Point
}

// NewHistory keeps at most limit points, dropping the oldest. Zero keeps all.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Report implements monitor.Reporter.
func (h *History) Report(s monitor.Step) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.points = append(h.points, Point{
		Step:        s.Index,
		Probability: s.Probability,
		Label:       s.Decision.Label,
		Alarm:       s.Alarm,
	})
	if h.limit > 0 && len(h.points) > h.limit {
		h.points = append(h.points[:0], h.points[len(h.points)-h.limit:]...)
	}
}

// Points returns a copy of the recorded series.
func (h *History) Points() []Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Point, len(h.points))
	copy(out, h.points)
	return out
}

// Len is the number of recorded points.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.points)
}
