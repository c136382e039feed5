package monitor

import (
	"time"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
)

// Step is everything one tick produced, handed to the Reporter.
type Step struct {
	Index       int
	At          time.Time
	Evidence    model.Evidence
	Raw         float64
	Probability float64
	Decision    fuzzy.Decision
	Alarm       bool
}

// Label is shorthand for the decision's winning label.
func (s Step) Label() fuzzy.Label {
	return s.Decision.Label
}

// Reporter consumes steps. Report is called on the loop goroutine, so an
// implementation that blocks stalls the loop.
type Reporter interface {
	Report(step Step)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Step)

// Report calls f(step).
func (f ReporterFunc) Report(step Step) { f(step) }
