package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
)

// PlotOptions sizes an ASCII chart.
type PlotOptions struct {
	Width     int         // max columns; longer series are bucketed by max
	Height    int         // rows spanning probability 0..1
	Threshold float64     // alarm line; zero hides it
	Sets      []fuzzy.Set // band labels on the right margin; nil hides them
}

// DefaultPlotOptions fits an 80 column terminal.
func DefaultPlotOptions() PlotOptions {
	return PlotOptions{Width: 60, Height: 11, Sets: fuzzy.DefaultSets()}
}

// Plot renders the probability series as an ASCII chart. Alarm samples are
// drawn as '!', others as '*'. Scanning from the top, the first row of each
// dominant fuzzy set carries that set's name.
func Plot(points []Point, opts PlotOptions) string {
	if len(points) == 0 {
		return "(no data)\n"
	}
	if opts.Width <= 0 {
		opts.Width = 60
	}
	if opts.Height < 3 {
		opts.Height = 3
	}

	cols := bucket(points, opts.Width)
	grid := make([][]byte, opts.Height)
	for r := range grid {
		grid[r] = []byte(strings.Repeat(" ", len(cols)))
	}
	if opts.Threshold > 0 && opts.Threshold <= 1 {
		tr := rowOf(opts.Threshold, opts.Height)
		for c := range grid[tr] {
			grid[tr][c] = '-'
		}
	}
	for c, p := range cols {
		mark := byte('*')
		if p.Alarm {
			mark = '!'
		}
		grid[rowOf(p.Probability, opts.Height)][c] = mark
	}

	var cls *fuzzy.Classifier
	if len(opts.Sets) > 0 {
		cls, _ = fuzzy.New(opts.Sets)
	}

	var b strings.Builder
	var prevBand fuzzy.Label
	for r, row := range grid {
		y := 1 - float64(r)/float64(opts.Height-1)
		fmt.Fprintf(&b, "%4.2f |%s|", y, row)
		if cls != nil {
			band := cls.Classify(y).Label
			if band != prevBand {
				fmt.Fprintf(&b, " %s", band)
				prevBand = band
			}
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "     +%s+\n", strings.Repeat("-", len(cols)))
	fmt.Fprintf(&b, "      steps %d-%d (%d samples)\n", points[0].Step+1, points[len(points)-1].Step+1, len(points))
	return b.String()
}

func rowOf(p float64, height int) int {
	p = fuzzy.Clamp(p)
	return int(math.Round((1 - p) * float64(height-1)))
}

// bucket folds points into at most width columns, keeping each bucket's
// highest probability.
func bucket(points []Point, width int) []Point {
	if len(points) <= width {
		return points
	}
	out := make([]Point, width)
	for c := 0; c < width; c++ {
		lo := c * len(points) / width
		hi := (c + 1) * len(points) / width
		best := points[lo]
		alarm := best.Alarm
		for _, p := range points[lo+1 : hi] {
			if p.Probability > best.Probability {
				best = p
			}
			alarm = alarm || p.Alarm
		}
		best.Alarm = alarm
		out[c] = best
	}
	return out
}
