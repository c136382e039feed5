package fuzzy

import (
	"math"
	"testing"
)

func FuzzClassify(f *testing.F) {
	for _, seed := range []float64{0, 0.2, 0.3, 0.55, 0.7, 0.85, 1, -1, 2, math.Inf(-1)} {
		f.Add(seed)
	}
	c := NewDefault()

	f.Fuzz(func(t *testing.T, p float64) {
		d := c.Classify(p)
		if d.Input < 0 || d.Input > 1 {
			t.Fatalf("input %v not clamped", d.Input)
		}
		if c.Severity(d.Label) < 0 {
			t.Fatalf("unknown winner %q", d.Label)
		}
		for _, m := range d.Memberships {
			if m.Degree < 0 || m.Degree > 1 || math.IsNaN(m.Degree) {
				t.Fatalf("membership %v out of range for p=%v", m.Degree, p)
			}
			if m.Degree > d.Confidence() {
				t.Fatalf("%s (%v) beats winner %s (%v)", m.Label, m.Degree, d.Label, d.Confidence())
			}
		}
	})
}
