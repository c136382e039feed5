package fuzzy

import (
	"fmt"
	"math"
	"strings"
)

// Membership is one entry of a decision's membership vector.
type Membership struct {
	Label  Label   `json:"label"`
	Degree float64 `json:"degree"`
}

// Decision is the classification of one probability.
type Decision struct {
	Label       Label        `json:"label"`
	Input       float64      `json:"input"`
	Memberships []Membership `json:"memberships"`
}

// Degree returns the membership of label, 0 if absent.
func (d Decision) Degree(label Label) float64 {
	for _, m := range d.Memberships {
		if m.Label == label {
			return m.Degree
		}
	}
	return 0
}

// Map returns the membership vector keyed by label.
func (d Decision) Map() map[Label]float64 {
	out := make(map[Label]float64, len(d.Memberships))
	for _, m := range d.Memberships {
		out[m.Label] = m.Degree
	}
	return out
}

// Confidence returns the winning label's membership.
func (d Decision) Confidence() float64 {
	return d.Degree(d.Label)
}

// Classifier maps probabilities to fuzzy decisions.
// Sets are ordered by ascending severity; it is safe for concurrent use.
type Classifier struct {
	sets []Set
}

// New validates sets and returns a Classifier. Order of sets is severity order.
func New(sets []Set) (*Classifier, error) {
	if len(sets) == 0 {
		return nil, fmt.Errorf("fuzzy: %w: no sets defined", ErrInvalidSet)
	}
	seen := make(map[Label]bool, len(sets))
	for _, s := range sets {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("fuzzy: %w", err)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("fuzzy: %w: duplicate set %s", ErrInvalidSet, s.Name)
		}
		seen[s.Name] = true
	}
	return &Classifier{sets: append([]Set(nil), sets...)}, nil
}

// NewDefault returns a Classifier over DefaultSets.
func NewDefault() *Classifier {
	c, err := New(DefaultSets())
	if err != nil {
		panic(err)
	}
	return c
}

// Sets returns a copy of the configured sets in severity order.
func (c *Classifier) Sets() []Set {
	return append([]Set(nil), c.sets...)
}

// Labels returns set names in severity order.
func (c *Classifier) Labels() []Label {
	labels := make([]Label, len(c.sets))
	for i, s := range c.sets {
		labels[i] = s.Name
	}
	return labels
}

// Severity returns the rank of label (0 = least severe), or -1 if unknown.
func (c *Classifier) Severity(label Label) int {
	for i, s := range c.sets {
		if s.Name == label {
			return i
		}
	}
	return -1
}

// Classify evaluates every set at p and picks the greatest membership.
//
// p is clamped into [0,1] first (NaN counts as 0) so numeric noise around the
// edges never fails. Exact ties go to the more severe set.
func (c *Classifier) Classify(p float64) Decision {
	p = Clamp(p)

	d := Decision{
		Input:       p,
		Memberships: make([]Membership, len(c.sets)),
	}
	best := math.Inf(-1)
	for i, s := range c.sets {
		m := s.Membership(p)
		d.Memberships[i] = Membership{Label: s.Name, Degree: m}
		if m >= best {
			best = m
			d.Label = s.Name
		}
	}
	return d
}

// Clamp restricts p to [0,1].
func Clamp(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 0
	case p < 0:
		return 0
	case p > 1:
		return 1
	default:
		return p
	}
}

// ParseLabel matches s against the classifier's labels case-insensitively.
func (c *Classifier) ParseLabel(s string) (Label, error) {
	for _, set := range c.sets {
		if strings.EqualFold(string(set.Name), strings.TrimSpace(s)) {
			return set.Name, nil
		}
	}
	return "", fmt.Errorf("fuzzy: unknown label %q", s)
}
