package fuzzy

import (
	"errors"
	"fmt"
	"math"
)

// Label names a fuzzy risk category.
type Label string

const (
	Safe     Label = "Safe"
	Caution  Label = "Caution"
	High     Label = "High"
	Critical Label = "Critical"
)

// Set is a triangular fuzzy set over [0,1] with control points A <= B <= C.
// A is the left zero, B the peak, C the right zero.
type Set struct {
	Name Label   `yaml:"name" json:"name"`
	A    float64 `yaml:"a" json:"a"`
	B    float64 `yaml:"b" json:"b"`
	C    float64 `yaml:"c" json:"c"`
}

// DefaultSets returns the four canonical sets in ascending severity.
func DefaultSets() []Set {
	return []Set{
		{Name: Safe, A: 0.0, B: 0.0, C: 0.3},
		{Name: Caution, A: 0.2, B: 0.4, C: 0.6},
		{Name: High, A: 0.5, B: 0.7, C: 0.85},
		{Name: Critical, A: 0.7, B: 1.0, C: 1.0},
	}
}

var ErrInvalidSet = errors.New("invalid fuzzy set")

// Validate checks ordering and range of the control points.
func (s Set) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidSet)
	}
	for _, v := range []float64{s.A, s.B, s.C} {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s control points must lie in [0,1], got (%v, %v, %v)", ErrInvalidSet, s.Name, s.A, s.B, s.C)
		}
	}
	if s.A > s.B || s.B > s.C {
		return fmt.Errorf("%w: %s requires a <= b <= c, got (%v, %v, %v)", ErrInvalidSet, s.Name, s.A, s.B, s.C)
	}
	return nil
}

// Membership returns the degree in [0,1] to which p belongs to the set.
//
// The peak itself always has membership 1, which makes degenerate shoulders
// such as (0,0,0.3) and (0.7,1,1) reach 1 at the domain edges.
func (s Set) Membership(p float64) float64 {
	switch {
	case p == s.B:
		return 1
	case p <= s.A || p >= s.C:
		return 0
	case p < s.B:
		return (p - s.A) / (s.B - s.A)
	default:
		return (s.C - p) / (s.C - s.B)
	}
}
