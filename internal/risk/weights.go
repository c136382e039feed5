package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// DefaultSteepness is the tuned logistic slope k.
// Empirical: no calibration source, treat as configuration.
const DefaultSteepness = 1.5

// WeightTable maps every (variable, state) pair to its risk contribution.
type WeightTable map[model.Variable]map[model.State]float64

// DefaultWeights returns the tuned weight table. The least risky state of
// every variable weighs zero, so all-safe evidence scores raw 0.
func DefaultWeights() WeightTable {
	return WeightTable{
		model.Activity:    {model.Calm: 0.0, model.Running: 0.3, model.Jumping: 0.6},
		model.Proximity:   {model.SafeZone: 0.0, model.NearHazard: 0.4},
		model.Environment: {model.Normal: 0.0, model.Slippery: 0.2},
		model.Age:         {model.Teen: 0.0, model.Young: 0.2},
		model.Weather:     {model.Sunny: 0.0, model.Rainy: 0.1},
		model.Supervision: {model.Supervised: 0.0, model.Alone: 0.2},
	}
}

var ErrInvalidWeight = errors.New("invalid risk weight")

// Validate checks that the table covers exactly the schema's (variable, state)
// pairs with finite, non-negative weights.
func (w WeightTable) Validate(schema model.Schema) error {
	for v, states := range w {
		d, ok := schema.Lookup(v)
		if !ok {
			return fmt.Errorf("weights: %w", &model.DomainError{Variable: v, Reason: model.ErrUnknownVariable})
		}
		for st, weight := range states {
			if !d.Contains(st) {
				return fmt.Errorf("weights: %w", &model.DomainError{Variable: v, State: st, Reason: model.ErrOutOfDomain})
			}
			if weight < 0 || math.IsNaN(weight) || math.IsInf(weight, 0) {
				return fmt.Errorf("%w: %s=%s has weight %v", ErrInvalidWeight, v, st, weight)
			}
		}
	}
	for _, d := range schema {
		states, ok := w[d.Variable]
		if !ok {
			return fmt.Errorf("%w: no weights for %s", ErrInvalidWeight, d.Variable)
		}
		for _, st := range d.States {
			if _, ok := states[st]; !ok {
				return fmt.Errorf("%w: no weight for %s=%s", ErrInvalidWeight, d.Variable, st)
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (w WeightTable) Clone() WeightTable {
	out := make(WeightTable, len(w))
	for v, states := range w {
		inner := make(map[model.State]float64, len(states))
		for st, weight := range states {
			inner[st] = weight
		}
		out[v] = inner
	}
	return out
}

// Max returns the largest raw score reachable under schema.
func (w WeightTable) Max(schema model.Schema) float64 {
	total := 0.0
	for _, d := range schema {
		best := 0.0
		for _, st := range d.States {
			if weight := w[d.Variable][st]; weight > best {
				best = weight
			}
		}
		total += best
	}
	return total
}
