package risk

import (
	"errors"
	"fmt"
	"math"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// Aggregator turns evidence into a danger probability.
// It holds only immutable tables and is safe for concurrent use.
type Aggregator struct {
	schema    model.Schema
	weights   WeightTable
	steepness float64
}

// New validates the weight table against schema and returns an Aggregator.
// The table is copied; later edits to weights do not affect the Aggregator.
func New(schema model.Schema, weights WeightTable, steepness float64) (*Aggregator, error) {
	if steepness <= 0 || math.IsNaN(steepness) || math.IsInf(steepness, 0) {
		return nil, fmt.Errorf("risk: steepness must be a positive finite number, got %v", steepness)
	}
	if err := weights.Validate(schema); err != nil {
		return nil, fmt.Errorf("risk: %w", err)
	}
	return &Aggregator{
		schema:    append(model.Schema(nil), schema...),
		weights:   weights.Clone(),
		steepness: steepness,
	}, nil
}

// NewDefault returns an Aggregator over the default schema and tuned weights.
func NewDefault() *Aggregator {
	a, err := New(model.DefaultSchema(), DefaultWeights(), DefaultSteepness)
	if err != nil {
		panic(err)
	}
	return a
}

// Schema returns the schema the aggregator validates against.
func (a *Aggregator) Schema() model.Schema {
	return a.schema
}

// Steepness returns k.
func (a *Aggregator) Steepness() float64 {
	return a.steepness
}

// Weight returns the contribution of one (variable, state) pair.
func (a *Aggregator) Weight(v model.Variable, st model.State) (float64, error) {
	if err := a.schema.Check(v, st); err != nil {
		return 0, err
	}
	return a.weights[v][st], nil
}

// Score validates ev and returns p = 1/(1+e^(-k·r)) where r is the weighted sum.
// All-zero evidence yields 0.5, not 0: this compresses risk, it is not calibrated.
func (a *Aggregator) Score(ev model.Evidence) (float64, error) {
	raw, err := a.RawScore(ev)
	if err != nil {
		return 0, err
	}
	return a.Probability(raw), nil
}

// RawScore validates ev as a complete observation and returns the weighted sum.
func (a *Aggregator) RawScore(ev model.Evidence) (float64, error) {
	values := ev.Values()
	for _, d := range a.schema {
		if _, ok := values[d.Variable]; !ok {
			return 0, &model.DomainError{Variable: d.Variable, Reason: model.ErrMissing}
		}
	}
	return a.Raw(values)
}

// Raw sums weights over any subset of the schema. Unknown variables and
// out-of-domain states are still rejected. An empty mapping scores 0.
//
// Summation walks the schema order so equal inputs give bit-identical sums.
func (a *Aggregator) Raw(values map[model.Variable]model.State) (float64, error) {
	for v, st := range values {
		if err := a.schema.Check(v, st); err != nil {
			return 0, err
		}
	}
	r := 0.0
	for _, d := range a.schema {
		if st, ok := values[d.Variable]; ok {
			r += a.weights[d.Variable][st]
		}
	}
	return r, nil
}

// Probability applies the logistic squash to a raw score.
func (a *Aggregator) Probability(raw float64) float64 {
	return 1 / (1 + math.Exp(-a.steepness*raw))
}

// IsDomainError reports whether err came from evidence validation.
func IsDomainError(err error) bool {
	var de *model.DomainError
	return errors.As(err, &de)
}
