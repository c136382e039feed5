package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/ppiankov/hazardwatch/internal/model"
)

// Random draws every variable independently and uniformly from its domain.
type Random struct {
	schema model.Schema

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a random source. A nil rng uses the package-level
// generator, so draws differ across runs.
func NewRandom(schema model.Schema, rng *rand.Rand) (*Random, error) {
	for _, d := range schema {
		if len(d.States) == 0 {
			return nil, fmt.Errorf("source: %w", &model.DomainError{Variable: d.Variable, Reason: model.ErrEmptyDomain})
		}
	}
	return &Random{schema: schema, rng: rng}, nil
}

// Next ignores the step index; every call is a fresh draw.
func (r *Random) Next(ctx context.Context, _ int) (model.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return model.Evidence{}, err
	}

	values := make(map[model.Variable]model.State, len(r.schema))
	r.mu.Lock()
	for _, d := range r.schema {
		values[d.Variable] = d.States[r.intN(len(d.States))]
	}
	r.mu.Unlock()

	return model.NewEvidence(r.schema, values)
}

func (r *Random) intN(n int) int {
	if r.rng == nil {
		return rand.IntN(n)
	}
	return r.rng.IntN(n)
}
