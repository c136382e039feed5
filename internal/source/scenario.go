package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/scenario"
)

// ErrEmptyScenario is returned when a scenario has no observations.
var ErrEmptyScenario = errors.New("source: scenario has no evidence")

// Scenario replays a fixed list, returning list[step mod len].
type Scenario struct {
	name string
	list []model.Evidence
}

// NewScenario validates every observation against schema up front.
func NewScenario(name string, schema model.Schema, list []model.Evidence) (*Scenario, error) {
	if len(list) == 0 {
		return nil, ErrEmptyScenario
	}
	out := make([]model.Evidence, len(list))
	for i, ev := range list {
		checked, err := model.NewEvidence(schema, ev.Values())
		if err != nil {
			return nil, fmt.Errorf("source: scenario entry %d: %w", i+1, err)
		}
		out[i] = checked
	}
	return &Scenario{name: name, list: out}, nil
}

// LoadScenario reads a scenario YAML file (the check command's format) and
// replays its cases' evidence in order. Expectations are ignored.
func LoadScenario(path string, schema model.Schema) (*Scenario, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, fmt.Errorf("source: %w", err)
	}
	list, err := s.EvidenceList(schema)
	if err != nil {
		return nil, fmt.Errorf("source: scenario %s: %w", path, err)
	}
	name := s.Name
	if name == "" {
		name = path
	}
	return NewScenario(name, schema, list)
}

// Name is the scenario's display name.
func (s *Scenario) Name() string { return s.name }

// Len is the cycle length.
func (s *Scenario) Len() int { return len(s.list) }

// Next returns the observation for step. Negative steps wrap too.
func (s *Scenario) Next(ctx context.Context, step int) (model.Evidence, error) {
	if err := ctx.Err(); err != nil {
		return model.Evidence{}, err
	}
	i := step % len(s.list)
	if i < 0 {
		i += len(s.list)
	}
	return s.list[i], nil
}
