package scenario

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

// Load reads and parses a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}
	s, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	s.File = path
	return s, nil
}

// Parse decodes scenario YAML. name is used in error messages only.
func Parse(data []byte, name string) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", name, err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("parse scenario %s: no cases", name)
	}
	return &s, nil
}

// EvidenceList validates every case against schema and returns the
// observations in file order.
func (s *Scenario) EvidenceList(schema model.Schema) ([]model.Evidence, error) {
	if len(s.Cases) == 0 {
		return nil, errors.New("scenario: no cases")
	}
	out := make([]model.Evidence, 0, len(s.Cases))
	for i, c := range s.Cases {
		ev, err := model.ParseEvidence(schema, c.Evidence)
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// Run evaluates all cases against the engine. Cases are independent.
func Run(s *Scenario, engine *policy.Engine) *RunResult {
	result := &RunResult{
		File:  s.File,
		Name:  s.Name,
		Total: len(s.Cases),
	}
	if result.Name == "" {
		result.Name = s.File
	}

	for i, c := range s.Cases {
		cr := evaluate(engine, c)
		cr.Index = i + 1
		if cr.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)
	}

	return result
}

func evaluate(engine *policy.Engine, c Case) CaseResult {
	cr := CaseResult{Name: c.Name, Expected: strings.TrimSpace(c.Expect)}

	ev, err := model.ParseEvidence(engine.Schema(), c.Evidence)
	if err != nil {
		cr.Actual = "error"
		cr.Reason = err.Error()
		return cr
	}
	cr.Evidence = ev.String()

	a, err := engine.Assess(ev)
	if err != nil {
		cr.Actual = "error"
		cr.Reason = err.Error()
		return cr
	}
	cr.Actual = string(a.Decision.Label)
	cr.Probability = a.Probability
	cr.Alarm = a.Alarm

	var reasons []string
	if cr.Expected != "" {
		want, err := engine.Classifier().ParseLabel(cr.Expected)
		if err != nil {
			reasons = append(reasons, err.Error())
		} else if want != a.Decision.Label {
			reasons = append(reasons, fmt.Sprintf("label %s, want %s", a.Decision.Label, want))
		}
	}
	if c.MinProbability != nil && a.Probability < *c.MinProbability {
		reasons = append(reasons, fmt.Sprintf("probability %.4f below %.4f", a.Probability, *c.MinProbability))
	}
	if c.MaxProbability != nil && a.Probability > *c.MaxProbability {
		reasons = append(reasons, fmt.Sprintf("probability %.4f above %.4f", a.Probability, *c.MaxProbability))
	}
	if c.Alarm != nil && *c.Alarm != a.Alarm {
		reasons = append(reasons, fmt.Sprintf("alarm %v, want %v", a.Alarm, *c.Alarm))
	}

	cr.Passed = len(reasons) == 0
	cr.Reason = strings.Join(reasons, "; ")
	return cr
}
