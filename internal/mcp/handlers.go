package mcp

import (
	"context"
	"fmt"
	"math"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// --- Input/Output types ---

// AssessInput defines parameters for the hazard_assess tool.
type AssessInput struct {
	Evidence map[string]string `json:"evidence" jsonschema:"variable name to observed state, e.g. {\"Activity\":\"Jumping\"}; names and states are case-insensitive"`
}

// AssessOutput contains the scored observation.
type AssessOutput struct {
	Evidence    map[string]string  `json:"evidence"`
	Raw         float64            `json:"raw"`
	Probability float64            `json:"probability"`
	Label       string             `json:"label"`
	Memberships map[string]float64 `json:"memberships"`
	Alarm       bool               `json:"alarm"`
	ConfigHash  string             `json:"config_hash"`
}

// ClassifyInput defines parameters for the hazard_classify tool.
type ClassifyInput struct {
	Probability float64 `json:"probability" jsonschema:"danger probability; values outside [0,1] are clamped"`
}

// ClassifyOutput contains the fuzzy decision.
type ClassifyOutput struct {
	Input       float64            `json:"input"`
	Label       string             `json:"label"`
	Memberships map[string]float64 `json:"memberships"`
}

// SchemaInput is empty; hazard_schema takes no parameters.
type SchemaInput struct{}

// VariableInfo describes one observed variable.
type VariableInfo struct {
	Name    string             `json:"name"`
	States  []string           `json:"states"`
	Weights map[string]float64 `json:"weights"`
}

// SchemaOutput describes the loaded configuration.
type SchemaOutput struct {
	Variables      []VariableInfo `json:"variables"`
	FuzzySets      []fuzzy.Set    `json:"fuzzy_sets"`
	Steepness      float64        `json:"steepness"`
	AlarmThreshold float64        `json:"alarm_threshold"`
	ConfigHash     string         `json:"config_hash"`
}

// --- Handlers ---

func (s *Server) handleAssess(ctx context.Context, req *mcpsdk.CallToolRequest, input AssessInput) (*mcpsdk.CallToolResult, AssessOutput, error) {
	_, engine, hash := s.live.Current()
	ev, err := model.ParseEvidence(engine.Schema(), input.Evidence)
	if err != nil {
		return nil, AssessOutput{}, fmt.Errorf("invalid evidence: %w", err)
	}
	a, err := engine.Assess(ev)
	if err != nil {
		return nil, AssessOutput{}, err
	}

	step := monitor.Step{
		Index:       int(s.calls.Add(1)) - 1,
		At:          time.Now().UTC(),
		Evidence:    ev,
		Raw:         a.Raw,
		Probability: a.Probability,
		Decision:    a.Decision,
		Alarm:       a.Alarm,
	}
	s.recordAudit(step, hash)
	s.logger.Debug("hazard_assess",
		zap.Stringer("evidence", ev),
		zap.Float64("probability", a.Probability),
		zap.String("label", string(a.Decision.Label)))

	return nil, AssessOutput{
		Evidence:    ev.ToMap(),
		Raw:         a.Raw,
		Probability: a.Probability,
		Label:       string(a.Decision.Label),
		Memberships: membershipMap(a.Decision),
		Alarm:       a.Alarm,
		ConfigHash:  hash,
	}, nil
}

func (s *Server) handleClassify(ctx context.Context, req *mcpsdk.CallToolRequest, input ClassifyInput) (*mcpsdk.CallToolResult, ClassifyOutput, error) {
	if math.IsNaN(input.Probability) {
		return nil, ClassifyOutput{}, fmt.Errorf("probability must be a number")
	}
	d := s.live.Engine().Classify(input.Probability)
	return nil, ClassifyOutput{
		Input:       d.Input,
		Label:       string(d.Label),
		Memberships: membershipMap(d),
	}, nil
}

func (s *Server) handleSchema(ctx context.Context, req *mcpsdk.CallToolRequest, input SchemaInput) (*mcpsdk.CallToolResult, SchemaOutput, error) {
	_, engine, hash := s.live.Current()
	agg := engine.Aggregator()

	var vars []VariableInfo
	for _, d := range engine.Schema() {
		info := VariableInfo{Name: string(d.Variable), Weights: make(map[string]float64, len(d.States))}
		for _, st := range d.States {
			info.States = append(info.States, string(st))
			w, err := agg.Weight(d.Variable, st)
			if err != nil {
				return nil, SchemaOutput{}, err
			}
			info.Weights[string(st)] = w
		}
		vars = append(vars, info)
	}

	return nil, SchemaOutput{
		Variables:      vars,
		FuzzySets:      engine.Classifier().Sets(),
		Steepness:      agg.Steepness(),
		AlarmThreshold: engine.AlarmThreshold(),
		ConfigHash:     hash,
	}, nil
}

func membershipMap(d fuzzy.Decision) map[string]float64 {
	out := make(map[string]float64, len(d.Memberships))
	for _, m := range d.Memberships {
		out[string(m.Label)] = m.Degree
	}
	return out
}
