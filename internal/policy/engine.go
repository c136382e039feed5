package policy

import (
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/risk"
)

// Assessment is the outcome of running one observation through the engine.
type Assessment struct {
	Raw         float64        `json:"raw"`
	Probability float64        `json:"probability"`
	Decision    fuzzy.Decision `json:"decision"`
	Alarm       bool           `json:"alarm"`
}

// Engine composes the aggregator and classifier built from one Config.
// It is immutable and safe for concurrent use.
type Engine struct {
	agg       *risk.Aggregator
	cls       *fuzzy.Classifier
	threshold float64
}

// NewEngine builds the engine from cfg over the default schema.
// A nil cfg means DefaultConfig.
func NewEngine(cfg *Config) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	schema := model.DefaultSchema()

	weights, err := cfg.WeightTable(schema)
	if err != nil {
		return nil, err
	}
	agg, err := risk.New(schema, weights, cfg.Steepness)
	if err != nil {
		return nil, err
	}
	cls, err := fuzzy.New(cfg.FuzzySets)
	if err != nil {
		return nil, err
	}
	return &Engine{agg: agg, cls: cls, threshold: cfg.AlarmThreshold}, nil
}

// Assess scores ev and classifies the result.
// Only evidence validation can fail; the error is a *model.DomainError.
func (e *Engine) Assess(ev model.Evidence) (Assessment, error) {
	raw, err := e.agg.RawScore(ev)
	if err != nil {
		return Assessment{}, err
	}
	p := e.agg.Probability(raw)
	return Assessment{
		Raw:         raw,
		Probability: p,
		Decision:    e.cls.Classify(p),
		Alarm:       p > e.threshold,
	}, nil
}

// Classify exposes the classifier for callers holding only a probability.
func (e *Engine) Classify(p float64) fuzzy.Decision {
	return e.cls.Classify(p)
}

// Aggregator returns the underlying aggregator.
func (e *Engine) Aggregator() *risk.Aggregator { return e.agg }

// Classifier returns the underlying classifier.
func (e *Engine) Classifier() *fuzzy.Classifier { return e.cls }

// Schema returns the evidence schema.
func (e *Engine) Schema() model.Schema { return e.agg.Schema() }

// AlarmThreshold returns the binary alarm cut.
func (e *Engine) AlarmThreshold() float64 { return e.threshold }
