package report

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/monitor"
)

// StepJSON is the wire form of a step.
type StepJSON struct {
	Step        int                     `json:"step"`
	Timestamp   time.Time               `json:"ts"`
	Evidence    map[string]string       `json:"evidence"`
	Raw         float64                 `json:"raw"`
	Probability float64                 `json:"probability"`
	Label       fuzzy.Label             `json:"label"`
	Memberships map[fuzzy.Label]float64 `json:"memberships"`
	Alarm       bool                    `json:"alarm"`
}

// ToJSON converts a step to its wire form.
func ToJSON(s monitor.Step) StepJSON {
	return StepJSON{
		Step:        s.Index,
		Timestamp:   s.At,
		Evidence:    s.Evidence.ToMap(),
		Raw:         s.Raw,
		Probability: s.Probability,
		Label:       s.Decision.Label,
		Memberships: s.Decision.Map(),
		Alarm:       s.Alarm,
	}
}

// JSON writes one JSON object per line.
type JSON struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *zap.Logger
}

// NewJSON writes JSONL to w. Encoding failures are logged, not returned.
func NewJSON(w io.Writer, logger *zap.Logger) *JSON {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JSON{enc: json.NewEncoder(w), logger: logger}
}

// Report implements monitor.Reporter.
func (j *JSON) Report(s monitor.Step) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(ToJSON(s)); err != nil {
		j.logger.Warn("json reporter write failed", zap.Int("step", s.Index), zap.Error(err))
	}
}
