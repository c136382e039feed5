package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/hazardwatch/internal/alert"
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/risk"
)

// DefaultAlarmThreshold is the conventional binary alert cut on probability.
const DefaultAlarmThreshold = 0.7

// Config holds the engine's static tables plus reporter-facing settings.
// Weights and fuzzy sets are configuration: editing them never changes the
// scoring or classification algorithms.
type Config struct {
	Steepness      float64                       `yaml:"steepness"`
	AlarmThreshold float64                       `yaml:"alarm_threshold"`
	Weights        map[string]map[string]float64 `yaml:"weights"`
	FuzzySets      []fuzzy.Set                   `yaml:"fuzzy_sets"`
	Alerts         []alert.AlertConfig           `yaml:"alerts,omitempty"`
}

// DefaultConfig returns the tuned configuration.
func DefaultConfig() *Config {
	weights := make(map[string]map[string]float64)
	for v, states := range risk.DefaultWeights() {
		inner := make(map[string]float64, len(states))
		for st, w := range states {
			inner[string(st)] = w
		}
		weights[string(v)] = inner
	}
	return &Config{
		Steepness:      risk.DefaultSteepness,
		AlarmThreshold: DefaultAlarmThreshold,
		Weights:        weights,
		FuzzySets:      fuzzy.DefaultSets(),
	}
}

// DefaultPath returns ~/.hazardwatch/config.yaml, or "" if home is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".hazardwatch", "config.yaml")
}

// LoadConfig loads configuration from a YAML file.
// Empty path falls back to ~/.hazardwatch/config.yaml.
// Missing file returns defaults. Invalid YAML or tables return an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read config: %w", err)
		}
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields.
	// Weights are decoded apart and overlaid by resolved name so that
	// "activity" in the file replaces the default "Activity".
	cfg := DefaultConfig()
	if len(data) > 0 {
		defaults := cfg.Weights
		cfg.Weights = nil
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse config: %w", err)
		}
		merged, err := overlayWeights(defaults, cfg.Weights, model.DefaultSchema())
		if err != nil {
			return nil, "", fmt.Errorf("invalid config: %w", err)
		}
		cfg.Weights = merged
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return cfg, hash, nil
}

// WeightTable resolves the YAML weight map against schema.
// Variable and state names match case-insensitively.
func (c *Config) WeightTable(schema model.Schema) (risk.WeightTable, error) {
	table := make(risk.WeightTable, len(c.Weights))
	for name, states := range c.Weights {
		v, err := schema.ResolveVariable(name)
		if err != nil {
			return nil, fmt.Errorf("weights: %w", err)
		}
		if _, dup := table[v]; dup {
			return nil, fmt.Errorf("weights: %s listed twice", v)
		}
		inner := make(map[model.State]float64, len(states))
		for raw, w := range states {
			st, err := schema.Normalize(v, raw)
			if err != nil {
				return nil, fmt.Errorf("weights: %w", err)
			}
			if _, dup := inner[st]; dup {
				return nil, fmt.Errorf("weights: %s=%s listed twice", v, st)
			}
			inner[st] = w
		}
		table[v] = inner
	}
	return table, nil
}

// overlayWeights replaces base variables with those listed in file, matching
// variable and state names case-insensitively. A listed variable replaces
// its whole state table. Names the schema does not know are kept verbatim so
// WeightTable reports them.
func overlayWeights(base, file map[string]map[string]float64, schema model.Schema) (map[string]map[string]float64, error) {
	out := make(map[string]map[string]float64, len(base))
	for v, states := range base {
		inner := make(map[string]float64, len(states))
		for st, w := range states {
			inner[st] = w
		}
		out[v] = inner
	}

	seen := make(map[model.Variable]bool, len(file))
	for name, states := range file {
		v, err := schema.ResolveVariable(name)
		if err != nil {
			out[name] = states
			continue
		}
		if seen[v] {
			return nil, fmt.Errorf("weights: %s listed twice", v)
		}
		seen[v] = true

		inner := make(map[string]float64, len(states))
		given := make(map[model.State]bool, len(states))
		for raw, w := range states {
			st, err := schema.Normalize(v, raw)
			if err != nil {
				inner[raw] = w
				continue
			}
			if given[st] {
				return nil, fmt.Errorf("weights: %s=%s listed twice", v, st)
			}
			given[st] = true
			inner[string(st)] = w
		}
		out[string(v)] = inner
	}
	return out, nil
}

// Validate checks every table by building the engine from it.
func (c *Config) Validate() error {
	if math.IsNaN(c.AlarmThreshold) || c.AlarmThreshold < 0 || c.AlarmThreshold > 1 {
		return fmt.Errorf("invalid config: alarm_threshold must lie in [0,1], got %v", c.AlarmThreshold)
	}
	if _, err := NewEngine(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultConfigYAML returns a commented YAML string for init-config.
func DefaultConfigYAML() string {
	return `# hazardwatch configuration
# Generated by: hazardwatch init-config
#
# Pipeline per step (cannot be changed):
#   1. Validate evidence against the fixed variable domains
#   2. raw = sum of weights below
#   3. p = 1 / (1 + exp(-steepness * raw))
#   4. Label = fuzzy set with the greatest membership at p
#      (exact ties go to the later, more severe set)

# Logistic slope. Empirically tuned, not calibrated.
steepness: 1.5

# Binary alarm cut used by reporters that want a yes/no signal (p > threshold).
alarm_threshold: 0.7

# Risk contribution of every (variable, state). Every state needs a weight.
weights:
  Activity:
    Calm: 0.0
    Running: 0.3
    Jumping: 0.6
  Proximity:
    Safe: 0.0
    NearHazard: 0.4
  Environment:
    Normal: 0.0
    Slippery: 0.2
  Age:
    Teen: 0.0
    Young: 0.2
  Weather:
    Sunny: 0.0
    Rainy: 0.1
  Supervision:
    "Yes": 0.0
    "No": 0.2

# Triangular fuzzy sets (a = left zero, b = peak, c = right zero),
# listed in ascending severity.
fuzzy_sets:
  - {name: Safe, a: 0.0, b: 0.0, c: 0.3}
  - {name: Caution, a: 0.2, b: 0.4, c: 0.6}
  - {name: High, a: 0.5, b: 0.7, c: 0.85}
  - {name: Critical, a: 0.7, b: 1.0, c: 1.0}

# Webhook alerts. events: label names (Safe|Caution|High|Critical) or "alarm".
# alerts:
#   - url: https://hooks.slack.com/services/XXX
#     format: slack
#     events: [Critical, alarm]
#     rate_limit: {max_events: 5, window: 10m}
#   - url: https://events.pagerduty.com/v2/enqueue
#     format: pagerduty
#     routing_key: YOUR_INTEGRATION_KEY
#     events: [alarm]
`
}
