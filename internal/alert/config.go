package alert

import "github.com/ppiankov/hazardwatch/internal/ratelimit"

// AlertConfig defines a webhook alert destination.
type AlertConfig struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	Events  []string          `yaml:"events"  json:"events"` // ["Critical", "High", "alarm"]
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
	// RoutingKey is the PagerDuty Events v2 integration key.
	RoutingKey string           `yaml:"routing_key,omitempty" json:"routing_key,omitempty"`
	RateLimit  *ratelimit.Limit `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
}

// EventAlarm matches any step whose probability crossed the alarm threshold.
const EventAlarm = "alarm"

// AlertEvent is the payload sent to webhook endpoints.
type AlertEvent struct {
	Timestamp   string            `json:"timestamp"`
	RunID       string            `json:"run_id"`
	Step        int               `json:"step"`
	Label       string            `json:"label"`
	Severity    int               `json:"severity"` // 0 = least severe fuzzy set
	Probability float64           `json:"probability"`
	Alarm       bool              `json:"alarm"`
	Evidence    map[string]string `json:"evidence"`
	ConfigHash  string            `json:"config_hash"`
}
