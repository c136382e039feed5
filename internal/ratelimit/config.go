package ratelimit

import "time"

// Limit caps how many events one key may pass per fixed window.
// Zero values mean no limit.
type Limit struct {
	MaxEvents int           `yaml:"max_events" json:"max_events"`
	Window    time.Duration `yaml:"window" json:"window"`
}

// Enabled returns true if the limit actually restricts anything.
func (l *Limit) Enabled() bool {
	return l != nil && l.MaxEvents > 0 && l.Window > 0
}
