package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// TimestampFormat is the layout used in audit entry timestamps.
const TimestampFormat = "2006-01-02T15:04:05.000Z"

// ErrStop may be returned from an Each callback to end the scan early.
var ErrStop = errors.New("stop scan")

// Each decodes the log at path and calls fn for every entry in file order.
// Lines that are not valid JSON are skipped.
func Each(path string, fn func(AuditEntry) error) error {
	err := scanLines(path, func(_ int, line []byte) error {
		var e AuditEntry
		if json.Unmarshal(line, &e) != nil {
			return nil
		}
		return fn(e)
	})
	switch {
	case err == nil, errors.Is(err, ErrStop):
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("open audit log: %w", err)
	default:
		return fmt.Errorf("read audit log: %w", err)
	}
}

// ReplayFilter selects entries by run and by an inclusive time window.
// Zero values leave that bound open.
type ReplayFilter struct {
	RunID string
	From  time.Time
	To    time.Time
}

func (f ReplayFilter) keep(e AuditEntry) bool {
	if f.RunID != "" && e.RunID != f.RunID {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	ts, err := time.Parse(TimestampFormat, e.Timestamp)
	if err != nil {
		return false
	}
	return !(!f.From.IsZero() && ts.Before(f.From)) && !(!f.To.IsZero() && ts.After(f.To))
}

// ReplaySummary aggregates a replayed run.
type ReplaySummary struct {
	Total           int            `json:"total"`
	LabelCounts     map[string]int `json:"label_counts"`
	AlarmCount      int            `json:"alarm_count"`
	MaxProbability  float64        `json:"max_probability"`
	MeanProbability float64        `json:"mean_probability"`
	FirstTimestamp  string         `json:"first_timestamp"`
	LastTimestamp   string         `json:"last_timestamp"`

	sum float64
}

func (s *ReplaySummary) add(e AuditEntry) {
	if s.Total == 0 {
		s.FirstTimestamp = e.Timestamp
	}
	s.Total++
	s.LastTimestamp = e.Timestamp
	s.LabelCounts[e.Label]++
	if e.Alarm {
		s.AlarmCount++
	}
	s.MaxProbability = max(s.MaxProbability, e.Probability)
	s.sum += e.Probability
	s.MeanProbability = s.sum / float64(s.Total)
}

// ReplayResult is a filtered slice of the log plus its summary.
type ReplayResult struct {
	RunID   string        `json:"run_id"`
	Entries []AuditEntry  `json:"entries"`
	Summary ReplaySummary `json:"summary"`
}

// Replay returns the entries of the log at path that pass filter.
func Replay(path string, filter ReplayFilter) (*ReplayResult, error) {
	res := &ReplayResult{
		RunID:   filter.RunID,
		Summary: ReplaySummary{LabelCounts: map[string]int{}},
	}
	err := Each(path, func(e AuditEntry) error {
		if filter.keep(e) {
			res.Entries = append(res.Entries, e)
			res.Summary.add(e)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
