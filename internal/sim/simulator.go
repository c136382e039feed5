package sim

import (
	"fmt"

	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

// Simulate replays the evidence recorded in an audit log through the config
// at configPath and returns every step whose label or alarm would change.
// A non-empty runID limits the replay to that run.
func Simulate(logPath, configPath, runID string) (*SimResult, error) {
	cfg, err := policy.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	engine, err := policy.NewEngine(cfg)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	entries, err := readEntries(logPath, runID)
	if err != nil {
		return nil, err
	}

	result := &SimResult{ConfigPath: configPath}
	if result.ConfigPath == "" {
		result.ConfigPath = policy.DefaultPath()
	}
	cls := engine.Classifier()

	for _, entry := range entries {
		ev, err := evidenceOf(engine.Schema(), entry.Evidence)
		if err != nil {
			result.Skipped++
			continue
		}
		a, err := engine.Assess(ev)
		if err != nil {
			result.Skipped++
			continue
		}
		result.TotalSteps++

		newLabel := string(a.Decision.Label)
		if newLabel == entry.Label && a.Alarm == entry.Alarm {
			continue
		}

		result.Changes = append(result.Changes, DiffEntry{
			Timestamp:      entry.Timestamp,
			RunID:          entry.RunID,
			Step:           entry.Step,
			OldProbability: entry.Probability,
			NewProbability: a.Probability,
			OldLabel:       entry.Label,
			NewLabel:       newLabel,
			OldAlarm:       entry.Alarm,
			NewAlarm:       a.Alarm,
		})
		result.ChangedSteps++

		switch {
		case !entry.Alarm && a.Alarm:
			result.NewlyAlarmed++
		case entry.Alarm && !a.Alarm:
			result.AlarmsCleared++
		}
		oldRank := severity(cls, entry.Label)
		newRank := cls.Severity(a.Decision.Label)
		switch {
		case oldRank >= 0 && newRank > oldRank:
			result.Escalated++
		case oldRank >= 0 && newRank < oldRank:
			result.Deescalated++
		}
	}

	return result, nil
}

func severity(cls *fuzzy.Classifier, label string) int {
	l, err := cls.ParseLabel(label)
	if err != nil {
		return -1
	}
	return cls.Severity(l)
}

func evidenceOf(schema model.Schema, fields []audit.EvidenceField) (model.Evidence, error) {
	raw := make(map[string]string, len(fields))
	for _, f := range fields {
		raw[f.Variable] = f.State
	}
	return model.ParseEvidence(schema, raw)
}

// readEntries collects the entries of runID (all runs when empty).
func readEntries(logPath, runID string) ([]audit.AuditEntry, error) {
	var entries []audit.AuditEntry
	err := audit.Each(logPath, func(e audit.AuditEntry) error {
		if runID == "" || e.RunID == runID {
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}
