package sim

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/hazardwatch/internal/audit"
)

func writeLog(t *testing.T, entries ...audit.AuditEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	l, err := audit.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if err := l.Record(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func fields(pairs ...string) []audit.EvidenceField {
	out := make([]audit.EvidenceField, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, audit.EvidenceField{Variable: pairs[i], State: pairs[i+1]})
	}
	return out
}

var (
	allSafe = fields("Activity", "Calm", "Age", "Teen", "Environment", "Normal",
		"Proximity", "Safe", "Supervision", "Yes", "Weather", "Sunny")
	// raw 0.3 under default weights: p = 0.6106, High (0.553) over Caution (0).
	runningSupervised = fields("Activity", "Running", "Age", "Teen", "Environment", "Normal",
		"Proximity", "Safe", "Supervision", "Yes", "Weather", "Sunny")
	// raw 0.1: p = 0.5374, Caution (0.313) over High (0.187).
	calmRainy = fields("Activity", "Calm", "Age", "Teen", "Environment", "Normal",
		"Proximity", "Safe", "Supervision", "Yes", "Weather", "Rainy")
)

func entry(run string, step int, ev []audit.EvidenceField, p float64, label string, alarm bool) audit.AuditEntry {
	return audit.AuditEntry{
		Timestamp:   time.Date(2026, 5, 1, 10, 0, step, 0, time.UTC).Format(audit.TimestampFormat),
		RunID:       run,
		Step:        step,
		Evidence:    ev,
		Probability: p,
		Label:       label,
		Alarm:       alarm,
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSimulateNoChangesUnderSameConfig(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "missing.yaml")
	log := writeLog(t,
		entry("run-a", 0, allSafe, 0.5, "Caution", false),
		entry("run-a", 1, runningSupervised, 0.6106, "High", false),
		entry("run-a", 2, calmRainy, 0.5374, "Caution", false),
	)

	r, err := Simulate(log, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalSteps != 3 || r.ChangedSteps != 0 || len(r.Changes) != 0 {
		t.Errorf("result = %+v", r)
	}
	if !strings.Contains(FormatText(r), "No changes detected.") {
		t.Error("expected no-change text")
	}
}

func TestSimulateDetectsEscalation(t *testing.T) {
	// Raising the Rainy weight to 0.6 gives p = 0.7109: High and alarmed.
	cfg := writeConfig(t, "weights:\n  Weather: {Sunny: 0, Rainy: 0.6}\n")
	log := writeLog(t,
		entry("run-a", 0, allSafe, 0.5, "Caution", false),
		entry("run-a", 1, calmRainy, 0.5374, "Caution", false),
	)

	r, err := Simulate(log, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalSteps != 2 || r.ChangedSteps != 1 {
		t.Fatalf("result = %+v", r)
	}
	d := r.Changes[0]
	if d.Step != 1 || d.OldLabel != "Caution" || d.NewLabel != "High" || !d.NewAlarm {
		t.Errorf("diff = %+v", d)
	}
	if r.Escalated != 1 || r.NewlyAlarmed != 1 || r.Deescalated != 0 {
		t.Errorf("counters = %+v", r)
	}

	text := FormatText(r)
	for _, want := range []string{"CHANGED", "Caution", "-> 0.7109 High!", "1 of 2 steps changed.", "1 escalated", "1 newly alarmed"} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}

func TestSimulateAlarmClearedByThreshold(t *testing.T) {
	cfg := writeConfig(t, "alarm_threshold: 0.95\n")
	worst := fields("Activity", "Jumping", "Age", "Young", "Environment", "Slippery",
		"Proximity", "NearHazard", "Supervision", "No", "Weather", "Rainy")
	log := writeLog(t, entry("run-a", 0, worst, 0.9276, "Critical", true))

	r, err := Simulate(log, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.ChangedSteps != 1 || r.AlarmsCleared != 1 || r.Escalated != 0 || r.Deescalated != 0 {
		t.Errorf("result = %+v", r)
	}
}

func TestSimulateAlarmWithoutLabelChange(t *testing.T) {
	// Running at 0.6 moves p from 0.6106 to 0.7109: still High, now alarmed.
	cfg := writeConfig(t, "weights:\n  Activity: {Calm: 0, Running: 0.6, Jumping: 0.6}\n")
	log := writeLog(t, entry("run-a", 0, runningSupervised, 0.6106, "High", false))

	r, err := Simulate(log, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.ChangedSteps != 1 || r.NewlyAlarmed != 1 || r.Escalated != 0 || r.Deescalated != 0 {
		t.Errorf("result = %+v", r)
	}
}

func TestSimulateFiltersRun(t *testing.T) {
	cfg := writeConfig(t, "weights:\n  Activity: {Calm: 0, Running: 0.6, Jumping: 0.6}\n")
	log := writeLog(t,
		entry("run-a", 0, runningSupervised, 0.6106, "High", false),
		entry("run-b", 0, runningSupervised, 0.6106, "High", false),
	)

	r, err := Simulate(log, cfg, "run-b")
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalSteps != 1 || r.Changes[0].RunID != "run-b" {
		t.Errorf("result = %+v", r)
	}
}

func TestSimulateSkipsForeignEvidence(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "missing.yaml")
	log := writeLog(t,
		entry("run-a", 0, fields("Activity", "Flying"), 0.5, "Caution", false),
		entry("run-a", 1, allSafe, 0.5, "Caution", false),
	)

	r, err := Simulate(log, cfg, "")
	if err != nil {
		t.Fatal(err)
	}
	if r.Skipped != 1 || r.TotalSteps != 1 {
		t.Errorf("result = %+v", r)
	}
}

func TestSimulateMissingLog(t *testing.T) {
	if _, err := Simulate(filepath.Join(t.TempDir(), "nope.jsonl"), "", ""); err == nil {
		t.Error("expected error for missing audit log")
	}
}

func TestSimulateBadConfig(t *testing.T) {
	cfg := writeConfig(t, "alarm_threshold: 7\n")
	log := writeLog(t, entry("run-a", 0, allSafe, 0.5, "Caution", false))
	if _, err := Simulate(log, cfg, ""); err == nil {
		t.Error("expected error for invalid config")
	}
}
