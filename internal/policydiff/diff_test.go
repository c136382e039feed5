package policydiff

import (
	"strings"
	"testing"

	"github.com/ppiankov/hazardwatch/internal/alert"
	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

func diff(t *testing.T, a, b *policy.Config) *DiffResult {
	t.Helper()
	r, err := Diff(a, b, model.DefaultSchema())
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func findChange(r *DiffResult, field string) (Change, bool) {
	for _, c := range r.Changes {
		if c.Field == field {
			return c, true
		}
	}
	return Change{}, false
}

func TestIdenticalConfigsNoChanges(t *testing.T) {
	r := diff(t, policy.DefaultConfig(), policy.DefaultConfig())
	if r.HasChanges {
		t.Errorf("expected no changes, got %d changes + %d set changes",
			len(r.Changes), len(r.SetChanges))
	}
	if !strings.Contains(FormatText(r), "No changes detected.") {
		t.Error("expected no-change text")
	}
}

func TestWeightSpellingIsNotAChange(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.Weights["activity"] = map[string]float64{"calm": 0, "running": 0.3, "jumping": 0.6}
	delete(b.Weights, "Activity")

	if r := diff(t, a, b); r.HasChanges {
		t.Errorf("expected no changes, got %+v", r.Changes)
	}
}

func TestChangedWeightDetected(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.Weights["Activity"]["Running"] = 0.45

	r := diff(t, a, b)
	c, ok := findChange(r, "weights.Activity.Running")
	if !ok {
		t.Fatal("weight change not found")
	}
	if c.Old != "0.3" || c.New != "0.45" || c.Comment != "stricter" {
		t.Errorf("change = %+v", c)
	}
}

func TestChangedThresholdDetected(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.AlarmThreshold = 0.8

	r := diff(t, a, b)
	c, ok := findChange(r, "alarm_threshold")
	if !ok {
		t.Fatal("threshold change not found")
	}
	if c.Old != "0.7" || c.New != "0.8" || c.Comment != "looser" {
		t.Errorf("change = %+v", c)
	}
}

func TestChangedSteepnessDetected(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.Steepness = 2

	r := diff(t, a, b)
	c, ok := findChange(r, "steepness")
	if !ok || c.Comment != "stricter" {
		t.Errorf("change = %+v, found=%v", c, ok)
	}
}

func TestFuzzySetChanges(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.FuzzySets = []fuzzy.Set{
		{Name: fuzzy.Safe, A: 0, B: 0, C: 0.3},
		{Name: fuzzy.Caution, A: 0.2, B: 0.45, C: 0.6},
		{Name: fuzzy.Critical, A: 0.5, B: 1, C: 1},
	}

	r := diff(t, a, b)
	got := map[string]string{}
	for _, sc := range r.SetChanges {
		got[sc.Type] += sc.Set
	}
	if !strings.Contains(got["changed"], "Caution (0.2, 0.45, 0.6) (was: 0.2, 0.4, 0.6)") {
		t.Errorf("changed = %q", got["changed"])
	}
	if !strings.Contains(got["changed"], "Critical") {
		t.Errorf("expected Critical reshape, got %q", got["changed"])
	}
	if !strings.Contains(got["removed"], "High") {
		t.Errorf("removed = %q", got["removed"])
	}
	if got["added"] != "" {
		t.Errorf("added = %q", got["added"])
	}
}

func TestAlertChanges(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	a.Alerts = []alert.AlertConfig{{URL: "https://old.example/hook"}}
	b.Alerts = []alert.AlertConfig{{URL: "https://new.example/hook"}}

	r := diff(t, a, b)
	text := FormatText(r)
	if !strings.Contains(text, "alerts: + https://new.example/hook") ||
		!strings.Contains(text, "alerts: - https://old.example/hook") {
		t.Errorf("text:\n%s", text)
	}
}

func TestDiffRejectsBadWeights(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.Weights["Activity"] = map[string]float64{"Flying": 1}
	if _, err := Diff(a, b, model.DefaultSchema()); err == nil {
		t.Error("expected error for unknown state")
	}
}

func TestFormatTextSections(t *testing.T) {
	a := policy.DefaultConfig()
	b := policy.DefaultConfig()
	b.AlarmThreshold = 0.6
	b.Weights["Weather"]["Rainy"] = 0.2

	r := diff(t, a, b)
	r.OldPath, r.NewPath = "a.yaml", "b.yaml"
	text := FormatText(r)
	for _, want := range []string{
		"Config diff: a.yaml → b.yaml",
		"alarm_threshold:",
		"0.7 → 0.6  (stricter)",
		"Weights:",
		"Weather.Rainy:",
		"0.1 → 0.2  (stricter)",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("text missing %q:\n%s", want, text)
		}
	}
}
