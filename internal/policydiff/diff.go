package policydiff

import (
	"fmt"
	"sort"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

// Change represents a scalar field change.
type Change struct {
	Field   string `json:"field"`
	Old     string `json:"old"`
	New     string `json:"new"`
	Comment string `json:"comment,omitempty"`
}

// SetChange represents a fuzzy set addition, removal, or reshape.
type SetChange struct {
	Type string `json:"type"` // "added", "removed", "changed"
	Set  string `json:"set"`
}

// DiffResult holds the comparison of two configs.
type DiffResult struct {
	OldPath    string      `json:"old_path"`
	NewPath    string      `json:"new_path"`
	Changes    []Change    `json:"changes"`
	SetChanges []SetChange `json:"set_changes"`
	HasChanges bool        `json:"has_changes"`
}

// Diff compares two configs and returns the differences. Weight names are
// resolved against schema first, so spelling differences in the YAML do not
// count as changes.
func Diff(old, new *policy.Config, schema model.Schema) (*DiffResult, error) {
	r := &DiffResult{}

	// Higher steepness pushes positive scores toward 1.
	diffFloat(r, "steepness", old.Steepness, new.Steepness, true)
	// Lower threshold raises more alarms.
	diffFloat(r, "alarm_threshold", old.AlarmThreshold, new.AlarmThreshold, false)

	oldW, err := old.WeightTable(schema)
	if err != nil {
		return nil, fmt.Errorf("old config: %w", err)
	}
	newW, err := new.WeightTable(schema)
	if err != nil {
		return nil, fmt.Errorf("new config: %w", err)
	}
	for _, d := range schema {
		for _, st := range d.States {
			field := fmt.Sprintf("weights.%s.%s", d.Variable, st)
			diffFloat(r, field, oldW[d.Variable][st], newW[d.Variable][st], true)
		}
	}

	diffSets(r, old.FuzzySets, new.FuzzySets)
	diffMapKeys(r, "alerts", alertKeys(old), alertKeys(new))

	r.HasChanges = len(r.Changes) > 0 || len(r.SetChanges) > 0
	return r, nil
}

func diffFloat(r *DiffResult, field string, old, new float64, higherIsStricter bool) {
	if old != new {
		r.Changes = append(r.Changes, Change{
			Field:   field,
			Old:     formatFloat(old),
			New:     formatFloat(new),
			Comment: floatComment(old, new, higherIsStricter),
		})
	}
}

func formatFloat(v float64) string {
	return fmt.Sprintf("%g", v)
}

func floatComment(old, new float64, higherIsStricter bool) string {
	if higherIsStricter {
		if new > old {
			return "stricter"
		}
		return "looser"
	}
	if new < old {
		return "stricter"
	}
	return "looser"
}

func setLabel(s fuzzy.Set) string {
	return fmt.Sprintf("%s (%g, %g, %g)", s.Name, s.A, s.B, s.C)
}

func diffSets(r *DiffResult, oldSets, newSets []fuzzy.Set) {
	oldMap := make(map[fuzzy.Label]fuzzy.Set)
	for _, s := range oldSets {
		oldMap[s.Name] = s
	}
	newMap := make(map[fuzzy.Label]fuzzy.Set)
	for _, s := range newSets {
		newMap[s.Name] = s
	}

	for _, s := range newSets {
		if prev, exists := oldMap[s.Name]; exists {
			if prev != s {
				r.SetChanges = append(r.SetChanges, SetChange{
					Type: "changed",
					Set:  fmt.Sprintf("%s (was: %g, %g, %g)", setLabel(s), prev.A, prev.B, prev.C),
				})
			}
		} else {
			r.SetChanges = append(r.SetChanges, SetChange{Type: "added", Set: setLabel(s)})
		}
	}

	for _, s := range oldSets {
		if _, exists := newMap[s.Name]; !exists {
			r.SetChanges = append(r.SetChanges, SetChange{Type: "removed", Set: setLabel(s)})
		}
	}
}

func diffMapKeys(r *DiffResult, section string, oldKeys, newKeys []string) {
	oldSet := make(map[string]bool)
	for _, k := range oldKeys {
		oldSet[k] = true
	}
	newSet := make(map[string]bool)
	for _, k := range newKeys {
		newSet[k] = true
	}

	for _, k := range newKeys {
		if !oldSet[k] {
			r.Changes = append(r.Changes, Change{Field: section, New: k, Comment: "added"})
		}
	}
	for _, k := range oldKeys {
		if !newSet[k] {
			r.Changes = append(r.Changes, Change{Field: section, Old: k, Comment: "removed"})
		}
	}
}

func alertKeys(cfg *policy.Config) []string {
	keys := make([]string, 0, len(cfg.Alerts))
	for _, a := range cfg.Alerts {
		keys = append(keys, a.URL)
	}
	sort.Strings(keys)
	return keys
}
