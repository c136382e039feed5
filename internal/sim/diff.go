package sim

import (
	"fmt"
	"strings"
)

// DiffEntry is one recorded step whose outcome changed.
type DiffEntry struct {
	Timestamp      string  `json:"ts"`
	RunID          string  `json:"run_id"`
	Step           int     `json:"step"`
	OldProbability float64 `json:"old_probability"`
	NewProbability float64 `json:"new_probability"`
	OldLabel       string  `json:"old_label"`
	NewLabel       string  `json:"new_label"`
	OldAlarm       bool    `json:"old_alarm"`
	NewAlarm       bool    `json:"new_alarm"`
}

// SimResult holds the complete simulation output.
type SimResult struct {
	ConfigPath    string      `json:"config_path"`
	TotalSteps    int         `json:"total_steps"`
	ChangedSteps  int         `json:"changed_steps"`
	Skipped       int         `json:"skipped"`
	Escalated     int         `json:"escalated"`
	Deescalated   int         `json:"deescalated"`
	NewlyAlarmed  int         `json:"newly_alarmed"`
	AlarmsCleared int         `json:"alarms_cleared"`
	Changes       []DiffEntry `json:"changes"`
}

func alarmMark(on bool) string {
	if on {
		return "!"
	}
	return ""
}

// FormatText renders the simulation result as human-readable text.
func FormatText(r *SimResult) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Simulating %s against %d recorded steps...\n", r.ConfigPath, r.TotalSteps)

	if len(r.Changes) == 0 {
		b.WriteString("\nNo changes detected.\n")
		if r.Skipped > 0 {
			fmt.Fprintf(&b, "%d entries skipped (evidence does not fit the schema).\n", r.Skipped)
		}
		return b.String()
	}

	b.WriteString("\n")
	for _, d := range r.Changes {
		ts := d.Timestamp
		if len(ts) >= 19 {
			ts = ts[11:19]
		}
		run := d.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(&b, "  CHANGED  %s  %-8s #%-4d %.4f %-9s -> %.4f %s\n",
			ts, run, d.Step+1,
			d.OldProbability, d.OldLabel+alarmMark(d.OldAlarm),
			d.NewProbability, d.NewLabel+alarmMark(d.NewAlarm))
	}

	fmt.Fprintf(&b, "\n%d of %d steps changed.", r.ChangedSteps, r.TotalSteps)
	if r.Escalated > 0 || r.Deescalated > 0 {
		fmt.Fprintf(&b, " %d escalated, %d de-escalated.", r.Escalated, r.Deescalated)
	}
	if r.NewlyAlarmed > 0 || r.AlarmsCleared > 0 {
		fmt.Fprintf(&b, " %d newly alarmed, %d alarms cleared.", r.NewlyAlarmed, r.AlarmsCleared)
	}
	b.WriteString("\n")
	if r.Skipped > 0 {
		fmt.Fprintf(&b, "%d entries skipped (evidence does not fit the schema).\n", r.Skipped)
	}

	return b.String()
}
