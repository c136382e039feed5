package audit

import (
	"fmt"
	"sort"
	"strings"
)

const separator = "──────────────────────────────────────────────────────────────────"

// FormatTimeline renders a ReplayResult as a human-readable text timeline.
func FormatTimeline(result *ReplayResult) string {
	if len(result.Entries) == 0 {
		return fmt.Sprintf("Run: %s | No entries found.\n", displayRun(result.RunID))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Run: %s | %s – %s UTC\n", displayRun(result.RunID),
		result.Summary.FirstTimestamp, result.Summary.LastTimestamp)
	b.WriteString(separator + "\n")

	for _, e := range result.Entries {
		tag := ""
		if e.Alarm {
			tag = "  [alarm]"
		}
		fmt.Fprintf(&b, "%s  #%-4d %-8s p=%.3f  %s%s\n",
			timeOnly(e.Timestamp), e.Step, e.Label, e.Probability, evidenceText(e.Evidence), tag)
	}

	b.WriteString(separator + "\n")
	labels := make([]string, 0, len(result.Summary.LabelCounts))
	for l := range result.Summary.LabelCounts {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	counts := make([]string, len(labels))
	for i, l := range labels {
		counts[i] = fmt.Sprintf("%s=%d", l, result.Summary.LabelCounts[l])
	}
	sum := result.Summary
	fmt.Fprintf(&b, "Summary: %d steps, %s, %d alarms, p max=%.3f mean=%.3f\n",
		sum.Total, strings.Join(counts, " "), sum.AlarmCount, sum.MaxProbability, sum.MeanProbability)

	return b.String()
}

func displayRun(id string) string {
	if id == "" {
		return "(all)"
	}
	return id
}

func timeOnly(ts string) string {
	if i := strings.IndexByte(ts, 'T'); i >= 0 && len(ts) >= i+9 {
		return ts[i+1 : i+9]
	}
	return ts
}

func evidenceText(fields []EvidenceField) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Variable + "=" + f.State
	}
	return strings.Join(parts, " ")
}
