package policydiff

import (
	"fmt"
	"strings"
)

var setMarks = map[string]string{"added": "+", "removed": "-", "changed": "~"}

// sections splits changes into scalar settings, weights and alert hooks,
// keeping their order.
func sections(changes []Change) (scalars, weights, alerts []Change) {
	for _, c := range changes {
		switch {
		case c.Field == "alerts":
			alerts = append(alerts, c)
		case strings.HasPrefix(c.Field, "weights."):
			c.Field = strings.TrimPrefix(c.Field, "weights.")
			weights = append(weights, c)
		default:
			scalars = append(scalars, c)
		}
	}
	return scalars, weights, alerts
}

// writeAligned prints "name: old → new  (comment)" rows with names padded
// to the widest in the group.
func writeAligned(b *strings.Builder, indent string, changes []Change) {
	width := 0
	for _, c := range changes {
		width = max(width, len(c.Field)+1)
	}
	for _, c := range changes {
		fmt.Fprintf(b, "%s%-*s %s → %s", indent, width, c.Field+":", c.Old, c.New)
		if c.Comment != "" {
			fmt.Fprintf(b, "  (%s)", c.Comment)
		}
		b.WriteByte('\n')
	}
}

// FormatText renders the diff for a terminal.
func FormatText(r *DiffResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Config diff: %s → %s\n", r.OldPath, r.NewPath)
	if !r.HasChanges {
		b.WriteString("\nNo changes detected.\n")
		return b.String()
	}

	scalars, weights, alerts := sections(r.Changes)
	if len(scalars) > 0 {
		b.WriteByte('\n')
		writeAligned(&b, "  ", scalars)
	}
	if len(weights) > 0 {
		b.WriteString("\n  Weights:\n")
		writeAligned(&b, "    ", weights)
	}
	if len(r.SetChanges) > 0 {
		b.WriteString("\n  Fuzzy sets:\n")
		for _, sc := range r.SetChanges {
			fmt.Fprintf(&b, "    %s %s\n", setMarks[sc.Type], sc.Set)
		}
	}
	if len(alerts) > 0 {
		b.WriteByte('\n')
		for _, c := range alerts {
			if c.Comment == "added" {
				fmt.Fprintf(&b, "  alerts: + %s\n", c.New)
			} else {
				fmt.Fprintf(&b, "  alerts: - %s\n", c.Old)
			}
		}
	}
	return b.String()
}
