package scenario

import (
	"fmt"
	"sort"
	"strings"
)

// FormatText renders run results as a per-file report with the failing
// cases expanded and a label distribution over all cases.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	plural := "s"
	if len(results) == 1 {
		plural = ""
	}
	fmt.Fprintf(&b, "Scenario check (%d file%s)\n\n", len(results), plural)

	width := 0
	for _, r := range results {
		if len(r.Name) > width {
			width = len(r.Name)
		}
	}

	var cases, passed, failedFiles int
	labels := make(map[string]int)
	for _, r := range results {
		cases += r.Total
		passed += r.Passed
		status := "ok  "
		if r.Failed > 0 {
			status = "FAIL"
			failedFiles++
		}
		fmt.Fprintf(&b, "  %s  %-*s  %d/%d cases\n", status, width, r.Name, r.Passed, r.Total)

		for _, c := range r.Cases {
			labels[c.Actual]++
			if c.Passed {
				continue
			}
			alarm := ""
			if c.Alarm {
				alarm = ", alarm"
			}
			title := fmt.Sprintf("case %d", c.Index)
			if c.Name != "" {
				title += " " + c.Name
			}
			fmt.Fprintf(&b, "        %s: got %s (p=%.4f%s)\n", title, c.Actual, c.Probability, alarm)
			fmt.Fprintf(&b, "          %s\n", c.Reason)
			fmt.Fprintf(&b, "          %s\n", c.Evidence)
		}
	}

	if len(labels) > 0 {
		names := make([]string, 0, len(labels))
		for l := range labels {
			names = append(names, l)
		}
		sort.Strings(names)
		parts := make([]string, len(names))
		for i, l := range names {
			parts[i] = fmt.Sprintf("%s %d", l, labels[l])
		}
		fmt.Fprintf(&b, "\nLabels: %s\n", strings.Join(parts, ", "))
	}

	fmt.Fprintf(&b, "\n%d of %d cases passed.", passed, cases)
	if failedFiles > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedFiles, len(results))
	}
	b.WriteString("\n")
	return b.String()
}
