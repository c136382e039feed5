package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/report"
	"github.com/ppiankov/hazardwatch/internal/risk"
)

var (
	assessFormat   string
	classifyFormat string
)

func init() {
	rootCmd.AddCommand(assessCmd)
	rootCmd.AddCommand(classifyCmd)
	assessCmd.Flags().StringVarP(&assessFormat, "format", "f", "text", "Output format (text|json)")
	classifyCmd.Flags().StringVarP(&classifyFormat, "format", "f", "text", "Output format (text|json)")
}

var assessCmd = &cobra.Command{
	Use:   "assess Variable=State...",
	Short: "Score one observation",
	Long: "Scores a single complete observation given as Variable=State pairs,\n" +
		"e.g. hazardwatch assess Activity=Jumping Proximity=NearHazard ...\n" +
		"Names and states are case-insensitive. Every variable is required.",
	Example: "  hazardwatch assess activity=running proximity=safe environment=normal age=young weather=sunny supervision=yes",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runAssess,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <probability>",
	Short: "Classify a probability into a risk label",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

// parsePairs turns Variable=State arguments into raw evidence.
func parsePairs(args []string) (map[string]string, error) {
	raw := make(map[string]string, len(args))
	for _, arg := range args {
		name, state, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid pair %q (want Variable=State)", arg)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, dup := raw[key]; dup {
			return nil, fmt.Errorf("variable %q given twice", name)
		}
		raw[key] = state
	}
	return raw, nil
}

func runAssess(cmd *cobra.Command, args []string) error {
	raw, err := parsePairs(args)
	if err != nil {
		return err
	}
	_, engine, _, err := loadEngine()
	if err != nil {
		return err
	}
	ev, err := model.ParseEvidence(engine.Schema(), raw)
	if risk.IsDomainError(err) {
		return fmt.Errorf("%w (see 'hazardwatch schema' for variables and states)", err)
	}
	if err != nil {
		return err
	}
	a, err := engine.Assess(ev)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if assessFormat == "json" {
		return writeJSON(out, assessmentJSON{
			Evidence:    ev.ToMap(),
			Raw:         a.Raw,
			Probability: a.Probability,
			Label:       a.Decision.Label,
			Memberships: a.Decision.Map(),
			Alarm:       a.Alarm,
		})
	}

	fmt.Fprintf(out, "Evidence:    %s\n", ev)
	fmt.Fprintf(out, "Raw score:   %.4f\n", a.Raw)
	printDecision(out, a.Probability, a.Decision)
	if a.Alarm {
		fmt.Fprintf(out, "ALARM: probability above %.2f\n", engine.AlarmThreshold())
	}
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	p, err := strconv.ParseFloat(strings.TrimSpace(args[0]), 64)
	if err != nil || math.IsNaN(p) {
		return fmt.Errorf("invalid probability %q: want a number", args[0])
	}
	_, engine, _, err := loadEngine()
	if err != nil {
		return err
	}
	d := engine.Classify(p)

	out := cmd.OutOrStdout()
	if classifyFormat == "json" {
		return writeJSON(out, assessmentJSON{
			Probability: d.Input,
			Label:       d.Label,
			Memberships: d.Map(),
		})
	}
	printDecision(out, d.Input, d)
	return nil
}

type assessmentJSON struct {
	Evidence    map[string]string       `json:"evidence,omitempty"`
	Raw         float64                 `json:"raw,omitempty"`
	Probability float64                 `json:"probability"`
	Label       fuzzy.Label             `json:"label"`
	Memberships map[fuzzy.Label]float64 `json:"memberships"`
	Alarm       bool                    `json:"alarm,omitempty"`
}

func printDecision(w io.Writer, p float64, d fuzzy.Decision) {
	styles := report.NewStyles(w)
	fmt.Fprintf(w, "Probability: %.4f\n", p)
	fmt.Fprintf(w, "Label:       %s\n", styles.Label(d.Label, 0))
	fmt.Fprintln(w, "Memberships:")
	for _, m := range d.Memberships {
		fmt.Fprintf(w, "  %-9s %.4f\n", m.Label, m.Degree)
	}
}

func validFormat(format string) error {
	switch format {
	case "", "text", "json":
		return nil
	}
	return fmt.Errorf("unknown format %q (want text or json)", format)
}

// emit writes v as JSON when format is "json", otherwise the text form.
func emit(w io.Writer, format string, v any, text func() string) error {
	if err := validFormat(format); err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, v)
	}
	fmt.Fprint(w, text())
	return nil
}

func writeJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Fprintln(w, string(out))
	return nil
}
