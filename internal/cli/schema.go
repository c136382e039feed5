package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
)

var schemaFormat string

func init() {
	rootCmd.AddCommand(schemaCmd)
	schemaCmd.Flags().StringVarP(&schemaFormat, "format", "f", "text", "Output format (text|json)")
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show variables, weights and fuzzy sets",
	Long:  "Prints the observed variables with their states and weights from the\nloaded config, followed by the fuzzy set control points.",
	RunE:  runSchema,
}

type schemaVariable struct {
	Name    string             `json:"name"`
	States  []string           `json:"states"`
	Weights map[string]float64 `json:"weights"`
}

type schemaJSON struct {
	Variables      []schemaVariable `json:"variables"`
	Steepness      float64          `json:"steepness"`
	AlarmThreshold float64          `json:"alarm_threshold"`
	FuzzySets      []fuzzy.Set      `json:"fuzzy_sets"`
	MaxRaw         float64          `json:"max_raw"`
	MaxProbability float64          `json:"max_probability"`
	ConfigHash     string           `json:"config_hash"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	cfg, engine, hash, err := loadEngine()
	if err != nil {
		return err
	}
	agg := engine.Aggregator()
	table, err := cfg.WeightTable(engine.Schema())
	if err != nil {
		return err
	}
	maxRaw := table.Max(engine.Schema())

	doc := schemaJSON{
		Steepness:      agg.Steepness(),
		AlarmThreshold: engine.AlarmThreshold(),
		FuzzySets:      engine.Classifier().Sets(),
		MaxRaw:         maxRaw,
		MaxProbability: agg.Probability(maxRaw),
		ConfigHash:     hash,
	}
	for _, d := range engine.Schema() {
		v := schemaVariable{Name: string(d.Variable), Weights: make(map[string]float64)}
		for _, st := range d.States {
			w, err := agg.Weight(d.Variable, st)
			if err != nil {
				return err
			}
			v.States = append(v.States, string(st))
			v.Weights[string(st)] = w
		}
		doc.Variables = append(doc.Variables, v)
	}

	out := cmd.OutOrStdout()
	if schemaFormat == "json" {
		return writeJSON(out, doc)
	}

	fmt.Fprintf(out, "Config: %s\n\n", hash)
	for _, v := range doc.Variables {
		parts := make([]string, len(v.States))
		for i, st := range v.States {
			parts[i] = fmt.Sprintf("%s=%.2f", st, v.Weights[st])
		}
		fmt.Fprintf(out, "  %-12s %s\n", v.Name, strings.Join(parts, "  "))
	}
	fmt.Fprintf(out, "\nSteepness: %.2f   Alarm threshold: %.2f\n", doc.Steepness, doc.AlarmThreshold)
	fmt.Fprintf(out, "Worst case: raw %.2f, p=%.4f\n\nFuzzy sets:\n", doc.MaxRaw, doc.MaxProbability)
	for _, s := range doc.FuzzySets {
		fmt.Fprintf(out, "  %-9s (%.2f, %.2f, %.2f)\n", s.Name, s.A, s.B, s.C)
	}
	return nil
}
