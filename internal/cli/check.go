package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/scenario"
)

var (
	checkScenario string
	checkFormat   string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkScenario, "scenario", "", "Glob pattern for scenario YAML files")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
}

var checkCmd = &cobra.Command{
	Use:   "check [file-or-glob...]",
	Short: "Run risk assertions from scenario files",
	Long: "Scores each case of the given scenario files under --config and checks\n" +
		"the expected label, probability bounds and alarm.\n\n" +
		"Exits non-zero if any case fails, so it can gate weight or fuzzy set\n" +
		"changes in CI.",
	Example: "  hazardwatch check scenarios/*.yaml\n  hazardwatch check --scenario 'scenarios/*.yaml' -f json",
	RunE:    runCheck,
}

// scenarioFiles expands patterns, keeping order and dropping duplicates.
func scenarioFiles(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no scenario files match pattern: %s", pattern)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	return files, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	patterns := args
	if checkScenario != "" {
		patterns = append(patterns, checkScenario)
	}
	if len(patterns) == 0 {
		return fmt.Errorf("no scenario files given (pass paths or --scenario)")
	}
	files, err := scenarioFiles(patterns)
	if err != nil {
		return err
	}

	_, engine, hash, err := loadEngine()
	if err != nil {
		return err
	}
	logger.Debug("checking scenarios", zap.Int("files", len(files)))

	var results []*scenario.RunResult
	for _, path := range files {
		s, err := scenario.Load(path)
		if err != nil {
			return err
		}
		results = append(results, scenario.Run(s, engine))
	}

	err = emit(cmd.OutOrStdout(), checkFormat, results, func() string {
		return fmt.Sprintf("Config: %s\n", hash) + scenario.FormatText(results)
	})
	if err != nil {
		return err
	}

	if n := failedScenarios(results); n > 0 {
		return fmt.Errorf("%d of %d scenarios failed", n, len(results))
	}
	return nil
}

func failedScenarios(results []*scenario.RunResult) int {
	n := 0
	for _, r := range results {
		if r.Failed > 0 {
			n++
		}
	}
	return n
}
