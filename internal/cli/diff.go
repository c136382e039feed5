package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
	"github.com/ppiankov/hazardwatch/internal/policydiff"
)

var diffFormat string

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().StringVarP(&diffFormat, "format", "f", "text", "Output format (text|json)")
}

var diffCmd = &cobra.Command{
	Use:   "diff [old.yaml] <new.yaml>",
	Short: "Compare two config files",
	Long: "Lists weight, steepness, alarm threshold, fuzzy set and alert changes\n" +
		"between two configs, each marked stricter or looser. With one argument\n" +
		"the active --config is the old side.",
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	oldPath, newPath := configPath, args[0]
	if len(args) == 2 {
		oldPath, newPath = args[0], args[1]
	}
	if oldPath == "" {
		oldPath = policy.DefaultPath()
	}

	loaded := make([]*policy.Config, 2)
	for i, p := range []string{oldPath, newPath} {
		cfg, err := policy.LoadConfig(p)
		if err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
		loaded[i] = cfg
	}

	result, err := policydiff.Diff(loaded[0], loaded[1], model.DefaultSchema())
	if err != nil {
		return err
	}
	result.OldPath, result.NewPath = oldPath, newPath
	return emit(cmd.OutOrStdout(), diffFormat, result, func() string {
		return policydiff.FormatText(result)
	})
}
