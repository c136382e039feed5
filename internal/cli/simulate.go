package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/sim"
)

var (
	simAuditLog string
	simRun      string
	simFormat   string
)

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().StringVar(&simAuditLog, "audit-log", "", "Audit log to replay")
	simulateCmd.Flags().StringVar(&simRun, "run", "", "Only steps of this run ID")
	simulateCmd.Flags().StringVarP(&simFormat, "format", "f", "text", "Output format (text|json)")
}

var simulateCmd = &cobra.Command{
	Use:   "simulate [audit.jsonl]",
	Short: "Re-score recorded evidence under --config",
	Long: "Feeds the evidence of every recorded step back through the engine built\n" +
		"from --config and reports the steps whose label or alarm would differ.\n" +
		"Try new weights or fuzzy sets on real history before rolling them out.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func runSimulate(cmd *cobra.Command, args []string) error {
	logPath := simAuditLog
	if len(args) == 1 {
		logPath = args[0]
	}
	if logPath == "" {
		return fmt.Errorf("no audit log given (pass a path or --audit-log)")
	}

	result, err := sim.Simulate(logPath, configPath, simRun)
	if err != nil {
		return err
	}
	logger.Debug("simulated audit log",
		zap.Int("steps", result.TotalSteps), zap.Int("changed", result.ChangedSteps))
	return emit(cmd.OutOrStdout(), simFormat, result, func() string {
		return sim.FormatText(result)
	})
}
