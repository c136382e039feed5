package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/audit"
)

var (
	tailLines    int
	replayRun    string
	replayFrom   string
	replayTo     string
	replayFormat string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd, auditTailCmd, auditReplayCmd)

	auditTailCmd.Flags().IntVarP(&tailLines, "lines", "n", 10, "Number of recent entries to show")

	f := auditReplayCmd.Flags()
	f.StringVar(&replayRun, "run", "", "Only entries of this run ID")
	f.StringVar(&replayFrom, "from", "", "Start time (RFC3339)")
	f.StringVar(&replayTo, "to", "", "End time (RFC3339)")
	f.StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the hash-chained audit log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Check the hash chain of an audit log",
	Long: "Every entry must carry the SHA-256 of the line before it as prev_hash,\n" +
		"and step numbers must increase within a run. Exits non-zero on the\n" +
		"first broken link.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res := audit.Verify(args[0])
		if !res.Valid {
			return fmt.Errorf("audit log invalid at line %d: %s", res.ErrorLine, res.Error)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "OK: %d entries verified across %d runs\n", res.Lines, res.Runs)
		return nil
	},
}

var auditTailCmd = &cobra.Command{
	Use:   "tail <path>",
	Short: "Print the most recent audit entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tailLines <= 0 {
			return fmt.Errorf("--lines must be positive, got %d", tailLines)
		}
		ring := make([]audit.AuditEntry, 0, tailLines)
		err := audit.Each(args[0], func(e audit.AuditEntry) error {
			if len(ring) == tailLines {
				ring = append(ring[:0], ring[1:]...)
			}
			ring = append(ring, e)
			return nil
		})
		if err != nil {
			return err
		}
		for _, e := range ring {
			if err := writeJSON(cmd.OutOrStdout(), e); err != nil {
				return err
			}
		}
		return nil
	},
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay <path>",
	Short: "Print a run from the audit log as a timeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditReplay,
}

// parseBound parses an optional RFC3339 flag value.
func parseBound(flag, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return t, nil
}

func runAuditReplay(cmd *cobra.Command, args []string) error {
	from, err := parseBound("from", replayFrom)
	if err != nil {
		return err
	}
	to, err := parseBound("to", replayTo)
	if err != nil {
		return err
	}

	result, err := audit.Replay(args[0], audit.ReplayFilter{RunID: replayRun, From: from, To: to})
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), replayFormat, result, func() string {
		return audit.FormatTimeline(result)
	})
}
