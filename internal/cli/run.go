package cli

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/report"
	"github.com/ppiankov/hazardwatch/internal/source"
)

var (
	runSource    string
	runScenario  string
	runSeed      uint64
	runSteps     int
	runInterval  time.Duration
	runFormat    string
	runPlot      bool
	runAuditLog  string
	runHistoryDB string
	runDetail    bool
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runSource, "source", "s", "random", "Evidence source ("+source.KindList(source.Kinds(), "|")+")")
	runCmd.Flags().StringVar(&runScenario, "scenario", "", "Scenario YAML for --source scenario")
	runCmd.Flags().Uint64Var(&runSeed, "seed", 0, "Seed for --source random (0 = unseeded)")
	runCmd.Flags().IntVarP(&runSteps, "steps", "n", 10, "Number of steps (0 = until interrupted)")
	runCmd.Flags().DurationVarP(&runInterval, "interval", "i", time.Second, "Delay between steps")
	runCmd.Flags().StringVarP(&runFormat, "format", "f", "text", "Output format (text|json)")
	runCmd.Flags().BoolVar(&runPlot, "plot", false, "Print an ASCII probability chart when the run ends")
	runCmd.Flags().StringVar(&runAuditLog, "audit-log", "", "Append steps to a hash-chained JSONL audit log")
	runCmd.Flags().StringVar(&runHistoryDB, "history-db", "", "Record the run in a SQLite history database")
	runCmd.Flags().BoolVar(&runDetail, "memberships", false, "Show fuzzy membership degrees per step")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the monitoring loop in the foreground",
	Long: "Draws evidence from the chosen source, scores and classifies it, and\n" +
		"reports one line per step. Ctrl-C stops the loop between steps.",
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, engine, hash, err := loadEngine()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var display monitor.Reporter
	if runFormat == "json" {
		display = report.NewJSON(out, logger)
	} else {
		display = report.NewConsole(out, runDetail)
	}

	// Manual prompts go to stderr so stdout stays machine-readable.
	p, err := newPipeline(loopOptions{
		Source:    runSource,
		Scenario:  runScenario,
		Seed:      runSeed,
		Steps:     runSteps,
		Interval:  runInterval,
		AuditLog:  runAuditLog,
		HistoryDB: runHistoryDB,
		In:        cmd.InOrStdin(),
		Out:       cmd.ErrOrStderr(),
	}, engine, cfg, engine, hash, display)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	summary, runErr := p.loop.Run(ctx)
	closeErr := p.Close()

	if runFormat != "json" {
		if runPlot {
			opts := report.DefaultPlotOptions()
			opts.Threshold = engine.AlarmThreshold()
			opts.Sets = engine.Classifier().Sets()
			fmt.Fprintln(out)
			fmt.Fprint(out, report.Plot(p.history.Points(), opts))
		}
		printSummary(cmd.ErrOrStderr(), p.runID, summary, engine.Classifier().Labels())
	}

	if runErr != nil {
		return runErr
	}
	return closeErr
}

func printSummary(w io.Writer, runID string, s monitor.Summary, order []fuzzy.Label) {
	fmt.Fprintf(w, "\nRun %s: %d steps, %d alarms, max probability %.4f\n", runID, s.Steps, s.Alarms, s.MaxProbability)
	labels := make([]fuzzy.Label, 0, len(s.LabelCounts))
	for l := range s.LabelCounts {
		labels = append(labels, l)
	}
	rank := make(map[fuzzy.Label]int, len(order))
	for i, l := range order {
		rank[l] = i
	}
	sort.Slice(labels, func(i, j int) bool { return rank[labels[i]] < rank[labels[j]] })
	for _, l := range labels {
		fmt.Fprintf(w, "  %-9s %d\n", l, s.LabelCounts[l])
	}
}
