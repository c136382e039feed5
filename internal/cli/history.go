package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/history"
	"github.com/ppiankov/hazardwatch/internal/report"
)

var (
	historyDB     string
	historyFormat string
	plotWidth     int
	plotHeight    int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRunsCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyPlotCmd)
	historyCmd.PersistentFlags().StringVar(&historyDB, "db", "", "History database (default ~/.hazardwatch/history.db)")
	historyRunsCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
	historyShowCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
	historyPlotCmd.Flags().IntVar(&plotWidth, "width", 60, "Chart width in columns")
	historyPlotCmd.Flags().IntVar(&plotHeight, "height", 11, "Chart height in rows")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
	Long:  "Lists, shows and plots runs recorded with --history-db.",
}

var historyRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryRuns,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the steps of a run (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryShow,
}

var historyPlotCmd = &cobra.Command{
	Use:   "plot [run-id]",
	Short: "Plot a run's probability series (default: latest)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistoryPlot,
}

func runHistoryRuns(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Runs()
	if err != nil {
		return err
	}
	if historyFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tSOURCE\tSTEPS\tALARMS\tMAX P")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%.4f\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Source, r.Steps, r.Alarms, r.MaxProbability)
	}
	return tw.Flush()
}

// resolveRun picks the named run or the latest one.
func resolveRun(store *history.Store, args []string) (history.Run, error) {
	if len(args) == 1 {
		return store.Run(args[0])
	}
	return store.LatestRun()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := resolveRun(store, args)
	if err != nil {
		return err
	}
	steps, err := store.Steps(run.ID)
	if err != nil {
		return err
	}
	if historyFormat == "json" {
		return writeJSON(cmd.OutOrStdout(), steps)
	}
	counts, err := store.LabelCounts(run.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, started %s)\n\n", run.ID, run.Source, run.StartedAt.Format("2006-01-02 15:04:05"))
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STEP\tP\tLABEL\tALARM")
	for _, s := range steps {
		alarm := ""
		if s.Alarm {
			alarm = "yes"
		}
		fmt.Fprintf(tw, "%d\t%.4f\t%s\t%s\n", s.Index+1, s.Probability, s.Label, alarm)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	for _, l := range []fuzzy.Label{fuzzy.Safe, fuzzy.Caution, fuzzy.High, fuzzy.Critical} {
		if n, ok := counts[string(l)]; ok {
			fmt.Fprintf(out, "  %-9s %d\n", l, n)
		}
	}
	return nil
}

func runHistoryPlot(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyDB)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := resolveRun(store, args)
	if err != nil {
		return err
	}
	steps, err := store.Steps(run.ID)
	if err != nil {
		return err
	}
	_, engine, _, err := loadEngine()
	if err != nil {
		return err
	}

	points := make([]report.Point, len(steps))
	for i, s := range steps {
		points[i] = report.Point{Step: s.Index, Probability: s.Probability, Label: fuzzy.Label(s.Label), Alarm: s.Alarm}
	}
	opts := report.PlotOptions{
		Width:     plotWidth,
		Height:    plotHeight,
		Threshold: engine.AlarmThreshold(),
		Sets:      engine.Classifier().Sets(),
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s\n\n", run.ID)
	fmt.Fprint(cmd.OutOrStdout(), report.Plot(points, opts))
	return nil
}
