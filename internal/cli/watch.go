package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/policy"
	"github.com/ppiankov/hazardwatch/internal/source"
	"github.com/ppiankov/hazardwatch/internal/tui"
)

var (
	watchSource    string
	watchScenario  string
	watchSeed      uint64
	watchSteps     int
	watchInterval  time.Duration
	watchAuditLog  string
	watchHistoryDB string
	watchNoReload  bool
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchSource, "source", "s", "random", "Evidence source ("+source.KindList([]source.Kind{source.KindRandom, source.KindScenario}, "|")+")")
	watchCmd.Flags().StringVar(&watchScenario, "scenario", "", "Scenario YAML for --source scenario")
	watchCmd.Flags().Uint64Var(&watchSeed, "seed", 0, "Seed for --source random (0 = unseeded)")
	watchCmd.Flags().IntVarP(&watchSteps, "steps", "n", 0, "Number of steps (0 = until quit)")
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", time.Second, "Delay between steps")
	watchCmd.Flags().StringVar(&watchAuditLog, "audit-log", "", "Append steps to a hash-chained JSONL audit log")
	watchCmd.Flags().StringVar(&watchHistoryDB, "history-db", "", "Record the run in a SQLite history database")
	watchCmd.Flags().BoolVar(&watchNoReload, "no-reload", false, "Do not reload the config file when it changes")
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live terminal view of the monitoring loop",
	Long: "Runs the loop in the background and shows the latest decision, membership\n" +
		"bars and a probability trend. Edits to the config file are picked up\n" +
		"without restarting. Press q to quit; quitting stops the loop.",
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	if strings.EqualFold(strings.TrimSpace(watchSource), string(source.KindManual)) {
		return fmt.Errorf("watch cannot prompt for manual input; use run --source manual")
	}
	live, err := policy.NewLive(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Keep info logs off the terminal the view is drawing on.
	quiet := logger
	if !verbose {
		quiet = logger.WithOptions(zap.IncreaseLevel(zap.ErrorLevel))
	}

	sigCtx, cancelSig := signalContext()
	defer cancelSig()
	ctx, stop := context.WithCancel(sigCtx)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	if !watchNoReload {
		reloader, err := policy.NewReloader(live, quiet, live.Path())
		if err != nil {
			return err
		}
		g.Go(func() error { return reloader.Run(gctx) })
	}

	var p *pipeline
	start := func(ctx context.Context, rep monitor.Reporter) (*monitor.Handle, error) {
		cfg, engine, hash := live.Current()
		var err error
		p, err = newPipeline(loopOptions{
			Source:    watchSource,
			Scenario:  watchScenario,
			Seed:      watchSeed,
			Steps:     watchSteps,
			Interval:  watchInterval,
			AuditLog:  watchAuditLog,
			HistoryDB: watchHistoryDB,
			PlotSize:  200,
			Logger:    quiet,
		}, live, cfg, engine, hash, rep)
		if err != nil {
			return nil, err
		}
		return p.loop.Start(ctx), nil
	}

	var summary monitor.Summary
	g.Go(func() error {
		defer stop()
		var err error
		summary, err = tui.Run(gctx, tui.Options{
			Source:    watchSource,
			Threshold: live.Engine().AlarmThreshold(),
			Output:    cmd.OutOrStdout(),
		}, start, tea.WithAltScreen(), tea.WithContext(gctx))
		return err
	})

	err = g.Wait()
	if p != nil {
		if cerr := p.Close(); cerr != nil && err == nil {
			err = cerr
		}
		printSummary(cmd.ErrOrStderr(), p.runID, summary, live.Engine().Classifier().Labels())
	}
	return err
}
