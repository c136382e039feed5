package cli

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/alert"
	"github.com/ppiankov/hazardwatch/internal/audit"
	"github.com/ppiankov/hazardwatch/internal/history"
	"github.com/ppiankov/hazardwatch/internal/monitor"
	"github.com/ppiankov/hazardwatch/internal/policy"
	"github.com/ppiankov/hazardwatch/internal/report"
	"github.com/ppiankov/hazardwatch/internal/source"
)

// loopOptions are the flags shared by run and watch.
type loopOptions struct {
	Source    string
	Scenario  string
	Seed      uint64
	Steps     int
	Interval  time.Duration
	AuditLog  string
	HistoryDB string
	PlotSize  int

	In     io.Reader
	Out    io.Writer
	Logger *zap.Logger // nil uses the root logger
}

// pipeline is one wired monitoring run: source, loop and every sink.
type pipeline struct {
	runID   string
	loop    *monitor.Loop
	history *report.History
	alerts  *report.Alert
	closers []func() error
}

// newPipeline wires the loop. display is the primary reporter (console,
// JSON or TUI); persistent sinks are added from opts and the config.
func newPipeline(opts loopOptions, assessor monitor.Assessor, cfg *policy.Config, engine *policy.Engine, hash string, display monitor.Reporter) (*pipeline, error) {
	src, err := source.New(opts.Source, source.Options{
		Schema:       engine.Schema(),
		Seed:         opts.Seed,
		ScenarioPath: opts.Scenario,
		In:           opts.In,
		Out:          opts.Out,
	})
	if err != nil {
		return nil, err
	}

	log := opts.Logger
	if log == nil {
		log = logger
	}

	p := &pipeline{runID: uuid.New().String()}
	reporters := report.Multi{display}

	if opts.HistoryDB != "" {
		store, err := history.Open(opts.HistoryDB)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, store.Close)
		run, err := store.CreateRun(opts.Source, hash)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.runID = run.ID
		reporters = append(reporters, report.NewStore(store, run.ID, log))
	}

	if opts.AuditLog != "" {
		l, err := audit.Open(opts.AuditLog)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.closers = append(p.closers, l.Close)
		reporters = append(reporters, report.NewAudit(l, p.runID, hash, log))
	}

	if d := alert.NewDispatcher(cfg.Alerts, log); d != nil {
		p.alerts = report.NewAlert(d, engine.Classifier(), p.runID, hash)
		reporters = append(reporters, p.alerts)
	}

	p.history = report.NewHistory(opts.PlotSize)
	reporters = append(reporters, p.history)

	p.loop, err = monitor.New(monitor.Config{
		Interval:   opts.Interval,
		Steps:      opts.Steps,
		SourceName: opts.Source,
	}, src, assessor, reporters, monitor.WithLogger(log))
	if err != nil {
		p.Close()
		return nil, err
	}

	log.Debug("pipeline ready",
		zap.String("run_id", p.runID),
		zap.String("source", opts.Source),
		zap.Int("reporters", len(reporters)))
	return p, nil
}

// Close flushes alerts and closes the sinks.
func (p *pipeline) Close() error {
	if p.alerts != nil {
		p.alerts.Wait()
	}
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close run %s: %w", p.runID, err)
	}
	return nil
}
