package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/fuzzy"
	"github.com/ppiankov/hazardwatch/internal/model"
	"github.com/ppiankov/hazardwatch/internal/policy"
)

// Source supplies the evidence for one step. Implementations may block
// (manual entry) but should return promptly once ctx is cancelled.
type Source interface {
	Next(ctx context.Context, step int) (model.Evidence, error)
}

// Assessor scores and classifies one observation. *policy.Engine satisfies it.
type Assessor interface {
	Assess(ev model.Evidence) (policy.Assessment, error)
}

// State is the loop lifecycle: Idle → Running → Stopped.
type State int32

const (
	Idle State = iota
	Running
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

var ErrAlreadyStarted = errors.New("monitor: loop already started")

// Config holds loop cadence.
type Config struct {
	// Interval is the delay after each reported step. Zero means no delay.
	Interval time.Duration
	// Steps bounds the run. Zero runs until the context is cancelled.
	Steps int
	// SourceName labels logs and metrics (random, scenario, manual).
	SourceName string
}

// Summary aggregates what a run reported.
type Summary struct {
	Steps          int                 `json:"steps"`
	LabelCounts    map[fuzzy.Label]int `json:"label_counts"`
	Alarms         int                 `json:"alarms"`
	MaxProbability float64             `json:"max_probability"`
	LastLabel      fuzzy.Label         `json:"last_label,omitempty"`
}

func (s *Summary) add(step Step) {
	s.Steps++
	s.LabelCounts[step.Decision.Label]++
	if step.Alarm {
		s.Alarms++
	}
	if step.Probability > s.MaxProbability {
		s.MaxProbability = step.Probability
	}
	s.LastLabel = step.Decision.Label
}

// Option configures a Loop.
type Option func(*Loop)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(lp *Loop) {
		if l != nil {
			lp.logger = l
		}
	}
}

// WithMeterProvider overrides the global OpenTelemetry meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(lp *Loop) { lp.meterProvider = mp }
}

// Loop drives Source → Assessor → Reporter at a fixed cadence.
// A Loop runs once; build a new one for another run.
type Loop struct {
	cfg           Config
	src           Source
	engine        Assessor
	rep           Reporter
	logger        *zap.Logger
	meterProvider metric.MeterProvider
	inst          instruments
	state         atomic.Int32
}

// New creates an idle Loop.
func New(cfg Config, src Source, engine Assessor, rep Reporter, opts ...Option) (*Loop, error) {
	if src == nil {
		return nil, errors.New("monitor: nil source")
	}
	if engine == nil {
		return nil, errors.New("monitor: nil engine")
	}
	if rep == nil {
		return nil, errors.New("monitor: nil reporter")
	}
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("monitor: negative step bound %d", cfg.Steps)
	}
	if cfg.Interval < 0 {
		return nil, fmt.Errorf("monitor: negative interval %s", cfg.Interval)
	}
	if cfg.SourceName == "" {
		cfg.SourceName = "custom"
	}

	l := &Loop{
		cfg:    cfg,
		src:    src,
		engine: engine,
		rep:    rep,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.inst = newInstruments(l.meterProvider)
	return l, nil
}

// State reports the lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Run executes the loop on the calling goroutine until the step bound is
// reached or ctx is cancelled. Cancellation is checked at the top of each
// tick and during the inter-step delay, never mid-step, and is a normal stop
// (nil error). Source and domain errors stop the loop and are returned.
func (l *Loop) Run(ctx context.Context) (Summary, error) {
	summary := Summary{LabelCounts: make(map[fuzzy.Label]int)}
	if !l.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return summary, ErrAlreadyStarted
	}
	defer l.state.Store(int32(Stopped))

	log := l.logger.With(zap.String("source", l.cfg.SourceName))
	log.Info("monitor started",
		zap.Int("steps", l.cfg.Steps),
		zap.Duration("interval", l.cfg.Interval))

	for i := 0; l.cfg.Steps == 0 || i < l.cfg.Steps; i++ {
		if ctx.Err() != nil {
			break
		}

		step, err := l.tick(ctx, i)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				break
			}
			log.Error("monitor step failed", zap.Int("step", i), zap.Error(err))
			return summary, err
		}
		summary.add(step)

		if l.cfg.Steps > 0 && i == l.cfg.Steps-1 {
			break
		}
		if !l.wait(ctx) {
			break
		}
	}

	log.Info("monitor stopped",
		zap.Int("steps", summary.Steps),
		zap.Int("alarms", summary.Alarms),
		zap.Float64("max_probability", summary.MaxProbability))
	return summary, nil
}

// tick runs one Source → Assess → Report pass.
func (l *Loop) tick(ctx context.Context, i int) (Step, error) {
	ev, err := l.src.Next(ctx, i)
	if err != nil {
		l.inst.fail(ctx, l.cfg.SourceName, "source")
		return Step{}, fmt.Errorf("step %d: source: %w", i, err)
	}

	a, err := l.engine.Assess(ev)
	if err != nil {
		l.inst.fail(ctx, l.cfg.SourceName, "assess")
		return Step{}, fmt.Errorf("step %d: %w", i, err)
	}

	step := Step{
		Index:       i,
		At:          time.Now().UTC(),
		Evidence:    ev,
		Raw:         a.Raw,
		Probability: a.Probability,
		Decision:    a.Decision,
		Alarm:       a.Alarm,
	}
	l.rep.Report(step)
	l.inst.record(ctx, l.cfg.SourceName, step)

	l.logger.Debug("monitor step",
		zap.Int("step", i),
		zap.Stringer("evidence", ev),
		zap.Float64("probability", a.Probability),
		zap.String("label", string(a.Decision.Label)),
		zap.Bool("alarm", a.Alarm))
	return step, nil
}

// wait sleeps for the interval; false means ctx was cancelled meanwhile.
func (l *Loop) wait(ctx context.Context) bool {
	if l.cfg.Interval == 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(l.cfg.Interval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// Handle controls a loop running in the background.
type Handle struct {
	cancel  context.CancelFunc
	done    chan struct{}
	summary Summary
	err     error
}

// Start runs the loop on a new goroutine and returns immediately.
// The goroutine never blocks process exit; Stop or cancel ctx to end it.
func (l *Loop) Start(ctx context.Context) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.summary, h.err = l.Run(ctx)
	}()
	return h
}

// Stop signals the loop to end at its next cancellation check.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed when the loop has stopped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the loop stops and returns its result.
func (h *Handle) Wait() (Summary, error) {
	<-h.done
	return h.summary, h.err
}
