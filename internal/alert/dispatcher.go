package alert

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/hazardwatch/internal/ratelimit"
)

// Dispatcher fans out alert events to matching webhook configurations.
type Dispatcher struct {
	configs []AlertConfig
	logger  *zap.Logger
	limits  *ratelimit.Tracker
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []AlertConfig, logger *zap.Logger) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		configs: configs,
		logger:  logger,
		limits:  ratelimit.NewTracker(),
		now:     time.Now,
	}
}

// Dispatch sends the event to all webhooks whose Events list matches.
// Matching is on the label (case-insensitive) or "alarm" for alarm steps.
// Webhooks with a rate_limit drop events past their window budget.
// Deliveries run on their own goroutines so the caller never blocks.
func (d *Dispatcher) Dispatch(event AlertEvent) {
	for i, cfg := range d.configs {
		if !matches(cfg.Events, event) {
			continue
		}
		if res := d.limits.Allow(strconv.Itoa(i), cfg.RateLimit, d.now()); res.Exceeded {
			d.logger.Debug("alert suppressed",
				zap.String("url", cfg.URL),
				zap.Int("step", event.Step),
				zap.String("reason", res.Reason))
			continue
		}
		d.wg.Add(1)
		go func(cfg AlertConfig) {
			defer d.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
			defer cancel()
			if err := Send(ctx, cfg, event); err != nil {
				d.logger.Warn("alert delivery failed",
					zap.String("url", cfg.URL),
					zap.Int("step", event.Step),
					zap.Error(err))
			}
		}(cfg)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func matches(events []string, event AlertEvent) bool {
	for _, e := range events {
		if strings.EqualFold(e, event.Label) {
			return true
		}
		if event.Alarm && strings.EqualFold(e, EventAlarm) {
			return true
		}
	}
	return false
}
