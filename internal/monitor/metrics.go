package monitor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/ppiankov/hazardwatch/internal/monitor"

// instruments are the loop's OpenTelemetry instruments. With no provider
// configured the global meter is a no-op.
type instruments struct {
	steps       metric.Int64Counter
	alarms      metric.Int64Counter
	failures    metric.Int64Counter
	probability metric.Float64Histogram
}

func newInstruments(mp metric.MeterProvider) instruments {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	steps, _ := meter.Int64Counter("hazardwatch_steps_total",
		metric.WithDescription("Monitoring steps completed, by decision label"))
	alarms, _ := meter.Int64Counter("hazardwatch_alarms_total",
		metric.WithDescription("Steps whose probability exceeded the alarm threshold"))
	failures, _ := meter.Int64Counter("hazardwatch_step_failures_total",
		metric.WithDescription("Steps aborted by a source or domain error"))
	probability, _ := meter.Float64Histogram("hazardwatch_danger_probability",
		metric.WithDescription("Danger probability per step"),
		metric.WithExplicitBucketBoundaries(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9))

	return instruments{steps: steps, alarms: alarms, failures: failures, probability: probability}
}

func (in instruments) record(ctx context.Context, source string, s Step) {
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("label", string(s.Decision.Label)),
	)
	in.steps.Add(ctx, 1, attrs)
	in.probability.Record(ctx, s.Probability, metric.WithAttributes(attribute.String("source", source)))
	if s.Alarm {
		in.alarms.Add(ctx, 1, attrs)
	}
}

func (in instruments) fail(ctx context.Context, source, stage string) {
	in.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("stage", stage),
	))
}
