// Package metrics exposes OpenTelemetry instruments for inference and
// judging runs. Instrument creation failures degrade to no-op instruments.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// MeterName is the instrumentation scope used when none is given.
const MeterName = "github.com/datar-psa/goeqa"

// Run records per-question outcomes and backend latency.
type Run struct {
	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
	tokens   metric.Int64Counter
}

// New creates instruments on the global MeterProvider.
func New(meterName string) *Run {
	return NewWithProvider(otel.GetMeterProvider(), meterName)
}

// NewWithProvider creates instruments on mp.
func NewWithProvider(mp metric.MeterProvider, meterName string) *Run {
	if meterName == "" {
		meterName = MeterName
	}
	meter := mp.Meter(meterName, metric.WithInstrumentationVersion("1.0.0"))

	outcomes, err := meter.Int64Counter("eqa.questions",
		metric.WithDescription("Questions processed, by outcome"),
		metric.WithUnit("{questions}"))
	if err != nil {
		slog.Warn("Failed to create outcome counter, metrics will be disabled", "error", err, "meter", meterName)
		outcomes = noop.Int64Counter{}
	}

	latency, err := meter.Float64Histogram("eqa.backend.latency",
		metric.WithDescription("Latency of a single model backend call"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create latency histogram, metrics will be disabled", "error", err, "meter", meterName)
		latency = noop.Float64Histogram{}
	}

	tokens, err := meter.Int64Counter("eqa.backend.tokens",
		metric.WithDescription("Tokens consumed by model backend calls"),
		metric.WithUnit("{tokens}"))
	if err != nil {
		slog.Warn("Failed to create token counter, metrics will be disabled", "error", err, "meter", meterName)
		tokens = noop.Int64Counter{}
	}

	return &Run{outcomes: outcomes, latency: latency, tokens: tokens}
}

// Noop returns instruments that record nothing.
func Noop() *Run {
	return NewWithProvider(noop.NewMeterProvider(), MeterName)
}

// RecordOutcome counts one processed question.
func (r *Run) RecordOutcome(ctx context.Context, model, outcome string) {
	if r == nil {
		return
	}
	r.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("outcome", outcome),
	))
}

// RecordLatency records the duration of one backend call.
func (r *Run) RecordLatency(ctx context.Context, model string, d time.Duration, failed bool) {
	if r == nil {
		return
	}
	r.latency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("error", failed),
	))
}

// RecordTokens records prompt and completion token usage.
func (r *Run) RecordTokens(ctx context.Context, model string, prompt, completion int64) {
	if r == nil {
		return
	}
	r.tokens.Add(ctx, prompt, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("kind", "prompt"),
	))
	r.tokens.Add(ctx, completion, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("kind", "completion"),
	))
}
