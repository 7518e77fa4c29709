package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestRun_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	r := NewWithProvider(provider, "")

	ctx := context.Background()
	r.RecordOutcome(ctx, "gpt-4o", "answered")
	r.RecordOutcome(ctx, "gpt-4o", "answered")
	r.RecordOutcome(ctx, "gpt-4o", "missing_asset")
	r.RecordLatency(ctx, "gpt-4o", 250*time.Millisecond, false)
	r.RecordTokens(ctx, "gpt-4o", 100, 20)

	got := collect(t, reader)

	outcomes, ok := got["eqa.questions"]
	require.True(t, ok)
	sum, ok := outcomes.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, sum.DataPoints, 2)

	latency, ok := got["eqa.backend.latency"]
	require.True(t, ok)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)

	_, ok = got["eqa.backend.tokens"]
	assert.True(t, ok)
}

func TestRun_NilAndNoop(t *testing.T) {
	var r *Run
	assert.NotPanics(t, func() {
		r.RecordOutcome(context.Background(), "m", "answered")
		r.RecordLatency(context.Background(), "m", time.Second, true)
		r.RecordTokens(context.Background(), "m", 1, 1)
	})
	assert.NotPanics(t, func() {
		Noop().RecordOutcome(context.Background(), "m", "failed")
	})
}
