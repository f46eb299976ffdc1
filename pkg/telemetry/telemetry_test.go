package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), "", "rundemo", "test", false)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestNewInstrumentsDefaultMeter(t *testing.T) {
	in, err := NewInstruments(nil)
	require.NoError(t, err)
	assert.NotNil(t, in.Requests)
	assert.NotNil(t, in.Duration)
	assert.NotNil(t, in.StressRuns)
	assert.NotNil(t, in.StressIteration)
}

func TestInstrumentsRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	in, err := NewInstruments(mp.Meter(Scope))
	require.NoError(t, err)

	ctx := context.Background()
	in.StressRuns.Add(ctx, 1)
	in.StressIteration.Add(ctx, 500)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	got := map[string]int64{}
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
			for _, dp := range sum.DataPoints {
				got[m.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(1), got["rundemo.stress.runs"])
	assert.Equal(t, int64(500), got["rundemo.stress.iterations"])
}
