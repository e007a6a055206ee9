package jobrequest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/models"
	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/observability"
)

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok, "%s is %T", name, m.Data)
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestTransitionTelemetry(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	f.svc.Tel = observability.New(tp, mp)

	req, err := f.svc.Create(ctx, f.worker.ID, f.job.ID)
	require.NoError(t, err)

	_, err = f.svc.Transition(ctx, req.ID, models.RequestStateCompleted)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counterTotal(t, reader, "market.payments.settled"))

	_, err = f.svc.Transition(ctx, req.ID, models.RequestStateCompleted)
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.EqualValues(t, 1, counterTotal(t, reader, "market.payments.settled"))
	assert.EqualValues(t, 2, counterTotal(t, reader, "market.request.transitions"))

	var transitions []sdktrace.ReadOnlySpan
	for _, s := range spans.Ended() {
		if s.Name() == "jobrequest.transition" {
			transitions = append(transitions, s)
		}
	}
	require.Len(t, transitions, 2)
	assert.Equal(t, codes.Unset, transitions[0].Status().Code)
	assert.Equal(t, codes.Error, transitions[1].Status().Code)
	require.NotEmpty(t, transitions[1].Events())
	assert.Equal(t, "exception", transitions[1].Events()[0].Name)
}
