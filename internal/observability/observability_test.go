package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

func TestNoopTelemetry(t *testing.T) {
	tel := New(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())

	ctx, span := tel.Start(context.Background(), "jobrequest.transition")
	assert.NotNil(t, ctx)

	tel.TransitionRecorded(ctx, 4)
	tel.PaymentSettled(ctx)
	tel.RatingSubmitted(ctx, 1)

	assert.NotPanics(t, func() { End(span, errors.New("boom")) })
}

func TestGlobalDefaultsToNoop(t *testing.T) {
	tel := Global()
	_, span := tel.Start(context.Background(), "x")
	assert.False(t, span.SpanContext().IsValid())
	End(span, nil)
}
