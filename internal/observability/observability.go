// Package observability wraps OpenTelemetry for the job request workflow.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Windi-Fikriyansyah/gigmarket_be"

const (
	AttrJobRequestID = "market.job_request.id"
	AttrStateRefID   = "market.request_state_ref.id"
	AttrClientID     = "market.client.id"
	AttrAdJobID      = "market.ad_job.id"
)

// Telemetry bundles the tracer and the workflow counters.
type Telemetry struct {
	tracer trace.Tracer

	transitions     metric.Int64Counter
	paymentsSettled metric.Int64Counter
	ratings         metric.Int64Counter
}

// New builds Telemetry from explicit providers.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	meter := mp.Meter(instrumentationName)
	t := &Telemetry{tracer: tp.Tracer(instrumentationName)}

	var err error
	t.transitions, err = meter.Int64Counter(
		"market.request.transitions",
		metric.WithDescription("Request state entries appended"),
		metric.WithUnit("{state}"),
	)
	if err != nil {
		t.transitions, _ = meter.Int64Counter("market.request.transitions")
	}
	t.paymentsSettled, err = meter.Int64Counter(
		"market.payments.settled",
		metric.WithDescription("Escrow releases created on completion"),
		metric.WithUnit("{payment}"),
	)
	if err != nil {
		t.paymentsSettled, _ = meter.Int64Counter("market.payments.settled")
	}
	t.ratings, err = meter.Int64Counter(
		"market.ratings.submitted",
		metric.WithDescription("Job ratings inserted or overwritten"),
		metric.WithUnit("{rating}"),
	)
	if err != nil {
		t.ratings, _ = meter.Int64Counter("market.ratings.submitted")
	}
	return t
}

// Global uses whatever providers are registered with otel; no-ops by default.
func Global() *Telemetry {
	return New(otel.GetTracerProvider(), otel.GetMeterProvider())
}

func (t *Telemetry) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// End records err on the span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (t *Telemetry) TransitionRecorded(ctx context.Context, refID uint) {
	t.transitions.Add(ctx, 1, metric.WithAttributes(attribute.Int(AttrStateRefID, int(refID))))
}

func (t *Telemetry) PaymentSettled(ctx context.Context) {
	t.paymentsSettled.Add(ctx, 1)
}

func (t *Telemetry) RatingSubmitted(ctx context.Context, ratingTypeID uint) {
	t.ratings.Add(ctx, 1, metric.WithAttributes(attribute.Int("market.rating_type.id", int(ratingTypeID))))
}
