package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/evolon-market/internal/metrics"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Instrumented records a span, a latency sample and an outcome count per call.
type Instrumented struct {
	next    Gateway
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewInstrumented(next Gateway, m *metrics.Metrics) *Instrumented {
	return &Instrumented{
		next:    next,
		metrics: m,
		tracer:  otel.Tracer("marketplace.payment"),
	}
}

func (g *Instrumented) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, memo string) (Intent, error) {
	ctx, span := g.tracer.Start(ctx, "payment.create_intent", trace.WithAttributes(
		attribute.String("payment.amount", amount.String()),
		attribute.String("payment.currency", currency),
	))
	defer span.End()

	start := time.Now()
	in, err := g.next.CreateIntent(ctx, amount, currency, memo)
	g.observe(span, "create_intent", start, err)
	if err == nil {
		span.SetAttributes(attribute.String("payment.reference", in.Reference))
	}
	return in, err
}

func (g *Instrumented) IsSettled(ctx context.Context, reference string) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "payment.is_settled", trace.WithAttributes(
		attribute.String("payment.reference", reference),
	))
	defer span.End()

	start := time.Now()
	settled, err := g.next.IsSettled(ctx, reference)
	g.observe(span, "is_settled", start, err)
	span.SetAttributes(attribute.Bool("payment.settled", settled))
	return settled, err
}

func (g *Instrumented) observe(span trace.Span, op string, start time.Time, err error) {
	g.metrics.GatewayDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	outcome := "ok"
	switch {
	case errors.Is(err, ErrUnavailable):
		outcome = "unavailable"
	case err != nil:
		outcome = "error"
	}
	g.metrics.GatewayRequests.WithLabelValues(op, outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
}
