/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package metrics provides the instruments recorded by reconciliation passes
// and hook deliveries.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
)

// Name is the instrumentation scope used for meters and tracers.
const Name = "chainguard.dev/buildtrigger"

// Pass results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

var (
	hookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildtrigger_hook_deliveries_total",
			Help: "Push notifications received, by event type and result",
		},
		[]string{"event", "result"},
	)

	requestsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "buildtrigger_requests_total",
			Help: "Build requests emitted, by trigger, entity kind and source",
		},
		[]string{"trigger", "kind", "source"},
	)
)

// HookDelivery records a push notification delivery.
func HookDelivery(event, result string) {
	hookDeliveries.WithLabelValues(event, result).Inc()
}

// RequestEmitted records a build request handed to the enqueuer. source is
// "poll" or "hook".
func RequestEmitted(triggerID, kind, source string) {
	requestsEmitted.WithLabelValues(triggerID, kind, source).Inc()
}

// Reconciler holds the OpenTelemetry instruments of reconciliation passes.
// Instruments that fail to initialize are replaced by no-ops.
type Reconciler struct {
	tracer    trace.Tracer
	passes    metric.Int64Counter
	decisions metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewReconciler creates the reconciliation instruments on the global meter
// and tracer providers.
func NewReconciler() *Reconciler {
	meter := otel.Meter(Name, metric.WithInstrumentationVersion("1.0.0"))

	passes, err := meter.Int64Counter("buildtrigger.pass",
		metric.WithDescription("The number of reconciliation passes"),
		metric.WithUnit("{passes}"))
	if err != nil {
		slog.Warn("Failed to create pass counter, metrics will be disabled", "error", err)
		passes = noop.Int64Counter{}
	}

	decisions, err := meter.Int64Counter("buildtrigger.decisions",
		metric.WithDescription("The number of rule chain evaluations, by outcome"),
		metric.WithUnit("{evaluations}"))
	if err != nil {
		slog.Warn("Failed to create decision counter, metrics will be disabled", "error", err)
		decisions = noop.Int64Counter{}
	}

	duration, err := meter.Float64Histogram("buildtrigger.pass.duration",
		metric.WithDescription("The wall-clock duration of reconciliation passes"),
		metric.WithUnit("s"))
	if err != nil {
		slog.Warn("Failed to create pass duration histogram, metrics will be disabled", "error", err)
		duration = noop.Float64Histogram{}
	}

	return &Reconciler{
		tracer:    otel.Tracer(Name),
		passes:    passes,
		decisions: decisions,
		duration:  duration,
	}
}

// StartPass starts the span of a pass. The returned function ends it and
// records the pass with its result.
func (r *Reconciler) StartPass(ctx context.Context, triggerID, kind string) (context.Context, func(err error)) {
	attrs := []attribute.KeyValue{
		attribute.String("trigger", triggerID),
		attribute.String("kind", kind),
	}
	ctx, span := r.tracer.Start(ctx, "reconcile "+kind, trace.WithAttributes(attrs...))
	start := time.Now()

	return ctx, func(err error) {
		result := ResultSuccess
		if err != nil {
			result = ResultError
			span.RecordError(err)
		}
		span.End()

		r.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		r.passes.Add(ctx, 1, metric.WithAttributes(append(attrs, attribute.String("result", result))...))
	}
}

// RecordDecision records the outcome of one chain evaluation.
func (r *Reconciler) RecordDecision(ctx context.Context, triggerID, kind, outcome string) {
	r.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", triggerID),
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}
