/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestHookDelivery(t *testing.T) {
	c := hookDeliveries.WithLabelValues("pull_request", "accepted")
	before := counterValue(t, c)

	HookDelivery("pull_request", "accepted")
	HookDelivery("pull_request", "accepted")
	HookDelivery("push", "ignored")

	if got := counterValue(t, c) - before; got != 2 {
		t.Errorf("pull_request/accepted delta = %v, want 2", got)
	}
}

func TestRequestEmitted(t *testing.T) {
	c := requestsEmitted.WithLabelValues("t1", "branch", "poll")
	before := counterValue(t, c)
	RequestEmitted("t1", "branch", "poll")
	if got := counterValue(t, c) - before; got != 1 {
		t.Errorf("delta = %v, want 1", got)
	}

	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() = %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "buildtrigger_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("buildtrigger_requests_total not registered with the default gatherer")
	}
}

func TestReconcilerWithoutProvider(t *testing.T) {
	// The global providers default to no-ops; recording must still work.
	r := NewReconciler()
	ctx, end := r.StartPass(context.Background(), "t1", "branch")
	r.RecordDecision(ctx, "t1", "branch", "decided")
	end(nil)

	_, end = r.StartPass(context.Background(), "t1", "tag")
	end(errors.New("fetch failed"))
}
