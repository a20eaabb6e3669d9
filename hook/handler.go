/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package hook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"chainguard.dev/buildtrigger/metrics"
	"chainguard.dev/buildtrigger/trigger"
	"github.com/chainguard-dev/clog"
	"github.com/google/go-github/v84/github"
)

// Enqueuer accepts build requests.
type Enqueuer interface {
	Enqueue(ctx context.Context, req trigger.Request) error
}

// Delivery results recorded in metrics.
const (
	resultAccepted     = "accepted"
	resultIgnored      = "ignored"
	resultUnauthorized = "unauthorized"
	resultInvalid      = "invalid"
	resultEnqueueError = "enqueue_error"
)

// Handler serves GitHub webhook deliveries.
//
// It answers 202 with the IDs of the requests it enqueued, 204 for
// deliveries it has nothing to do with, 401 when the signature does not
// verify and 400 for malformed payloads.
type Handler struct {
	dispatcher *Dispatcher
	enqueuer   Enqueuer
	secret     []byte
}

var _ http.Handler = (*Handler)(nil)

// NewHandler returns a Handler verifying deliveries with secret. An empty
// secret disables verification.
func NewHandler(d *Dispatcher, enq Enqueuer, secret []byte) *Handler {
	return &Handler{dispatcher: d, enqueuer: enq, secret: secret}
}

type response struct {
	Requests []string `json:"requests"`
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventType := github.WebHookType(r)
	log := clog.FromContext(ctx).With("event", eventType, "delivery", github.DeliveryID(r))

	body, err := github.ValidatePayload(r, h.secret)
	if err != nil {
		log.Warnf("Rejecting delivery: %v", err)
		metrics.HookDelivery(eventType, resultUnauthorized)
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	p, err := ParseGitHub(eventType, body)
	if errors.Is(err, ErrIgnored) {
		log.Debugf("Ignoring delivery: %v", err)
		metrics.HookDelivery(eventType, resultIgnored)
		w.WriteHeader(http.StatusNoContent)
		return
	} else if err != nil {
		log.Warnf("Malformed delivery: %v", err)
		metrics.HookDelivery(eventType, resultInvalid)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp := response{Requests: []string{}}
	var errs []error
	for _, req := range h.dispatcher.Dispatch(ctx, p) {
		if err := h.enqueuer.Enqueue(ctx, req); err != nil {
			log.With("request", req.ID).Errorf("Failed to enqueue build: %v", err)
			errs = append(errs, err)
			continue
		}
		resp.Requests = append(resp.Requests, req.ID)
	}
	if len(errs) > 0 {
		metrics.HookDelivery(eventType, resultEnqueueError)
		http.Error(w, errors.Join(errs...).Error(), http.StatusInternalServerError)
		return
	}

	metrics.HookDelivery(eventType, resultAccepted)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Warnf("Failed to write response: %v", err)
	}
}
