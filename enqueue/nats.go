/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package enqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"chainguard.dev/buildtrigger/trigger"
	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the NATS enqueuer uses.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

var _ Publisher = (*nats.Conn)(nil)

// Message is the JSON body published for a build request.
type Message struct {
	ID         string            `json:"id"`
	TriggerID  string            `json:"triggerId"`
	Repository string            `json:"repository"`
	Kind       string            `json:"kind"`
	Key        string            `json:"key"`
	Parameters map[string]string `json:"parameters"`
	Time       time.Time         `json:"time"`
}

// NATS publishes build requests on "<prefix>.<trigger-id>".
type NATS struct {
	pub    Publisher
	prefix string
	now    func() time.Time
}

var _ Enqueuer = (*NATS)(nil)

// NewNATS returns an Enqueuer publishing through pub.
func NewNATS(pub Publisher, prefix string) *NATS {
	return &NATS{pub: pub, prefix: strings.TrimSuffix(prefix, "."), now: time.Now}
}

// Connect dials the NATS server at url.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("buildtrigger"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// Subject returns the subject requests of triggerID are published on.
func (n *NATS) Subject(triggerID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, triggerID)
	return n.prefix + "." + token
}

// Enqueue implements Enqueuer. The request ID is sent as Nats-Msg-Id so that
// JetStream streams deduplicate redeliveries.
func (n *NATS) Enqueue(_ context.Context, req trigger.Request) error {
	data, err := json.Marshal(Message{
		ID:         req.ID,
		TriggerID:  req.TriggerID,
		Repository: req.Repository.FullName(),
		Kind:       req.Kind.String(),
		Key:        req.Key,
		Parameters: Parameters(req),
		Time:       n.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding request %s: %w", req.ID, err)
	}

	msg := nats.NewMsg(n.Subject(req.TriggerID))
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, req.ID)
	if err := n.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing request %s: %w", req.ID, err)
	}
	return nil
}
