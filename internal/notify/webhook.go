// Package notify delivers backend events (new contact requests, accepted
// contacts, chat messages) to an optional external webhook. Delivery is
// fire-and-forget: a failing or slow webhook never blocks or fails the
// request that produced the event, and a circuit breaker stops hammering
// an endpoint that keeps failing.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Event kinds emitted by the backend.
const (
	EventContactRequest  = "contact.request"
	EventContactAccepted = "contact.accepted"
	EventMessageCreated  = "message.created"
)

// Event is the JSON payload posted to the webhook.
type Event struct {
	ID   string      `json:"id"`
	Kind string      `json:"kind"`
	At   time.Time   `json:"at"`
	Data interface{} `json:"data"`
}

// Notifier posts events to a webhook URL. The zero-value-equivalent
// returned for an empty URL is a no-op.
type Notifier struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewNotifier creates a webhook notifier. An empty URL disables delivery
// entirely.
func NewNotifier(url string) *Notifier {
	if url == "" {
		return &Notifier{}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "webhook",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logrus.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("webhook circuit breaker state changed")
		},
	})

	return &Notifier{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		breaker: breaker,
	}
}

// Enabled reports whether a webhook URL is configured.
func (n *Notifier) Enabled() bool {
	return n.url != ""
}

// Emit queues an event for delivery and returns immediately. Failures are
// logged, counted by the breaker, and otherwise dropped.
func (n *Notifier) Emit(kind string, data interface{}) {
	if !n.Enabled() {
		return
	}

	event := Event{
		ID:   uuid.NewString(),
		Kind: kind,
		At:   time.Now().UTC(),
		Data: data,
	}

	go func() {
		if err := n.deliver(event); err != nil {
			logrus.WithFields(logrus.Fields{
				"event_id": event.ID,
				"kind":     event.Kind,
			}).WithError(err).Debug("webhook delivery failed")
		}
	}()
}

func (n *Notifier) deliver(event Event) error {
	_, err := n.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("notify: failed to marshal event: %w", err)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("notify: failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("notify: webhook returned %s", resp.Status)
		}
		return nil, nil
	})
	return err
}
