// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/agentdeck/agentdeck/classify"
)

// ErrEndpointGone is returned by a Pusher when the push service reports
// that the subscription no longer exists.
var ErrEndpointGone = errors.New("push endpoint gone")

// Pusher delivers one payload to one subscription.
type Pusher interface {
	Push(ctx context.Context, subscription Subscription, payload []byte) error
}

// Subscriptions is the part of the Store the gate reads and prunes.
type Subscriptions interface {
	ForSession(ctx context.Context, sessionID string) ([]Subscription, error)
	RemoveEndpoint(ctx context.Context, endpoint string) (int, error)
}

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// DefaultDeliveryTimeout bounds one notification's delivery to all of
// its subscriptions.
const DefaultDeliveryTimeout = 30 * time.Second

// GateConfig holds the gate's dependencies.
type GateConfig struct {
	Subscriptions Subscriptions
	Pusher        Pusher

	// PublicURL is the base of the link opened from the notification.
	PublicURL string

	// DeliveryTimeout defaults to DefaultDeliveryTimeout.
	DeliveryTimeout time.Duration

	Logger *slog.Logger
}

// Gate is safe for concurrent use.
type Gate struct {
	subscriptions Subscriptions
	pusher        Pusher
	publicURL     string
	timeout       time.Duration
	logger        *slog.Logger

	mu     sync.Mutex
	last   map[string]classify.State
	closed bool

	deliveries sync.WaitGroup
}

// NewGate returns a gate with no recorded states.
func NewGate(cfg GateConfig) (*Gate, error) {
	if cfg.Subscriptions == nil {
		return nil, fmt.Errorf("notify: Subscriptions is required")
	}
	if cfg.Pusher == nil {
		return nil, fmt.Errorf("notify: Pusher is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("notify: Logger is required")
	}
	timeout := cfg.DeliveryTimeout
	if timeout <= 0 {
		timeout = DefaultDeliveryTimeout
	}
	return &Gate{
		subscriptions: cfg.Subscriptions,
		pusher:        cfg.Pusher,
		publicURL:     strings.TrimSuffix(cfg.PublicURL, "/"),
		timeout:       timeout,
		logger:        cfg.Logger,
		last:          make(map[string]classify.State),
	}, nil
}

// CheckAndNotify records state for the session and, on a transition
// into a state that needs input, starts delivery in the background. A
// session with no recorded state counts as having been in a different
// state, so a session that opens on a menu notifies.
// It reports whether a notification was started. It never blocks on
// delivery.
func (g *Gate) CheckAndNotify(ctx context.Context, sessionID string, state classify.State) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	previous, known := g.last[sessionID]
	g.last[sessionID] = state
	if (known && previous == state) || !state.NeedsInput() || g.closed {
		return false
	}

	g.deliveries.Add(1)
	go func() {
		defer g.deliveries.Done()
		deliveryCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
		g.deliver(deliveryCtx, sessionID, state)
	}()
	return true
}

// Seed records state for a session the gate has not seen, without
// notifying. The daemon seeds sessions it adopts on restart so that a
// session already waiting is not announced again.
func (g *Gate) Seed(sessionID string, state classify.State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, known := g.last[sessionID]; !known {
		g.last[sessionID] = state
	}
}

// Forget drops the recorded state of a session that ended.
func (g *Gate) Forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.last, sessionID)
}

// Close stops accepting notifications and waits for deliveries in
// flight.
func (g *Gate) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
	g.deliveries.Wait()
}

func (g *Gate) deliver(ctx context.Context, sessionID string, state classify.State) {
	subscriptions, err := g.subscriptions.ForSession(ctx, sessionID)
	if err != nil {
		g.logger.Warn("loading push subscriptions failed", "session_id", sessionID, "error", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(g.payload(sessionID))
	if err != nil {
		g.logger.Error("encoding push payload failed", "session_id", sessionID, "error", err)
		return
	}

	var sent int
	for _, subscription := range subscriptions {
		err := g.pusher.Push(ctx, subscription, payload)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, ErrEndpointGone):
			removed, removeErr := g.subscriptions.RemoveEndpoint(ctx, subscription.Endpoint)
			if removeErr != nil {
				g.logger.Warn("removing gone push endpoint failed", "endpoint", subscription.Endpoint, "error", removeErr)
				continue
			}
			g.logger.Info("push endpoint gone, unsubscribed", "endpoint", subscription.Endpoint, "subscriptions", removed)
		default:
			g.logger.Warn("push failed", "session_id", sessionID, "endpoint", subscription.Endpoint, "error", err)
		}
	}
	g.logger.Info("session needs input",
		"session_id", sessionID,
		"state", state,
		"sent", sent,
		"subscriptions", len(subscriptions),
	)
}

func (g *Gate) payload(sessionID string) Payload {
	return Payload{
		Title:     "AgentDeck",
		Body:      sessionID + " needs input",
		SessionID: sessionID,
		URL:       g.publicURL + "/?session=" + url.QueryEscape(sessionID),
	}
}
