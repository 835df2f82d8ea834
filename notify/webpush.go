// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// VAPIDKeys identify this server to push services. Both keys are
// unpadded URL-safe base64; PublicKey is what browsers pass as
// applicationServerKey.
type VAPIDKeys struct {
	PublicKey  string `json:"public_key"`
	PrivateKey string `json:"private_key"`
}

// LoadOrCreateVAPID reads the key pair from path, generating and
// writing a new pair (mode 0600) when the file does not exist. created
// reports whether a new pair was generated.
func LoadOrCreateVAPID(path string) (keys VAPIDKeys, created bool, err error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &keys); err != nil {
			return VAPIDKeys{}, false, fmt.Errorf("parsing VAPID keys %s: %w", path, err)
		}
		if keys.PublicKey == "" || keys.PrivateKey == "" {
			return VAPIDKeys{}, false, fmt.Errorf("VAPID keys %s: public_key and private_key are required", path)
		}
		return keys, false, nil
	case !errors.Is(err, fs.ErrNotExist):
		return VAPIDKeys{}, false, fmt.Errorf("reading VAPID keys: %w", err)
	}

	keys.PrivateKey, keys.PublicKey, err = webpush.GenerateVAPIDKeys()
	if err != nil {
		return VAPIDKeys{}, false, fmt.Errorf("generating VAPID keys: %w", err)
	}
	data, err = json.MarshalIndent(keys, "", "  ")
	if err != nil {
		return VAPIDKeys{}, false, err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o600); err != nil {
		return VAPIDKeys{}, false, fmt.Errorf("writing VAPID keys: %w", err)
	}
	return keys, true, nil
}

// WebPushConfig holds the parameters of a WebPush sender.
type WebPushConfig struct {
	Keys VAPIDKeys

	// Subscriber is the contact push services may use, a mailto: or
	// https: URL.
	Subscriber string

	// TTL is how long the push service keeps an undelivered message.
	TTL time.Duration

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient webpush.HTTPClient
}

// WebPush is a Pusher speaking the Web Push protocol.
type WebPush struct {
	options webpush.Options
}

// NewWebPush returns a sender. It does not contact anything.
func NewWebPush(cfg WebPushConfig) (*WebPush, error) {
	if cfg.Keys.PublicKey == "" || cfg.Keys.PrivateKey == "" {
		return nil, fmt.Errorf("notify: VAPID keys are required")
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &WebPush{
		options: webpush.Options{
			HTTPClient:      client,
			Subscriber:      cfg.Subscriber,
			TTL:             int(cfg.TTL / time.Second),
			Urgency:         webpush.UrgencyHigh,
			VAPIDPublicKey:  cfg.Keys.PublicKey,
			VAPIDPrivateKey: cfg.Keys.PrivateKey,
		},
	}, nil
}

// Push encrypts payload for the subscription and posts it to the
// subscription's endpoint. A 404 or 410 answer is ErrEndpointGone.
func (w *WebPush) Push(ctx context.Context, subscription Subscription, payload []byte) error {
	options := w.options
	response, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: subscription.Endpoint,
		Keys: webpush.Keys{
			P256dh: subscription.P256dh,
			Auth:   subscription.Auth,
		},
	}, &options)
	if err != nil {
		return fmt.Errorf("push to %s: %w", endpointHost(subscription.Endpoint), err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusNotFound || response.StatusCode == http.StatusGone:
		return fmt.Errorf("push to %s: %w (HTTP %d)", endpointHost(subscription.Endpoint), ErrEndpointGone, response.StatusCode)
	case response.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(response.Body, 512))
		return fmt.Errorf("push to %s: HTTP %d: %s",
			endpointHost(subscription.Endpoint), response.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// endpointHost keeps the per-subscription path out of error messages.
func endpointHost(endpoint string) string {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return "push service"
	}
	return parsed.Host
}
