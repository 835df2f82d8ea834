// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// SubscribeRequest registers a browser push subscription for one
// session. P256dh and Auth are the base64url keys from the browser's
// PushSubscription.
type SubscribeRequest struct {
	Endpoint string `cbor:"endpoint"`
	P256dh   string `cbor:"p256dh"`
	Auth     string `cbor:"auth"`
	Session  string `cbor:"session"`
}

// UnsubscribeRequest removes one (endpoint, session) subscription.
type UnsubscribeRequest struct {
	Endpoint string `cbor:"endpoint"`
	Session  string `cbor:"session"`
}

// EndpointRequest names a push endpoint.
type EndpointRequest struct {
	Endpoint string `cbor:"endpoint"`
}

// SubscriptionsResponse lists the sessions an endpoint is subscribed to.
type SubscriptionsResponse struct {
	Sessions []string `json:"sessions" cbor:"sessions"`
}

// VAPIDKeyResponse carries the application server key browsers need
// to subscribe.
type VAPIDKeyResponse struct {
	PublicKey string `json:"public_key" cbor:"public_key"`
}
