// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package notify tells subscribed browsers when a session starts
// waiting for input.
//
// [Gate] remembers the last classified state of every session and
// fires only on a transition into selection or prompt from a different
// state. A session with no recorded state counts as changed, so one
// first seen on a menu notifies once. [Gate.Seed] records a state
// without notifying; the daemon seeds adopted sessions on restart so
// sessions already waiting are not announced again.
//
// Delivery is asynchronous and best-effort. A [Pusher] reporting
// [ErrEndpointGone] causes the endpoint to be dropped from every
// subscription; other failures are logged.
//
// [Store] persists subscriptions in push.db. [WebPush] delivers through
// the Web Push protocol with VAPID keys from [LoadOrCreateVAPID].
package notify
