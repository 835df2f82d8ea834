// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for agentdeck packages.
//
// [SocketDir] creates a short directory under /tmp for Unix sockets,
// which are limited to 108-byte paths. [RequireReceive],
// [RequireClosed] and [RequireEventually] wrap the select-with-timeout
// pattern so tests never call time.After directly. [UniqueID] produces
// distinct names for sessions and endpoints.
//
// All helpers call t.Fatalf on failure.
package testutil
