// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the CBOR configuration used on the agentdeck
// control socket.
//
// JSON is used where humans or browsers look (CLI --json output, push
// payloads); CBOR is used between the CLI and the daemon. Every
// package encodes through this one configuration: Core Deterministic
// Encoding on the way out, map[string]any for untyped maps on the way
// in, and unknown fields ignored so older clients keep working.
package codec
