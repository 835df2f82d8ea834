// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the request and response types of the
// agentdeck control socket. Both the daemon (server) and the CLI
// (client) use these types, so field names and tags are the wire
// contract. Every type carries cbor tags for the socket and json tags
// for the CLI's --json output.
//
// Timestamps cross the wire as Unix nanoseconds; zero means unset.
// Use [WireTime] and [FromWireTime] to convert.
//
// This package depends on no other agentdeck packages.
package schema
