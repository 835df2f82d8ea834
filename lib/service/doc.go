// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the agentdeck control socket: a CBOR
// request-response protocol on a Unix socket, one request per
// connection.
//
// The daemon registers an [ActionFunc] per action on a [SocketServer];
// the CLI talks to it through a [ServiceClient]. Every request is a
// CBOR map with an "action" field plus action-specific fields, and
// every response is a [Response] envelope. Request and response types
// live in lib/schema.
//
// The socket is created with mode 0600. Anyone who can connect can
// drive every session, so the socket directory must be private to the
// user running the daemon.
package service
