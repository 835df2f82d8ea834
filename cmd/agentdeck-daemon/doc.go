// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// agentdeck-daemon runs the agent session deck: it creates and adopts
// tmux sessions running coding agents, captures their output into a
// searchable SQLite ledger, classifies what each agent is waiting for,
// and sends a Web Push notification when one needs input.
//
// Clients (the agentdeck CLI, a web front end) talk to it over a CBOR
// control socket; see lib/service and lib/schema.
//
// State lives under the configured state directory:
//
//	output.db       captured output and its full-text index
//	push.db         push subscriptions
//	vapid.json      VAPID key pair, created on first start
//	recent_dirs     recently used working directories
//	agentdeck.lock  held while a daemon runs
//	agentdeck.sock  control socket (unless socket_path is set)
//
// Stopping the daemon leaves the tmux sessions running; the next start
// adopts them.
package main
