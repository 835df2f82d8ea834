// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds binary entrypoint helpers: [Fatal] for errors
// returned from run() before a logger exists, and [LockDir] to make sure
// only one daemon owns a state directory (and therefore its ledger) at a
// time.
package process
