// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the small command framework of the agentdeck CLI:
// a tree of [Command] values dispatched by name, pflag flag sets,
// typo suggestions, --json output, and the CLI logger.
package cli
