// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui holds the terminal presentation helpers shared by the
// agentdeck CLI: the color theme for session states and fuzzy matching
// of session ids typed by the user.
package tui
