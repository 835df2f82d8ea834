// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package agentkind describes the coding agents agentdeck can host:
// how each one is launched, which shortcut words map to terminal keys,
// and which slash commands it offers.
//
// The set of kinds is closed. A [Catalog] holds one [Adapter] per kind,
// starting from built-in defaults and optionally extended by a JSONC
// overrides file.
package agentkind

import (
	"fmt"
	"slices"
	"strings"
)

// Kind identifies an agent.
type Kind string

const (
	Claude Kind = "claude"
	Codex  Kind = "codex"
)

// Kinds lists every supported kind in display order.
func Kinds() []Kind {
	return []Kind{Claude, Codex}
}

// Parse converts a user-supplied name into a Kind. Matching is
// case-insensitive and accepts "claude-code" as an alias.
func Parse(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "claude", "claude-code", "claude_code":
		return Claude, nil
	case "codex":
		return Codex, nil
	}
	return "", fmt.Errorf("unknown agent kind %q (supported: %s)", name, joinKinds())
}

// SessionPrefix is the prefix of every session id for this kind,
// e.g. "agent-claude-".
func (k Kind) SessionPrefix() string {
	return SessionIDPrefix + string(k) + "-"
}

// SessionIDPrefix starts every agentdeck-managed session id.
const SessionIDPrefix = "agent-"

// FromSessionID recovers the kind from a session id created by
// agentdeck. Ids with an unrecognised kind segment report false.
func FromSessionID(id string) (Kind, bool) {
	for _, kind := range Kinds() {
		if strings.HasPrefix(id, kind.SessionPrefix()) {
			return kind, true
		}
	}
	return "", false
}

func joinKinds() string {
	names := make([]string, 0, len(Kinds()))
	for _, kind := range Kinds() {
		names = append(names, string(kind))
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
