// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for the agentdeck
// binaries. The variables are injected with -ldflags -X and default to
// "unknown" / "0.1.0-dev" for development builds and tests.
package version
