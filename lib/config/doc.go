// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the agentdeck YAML configuration.
//
// The file is named by the --config flag ([LoadFile]) or the
// AGENTDECK_CONFIG environment variable ([Load]). There is no search
// path: without either, the built-in [Default] is used as is. Values in
// the file override the defaults field by field.
//
// Path fields accept ${HOME}, ${AGENTDECK_STATE} (the resolved state
// directory) and ${VAR:-default} expansion. No other environment
// variables override config values.
package config
