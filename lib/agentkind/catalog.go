// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package agentkind

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Catalog maps every Kind to its Adapter.
type Catalog struct {
	adapters map[Kind]*Adapter
}

// DefaultCatalog returns the built-in adapters.
func DefaultCatalog() *Catalog {
	catalog := &Catalog{adapters: make(map[Kind]*Adapter)}
	for _, kind := range Kinds() {
		catalog.adapters[kind] = builtin(kind)
	}
	return catalog
}

// Adapter returns the adapter for kind.
func (c *Catalog) Adapter(kind Kind) (*Adapter, error) {
	adapter, ok := c.adapters[kind]
	if !ok {
		return nil, fmt.Errorf("unknown agent kind %q (supported: %s)", kind, joinKinds())
	}
	return adapter, nil
}

// Overrides is the JSONC overrides document, keyed by kind name:
//
//	{
//	  // Launch claude with a project-specific flag.
//	  "claude": {
//	    "command": "claude --continue",
//	    "shortcuts": {"esc": {"keys": "Escape"}},
//	    "slash_commands": [{"text": "/review", "enter": true}],
//	  },
//	}
type Overrides map[string]AdapterOverride

// AdapterOverride extends one adapter. Shortcuts are merged over the
// defaults; slash commands are appended.
type AdapterOverride struct {
	Command       string              `json:"command,omitempty"`
	Shortcuts     map[string]Shortcut `json:"shortcuts,omitempty"`
	SlashCommands []SlashCommand      `json:"slash_commands,omitempty"`
}

// ParseOverrides decodes JSONC (JSON with comments and trailing
// commas).
func ParseOverrides(data []byte) (Overrides, error) {
	var overrides Overrides
	if err := json.Unmarshal(jsonc.ToJSON(data), &overrides); err != nil {
		return nil, fmt.Errorf("parsing agent overrides: %w", err)
	}
	return overrides, nil
}

// LoadCatalog returns the default catalog extended by the overrides
// file at path. An empty path yields the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading agent overrides %s: %w", path, err)
	}
	overrides, err := ParseOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := catalog.Apply(overrides); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return catalog, nil
}

// Apply merges overrides into the catalog.
func (c *Catalog) Apply(overrides Overrides) error {
	for name, override := range overrides {
		kind, err := Parse(name)
		if err != nil {
			return err
		}
		adapter := c.adapters[kind]

		if command := strings.TrimSpace(override.Command); command != "" {
			adapter.command = command
		}
		for word, shortcut := range override.Shortcuts {
			if shortcut.Keys == "" {
				return fmt.Errorf("%s: shortcut %q has no keys", kind, word)
			}
			adapter.shortcuts[strings.ToLower(strings.TrimSpace(word))] = shortcut
		}
		for _, command := range override.SlashCommands {
			if !strings.HasPrefix(command.Text, "/") {
				return fmt.Errorf("%s: slash command %q must start with /", kind, command.Text)
			}
			adapter.slashCommands = append(adapter.slashCommands, command)
		}
	}
	return nil
}
