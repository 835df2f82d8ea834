// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme defines the colors of agentdeck's terminal output. All colors
// are ANSI 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color

	// Session state colors.
	StateWorking   lipgloss.Color
	StateSelection lipgloss.Color
	StatePrompt    lipgloss.Color
	StateDead      lipgloss.Color

	// SelectedForeground marks the highlighted menu item.
	SelectedForeground lipgloss.Color

	// SearchHighlightForeground colors matched terms in search
	// snippets.
	SearchHighlightForeground lipgloss.Color
}

// StateColor returns the color for a session state ("working",
// "selection", "prompt"). alive=false always yields StateDead; unknown
// states yield FaintText.
func (theme Theme) StateColor(state string, alive bool) lipgloss.Color {
	if !alive {
		return theme.StateDead
	}
	switch state {
	case "working":
		return theme.StateWorking
	case "selection":
		return theme.StateSelection
	case "prompt":
		return theme.StatePrompt
	default:
		return theme.FaintText
	}
}

// DefaultTheme is tuned for 256-color terminals with a dark
// background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),

	StateWorking:   lipgloss.Color("75"),  // blue
	StateSelection: lipgloss.Color("208"), // orange: needs a choice
	StatePrompt:    lipgloss.Color("220"), // amber: needs text
	StateDead:      lipgloss.Color("240"), // dim gray

	SelectedForeground: lipgloss.Color("114"),

	SearchHighlightForeground: lipgloss.Color("220"),
}
