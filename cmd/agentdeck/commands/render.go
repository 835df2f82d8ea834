// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/lib/tui"
)

// renderSessions draws the session table.
func renderSessions(theme tui.Theme, sessions []schema.SessionInfo, now time.Time) string {
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)

	idWidth := len("SESSION")
	for _, session := range sessions {
		idWidth = max(idWidth, lipgloss.Width(session.ID))
	}
	idColumn := lipgloss.NewStyle().Width(idWidth + 2)
	stateColumn := lipgloss.NewStyle().Width(11)
	ageColumn := lipgloss.NewStyle().Width(10)

	var rows []string
	rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
		header.Inherit(idColumn).Render("SESSION"),
		header.Inherit(stateColumn).Render("STATE"),
		header.Inherit(ageColumn).Render("OUTPUT"),
		header.Render("DIRECTORY"),
	))
	for _, session := range sessions {
		state := session.LastState
		if !session.Alive {
			state = "dead"
		} else if state == "" {
			state = "-"
		}
		stateStyle := lipgloss.NewStyle().Foreground(theme.StateColor(session.LastState, session.Alive))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			idColumn.Render(session.ID),
			stateStyle.Inherit(stateColumn).Render(state),
			faint.Inherit(ageColumn).Render(ago(schema.FromWireTime(session.LastOutput), now)),
			faint.Render(abbreviateHome(session.WorkingDir)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// renderState draws a classification result: the question and menu
// of a selection, or a one-line state.
func renderState(theme tui.Theme, id string, state schema.StateResponse) string {
	stateStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.StateColor(state.State, true))
	title := fmt.Sprintf("%s  %s", id, stateStyle.Render(state.State))
	if state.State != "selection" {
		return title
	}

	var lines []string
	if state.Question != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.NormalText).Render(state.Question), "")
	}
	selected := lipgloss.NewStyle().Foreground(theme.SelectedForeground).Bold(true)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	for index, item := range state.Items {
		marker := "  "
		label := fmt.Sprintf("%d. %s", item.Number, item.Label)
		if state.ArrowNavigable && index == state.SelectedIndex {
			marker = "❯ "
			label = selected.Render(label)
		}
		lines = append(lines, marker+label)
		if item.Description != "" {
			lines = append(lines, "     "+faint.Render(item.Description))
		}
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.BorderColor).
		Padding(0, 1)
	return lipgloss.JoinVertical(lipgloss.Left, title, box.Render(strings.Join(lines, "\n")))
}

// renderSnippet replaces the <b>…</b> markers of a search snippet with
// highlighting.
func renderSnippet(theme tui.Theme, snippet string) string {
	highlight := lipgloss.NewStyle().Bold(true).Foreground(theme.SearchHighlightForeground)
	var builder strings.Builder
	for {
		start := strings.Index(snippet, "<b>")
		if start < 0 {
			break
		}
		end := strings.Index(snippet[start:], "</b>")
		if end < 0 {
			break
		}
		end += start
		builder.WriteString(snippet[:start])
		builder.WriteString(highlight.Render(snippet[start+len("<b>") : end]))
		snippet = snippet[end+len("</b>"):]
	}
	builder.WriteString(snippet)
	return strings.ReplaceAll(builder.String(), "\n", " ")
}

// ago formats the time since t coarsely: "12s", "5m", "3h", "2d".
func ago(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	elapsed := max(now.Sub(t), 0)
	switch {
	case elapsed < time.Minute:
		return fmt.Sprintf("%ds", int(elapsed.Seconds()))
	case elapsed < time.Hour:
		return fmt.Sprintf("%dm", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("%dh", int(elapsed.Hours()))
	default:
		return fmt.Sprintf("%dd", int(elapsed.Hours()/24))
	}
}

func abbreviateHome(dir string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return dir
	}
	if dir == home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(dir, home+"/"); ok {
		return "~/" + rest
	}
	return dir
}
