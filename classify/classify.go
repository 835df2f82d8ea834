// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify turns a captured terminal screen into the
// interaction mode of the agent behind it.
//
// [Classify] is pure: the same text always yields the same [Parsed]
// value, and it never fails. Detection runs in priority order:
//
//  1. Working: a spinner status line, a Codex "esc to interrupt" line,
//     or the rating survey near the bottom of the screen.
//  2. Selection: a numbered list 1..N near the bottom, corroborated by
//     a navigation footer ("Enter to select · ↑/↓ to navigate").
//  3. Prompt: everything else, including an empty screen.
package classify

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// State is the interaction mode of a session.
type State string

const (
	// Working means the agent is busy; input would interrupt it.
	Working State = "working"
	// Selection means the agent shows a numbered menu.
	Selection State = "selection"
	// Prompt means the agent waits for free text.
	Prompt State = "prompt"
)

// NeedsInput reports whether the state blocks on the user.
func (s State) NeedsInput() bool {
	return s == Selection || s == Prompt
}

// Item is one numbered entry of a selection menu.
type Item struct {
	Number      int    `json:"number"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
	// Freeform items open a text field ("Type something").
	Freeform bool `json:"freeform,omitempty"`
}

// Parsed is the classification of one screen.
type Parsed struct {
	State State  `json:"state"`
	Items []Item `json:"items,omitempty"`

	// SelectedIndex is the index into Items of the highlighted entry,
	// 0 when nothing is highlighted.
	SelectedIndex int `json:"selected_index"`

	// ArrowNavigable is set when a highlight marker was present, so the
	// menu is driven with Up/Down rather than by typing a number.
	ArrowNavigable bool `json:"arrow_navigable,omitempty"`

	// Question is the text block directly above the first item.
	Question string `json:"question,omitempty"`

	// AutoResponse is input the caller should send on its own, such as
	// "0" to dismiss the session rating survey.
	AutoResponse string `json:"auto_response,omitempty"`
}

const (
	// workingWindow is how many trailing content lines are searched
	// for a spinner.
	workingWindow = 10

	// menuBottomSlack is how far above the content end the lowest menu
	// item may sit.
	menuBottomSlack = 5

	// menuMaxGap is the largest line distance between two adjacent
	// menu items.
	menuMaxGap = 3

	// descriptionIndent marks a description line under an item.
	descriptionIndent = "    "

	freeformHint = "type something"
)

var (
	// "✳ Moonwalking…", "⏺ Reading 1 file…"
	spinnerPattern = regexp.MustCompile(`^\s*[·⏺✢✳✶✻✽]\s+.*…`)

	// "• Working (12s • esc to interrupt)"
	codexWorkingPattern = regexp.MustCompile(`^\s*•\s+.*\(\d+s\s*•\s*esc to interrupt\)`)

	// "1: Bad  2: Fine  3: Good  0: Dismiss"
	surveyPattern = regexp.MustCompile(`(?i)\d:\s*Good\s+0:\s*Dismiss`)

	itemPattern = regexp.MustCompile(`^(\s*[›❯]?\s*)(\d+)\.\s+(.+)$`)

	rulePattern = regexp.MustCompile(`^\s*[─╌╍┄┅┈┉━]{3,}\s*$`)

	// "Enter to select · ↑/↓ to navigate · Esc to cancel",
	// "Enter to confirm · Esc to cancel", "Esc to cancel · Tab to amend",
	// "Press enter to continue".
	footerPattern = regexp.MustCompile(
		`(?i)(Enter to (select|confirm)|Esc to cancel).*(Esc to cancel|Tab to amend|↑/↓)|Press enter to continue`)

	// Status bar lines agents draw below their content.
	chromePattern = regexp.MustCompile(
		`(?i)\?\s+for\s+shortcuts|\d+%\s+context left|shift\+tab to cycle|^\s*[›❯]\s+\S`)
)

// Classify determines the interaction mode of a captured screen.
func Classify(raw string) Parsed {
	lines := contentLines(raw)

	if parsed, ok := detectWorking(lines); ok {
		return parsed
	}
	if parsed, ok := detectSelection(lines); ok {
		return parsed
	}
	return Parsed{State: Prompt}
}

// contentLines strips escape sequences and drops trailing blank and
// status-bar lines so position checks measure from real content.
func contentLines(raw string) []string {
	lines := strings.Split(ansi.Strip(strings.ReplaceAll(raw, "\r\n", "\n")), "\n")
	for len(lines) > 0 {
		last := lines[len(lines)-1]
		if strings.TrimSpace(last) != "" && !chromePattern.MatchString(last) {
			break
		}
		lines = lines[:len(lines)-1]
	}
	return lines
}

func detectWorking(lines []string) (Parsed, bool) {
	tail := lines[max(len(lines)-workingWindow, 0):]

	for _, line := range tail {
		if surveyPattern.MatchString(line) {
			return Parsed{State: Working, AutoResponse: "0"}, true
		}
	}
	for _, line := range tail {
		if spinnerPattern.MatchString(line) || codexWorkingPattern.MatchString(line) {
			return Parsed{State: Working}, true
		}
	}
	return Parsed{}, false
}

type menuLine struct {
	index  int
	label  string
	marked bool
}

func detectSelection(lines []string) (Parsed, bool) {
	if !hasFooter(lines) {
		return Parsed{}, false
	}

	found := scanMenu(lines)
	if found == nil {
		return Parsed{}, false
	}

	items := make([]Item, 0, len(found))
	indices := make([]int, 0, len(found))
	parsed := Parsed{State: Selection}
	for number := 1; number <= len(found); number++ {
		entry, ok := found[number]
		if !ok {
			return Parsed{}, false
		}
		item := Item{Number: number, Label: entry.label}
		if strings.Contains(strings.ToLower(entry.label), freeformHint) {
			item.Freeform = true
		}
		if entry.marked {
			parsed.SelectedIndex = len(items)
			parsed.ArrowNavigable = true
		}
		items = append(items, item)
		indices = append(indices, entry.index)
	}

	attachDescriptions(lines, items, indices)
	parsed.Items = items
	parsed.Question = questionAbove(lines, indices[0])
	return parsed, true
}

func hasFooter(lines []string) bool {
	for _, line := range lines {
		if footerPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// scanMenu walks upward from the bottom collecting numbered items until
// it reaches item 1. It returns nil unless item 1 and at least one
// other item were found with the lowest item near the bottom and no
// gap wider than menuMaxGap between neighbours.
func scanMenu(lines []string) map[int]menuLine {
	i := len(lines) - 1
	for i >= 0 && (strings.TrimSpace(lines[i]) == "" || footerPattern.MatchString(lines[i])) {
		i--
	}

	found := make(map[int]menuLine)
	previous := -1
	for ; i >= 0; i-- {
		match := itemPattern.FindStringSubmatch(lines[i])
		if match == nil {
			continue
		}
		if previous < 0 && i < len(lines)-menuBottomSlack {
			return nil
		}
		if previous >= 0 && previous-i > menuMaxGap {
			break
		}

		number := atoi(match[2])
		if _, duplicate := found[number]; !duplicate {
			found[number] = menuLine{
				index:  i,
				label:  strings.TrimSpace(match[3]),
				marked: strings.ContainsAny(match[1], "›❯"),
			}
		}
		previous = i
		if number == 1 {
			break
		}
	}

	if _, ok := found[1]; !ok || len(found) < 2 {
		return nil
	}
	return found
}

// attachDescriptions gives each item the indented lines below it.
func attachDescriptions(lines []string, items []Item, indices []int) {
	for position := range items {
		end := len(lines)
		if position+1 < len(indices) {
			end = indices[position+1]
		}
		var parts []string
		for _, line := range lines[indices[position]+1 : end] {
			if itemPattern.MatchString(line) || footerPattern.MatchString(line) {
				break
			}
			if strings.TrimSpace(line) == "" || rulePattern.MatchString(line) {
				continue
			}
			if strings.HasPrefix(line, descriptionIndent) {
				parts = append(parts, strings.TrimSpace(line))
			}
		}
		items[position].Description = strings.Join(parts, " ")
	}
}

// questionAbove returns the contiguous text block ending just above
// line first, stopping at a blank line or a horizontal rule.
func questionAbove(lines []string, first int) string {
	var block []string
	for k := first - 1; k >= 0; k-- {
		trimmed := strings.TrimSpace(lines[k])
		if trimmed == "" || rulePattern.MatchString(lines[k]) {
			break
		}
		block = append(block, trimmed)
	}
	for left, right := 0, len(block)-1; left < right; left, right = left+1, right-1 {
		block[left], block[right] = block[right], block[left]
	}
	return strings.Join(block, " ")
}

// atoi parses the digits matched by itemPattern. Values too large for
// an int cannot be menu numbers and map to 0, which never starts a menu.
func atoi(digits string) int {
	value := 0
	for _, digit := range digits {
		value = value*10 + int(digit-'0')
		if value > 1_000_000 {
			return 0
		}
	}
	return value
}
