// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/agentdeck/agentdeck/classify"
	"github.com/agentdeck/agentdeck/deck"
	"github.com/agentdeck/agentdeck/ledger"
	"github.com/agentdeck/agentdeck/lib/schema"
	"github.com/agentdeck/agentdeck/registry"
)

func sessionInfo(session registry.Session) schema.SessionInfo {
	return schema.SessionInfo{
		ID:           session.ID,
		Agent:        string(session.Agent),
		WorkingDir:   session.WorkingDir,
		Alive:        session.Alive,
		CreatedAt:    schema.WireTime(session.CreatedAt),
		EndedAt:      schema.WireTime(session.EndedAt),
		LastOutput:   schema.WireTime(session.LastOutput),
		LastState:    string(session.LastState),
		HistoryDepth: session.HistoryDepth,
	}
}

func stateResponse(parsed classify.Parsed) schema.StateResponse {
	response := schema.StateResponse{
		State:          string(parsed.State),
		SelectedIndex:  parsed.SelectedIndex,
		ArrowNavigable: parsed.ArrowNavigable,
		Question:       parsed.Question,
	}
	for _, item := range parsed.Items {
		response.Items = append(response.Items, schema.MenuItem{
			Number:      item.Number,
			Label:       item.Label,
			Description: item.Description,
			Freeform:    item.Freeform,
		})
	}
	return response
}

func chunk(c ledger.Chunk) schema.Chunk {
	return schema.Chunk{
		ID:        c.ID,
		Session:   c.SessionID,
		Timestamp: schema.WireTime(c.Timestamp),
		Kind:      string(c.Kind),
		Content:   c.Content,
	}
}

func historyResponse(page ledger.Page) schema.HistoryResponse {
	response := schema.HistoryResponse{
		Chunks:            make([]schema.Chunk, 0, len(page.Chunks)),
		EarliestTimestamp: schema.WireTime(page.Earliest),
	}
	for _, c := range page.Chunks {
		response.Chunks = append(response.Chunks, chunk(c))
	}
	return response
}

func searchResponse(results ledger.SearchResults) schema.SearchResponse {
	response := schema.SearchResponse{
		Results:      make([]schema.SearchHit, 0, len(results.Results)),
		TotalMatches: results.Total,
	}
	for _, result := range results.Results {
		response.Results = append(response.Results, schema.SearchHit{
			ChunkID:   result.ChunkID,
			Session:   result.SessionID,
			Timestamp: schema.WireTime(result.Timestamp),
			Kind:      string(result.Kind),
			Snippet:   result.Snippet,
		})
	}
	return response
}

func agentInfo(agent deck.AgentInfo) schema.AgentInfo {
	info := schema.AgentInfo{
		Kind:          string(agent.Kind),
		Shortcuts:     make(map[string]schema.ShortcutInfo, len(agent.Shortcuts)),
		SlashCommands: make([]schema.SlashCommandInfo, 0, len(agent.SlashCommands)),
	}
	for word, shortcut := range agent.Shortcuts {
		info.Shortcuts[word] = schema.ShortcutInfo{Keys: shortcut.Keys, Enter: shortcut.Enter}
	}
	for _, command := range agent.SlashCommands {
		info.SlashCommands = append(info.SlashCommands, schema.SlashCommandInfo{
			Text:    command.Text,
			Enter:   command.Enter,
			Confirm: command.Confirm,
		})
	}
	return info
}
