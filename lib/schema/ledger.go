// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Chunk is one stored block of session output.
type Chunk struct {
	ID        int64  `json:"id" cbor:"id"`
	Session   string `json:"session" cbor:"session"`
	Timestamp int64  `json:"timestamp" cbor:"timestamp"`
	Kind      string `json:"kind" cbor:"kind"`
	Content   string `json:"content" cbor:"content"`
}

// HistoryRequest pages backwards through a session's output. Before is
// a cursor in Unix nanoseconds (0 for the newest page).
type HistoryRequest struct {
	Session string `cbor:"session"`
	Before  int64  `cbor:"before,omitempty"`
	Limit   int    `cbor:"limit,omitempty"`
}

// HistoryResponse holds chunks newest first. EarliestTimestamp is the
// cursor for the next page, or 0 when the page is empty.
type HistoryResponse struct {
	Chunks            []Chunk `json:"chunks" cbor:"chunks"`
	EarliestTimestamp int64   `json:"earliest_ts" cbor:"earliest_ts"`
}

// SearchRequest runs a full-text query. An empty Session searches
// every session.
type SearchRequest struct {
	Query   string `cbor:"query"`
	Session string `cbor:"session,omitempty"`
	Limit   int    `cbor:"limit,omitempty"`
}

// SearchHit is one matching chunk with a highlighted snippet.
type SearchHit struct {
	ChunkID   int64  `json:"chunk_id" cbor:"chunk_id"`
	Session   string `json:"session" cbor:"session"`
	Timestamp int64  `json:"timestamp" cbor:"timestamp"`
	Kind      string `json:"kind" cbor:"kind"`
	Snippet   string `json:"snippet" cbor:"snippet"`
}

// SearchResponse is the result of [ActionSearch]. TotalMatches counts
// every match, not only the returned ones.
type SearchResponse struct {
	Results      []SearchHit `json:"results" cbor:"results"`
	TotalMatches int         `json:"total_matches" cbor:"total_matches"`
}

// ExportResponse carries the full transcript of a session, oldest
// chunk first.
type ExportResponse struct {
	Content []byte `json:"-" cbor:"content"`
}
