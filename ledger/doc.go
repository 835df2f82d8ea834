// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger is the durable, append-only store of terminal output.
//
// Each [Chunk] is a block of newly scrolled lines captured from one
// session. Chunks live in a SQLite database (output.db) with an FTS5
// index maintained by triggers, so a chunk is searchable as soon as
// its insert commits. Reads paginate backwards by timestamp; within a
// session timestamps are strictly increasing, which makes the
// timestamp an exact cursor.
//
// Chunks are immutable except for the archived flag set by
// [Ledger.SoftDelete]. Archived chunks stay on disk but are invisible
// to [Ledger.Read], [Ledger.Search], [Ledger.SessionIDs], and
// [Ledger.Export].
//
// Every storage failure is reported wrapped in [ErrUnavailable].
package ledger
