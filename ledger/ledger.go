// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/sqlitepool"
)

// ErrUnavailable wraps every failure of the underlying database.
var ErrUnavailable = errors.New("output ledger unavailable")

// Kind tags how a chunk was captured.
type Kind string

const (
	// KindScrollback is output that scrolled off the visible pane
	// during normal capture.
	KindScrollback Kind = "scrollback"

	// KindFinal is the last capture of a session whose process exited.
	KindFinal Kind = "final"
)

// Chunk is one appended block of output.
type Chunk struct {
	ID        int64
	SessionID string
	Timestamp time.Time
	Content   string
	Kind      Kind
	Archived  bool
}

// Page is one step of backwards pagination.
type Page struct {
	// Chunks are newest-first.
	Chunks []Chunk

	// Earliest is the timestamp of the oldest chunk in Chunks, zero
	// when Chunks is empty. Pass it as before to get the next page.
	Earliest time.Time
}

// Query selects chunks for a full-text search.
type Query struct {
	Text string

	// SessionID restricts the search to one session when set.
	SessionID string

	// Limit caps the number of results; zero or negative means
	// DefaultSearchLimit.
	Limit int
}

// SearchResult is one matching chunk.
type SearchResult struct {
	ChunkID   int64
	SessionID string
	Timestamp time.Time
	Kind      Kind

	// Snippet is an excerpt around the match with matched terms
	// wrapped in <b>...</b>.
	Snippet string
}

// SearchResults is the answer to a Query.
type SearchResults struct {
	// Results are ordered by relevance.
	Results []SearchResult

	// Total counts every matching chunk, not only those returned.
	Total int
}

const (
	// DefaultReadLimit is used by Read when limit is not positive.
	DefaultReadLimit = 50

	// DefaultSearchLimit is used by Search when Query.Limit is not
	// positive.
	DefaultSearchLimit = 20

	snippetTokens = 40
)

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT    NOT NULL,
	ts         INTEGER NOT NULL,
	content    TEXT    NOT NULL,
	kind       TEXT    NOT NULL DEFAULT '',
	archived   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS chunks_session_ts ON chunks (session_id, ts);

CREATE VIRTUAL TABLE IF NOT EXISTS chunks_fts USING fts5 (
	content,
	content = 'chunks',
	content_rowid = 'id'
);

CREATE TRIGGER IF NOT EXISTS chunks_after_insert AFTER INSERT ON chunks BEGIN
	INSERT INTO chunks_fts (rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_after_delete AFTER DELETE ON chunks BEGIN
	INSERT INTO chunks_fts (chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;

CREATE TRIGGER IF NOT EXISTS chunks_after_update AFTER UPDATE OF content ON chunks BEGIN
	INSERT INTO chunks_fts (chunks_fts, rowid, content) VALUES ('delete', old.id, old.content);
	INSERT INTO chunks_fts (rowid, content) VALUES (new.id, new.content);
END;
`

// Config holds the parameters for opening a ledger.
type Config struct {
	// Path is the database file. The parent directory must exist.
	Path string

	// PoolSize defaults to the sqlitepool default.
	PoolSize int

	// Clock stamps appended chunks. Required.
	Clock clock.Clock

	// Logger receives operational messages. Required.
	Logger *slog.Logger
}

// Ledger is safe for concurrent use. Writes serialize on SQLite's
// write lock; reads proceed concurrently under WAL.
type Ledger struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// Open creates or opens the ledger database and applies its schema.
func Open(cfg Config) (*Ledger, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("ledger: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("ledger: Logger is required")
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		Schema:   schema,
	})
	if err != nil {
		return nil, unavailable("open", err)
	}

	return &Ledger{pool: pool, clock: cfg.Clock, logger: cfg.Logger}, nil
}

// Close waits for in-flight operations and closes the database.
func (l *Ledger) Close() error {
	return l.pool.Close()
}

func unavailable(operation string, err error) error {
	return fmt.Errorf("ledger: %s: %w: %w", operation, ErrUnavailable, err)
}

// Append stores lines as one chunk for sessionID. The lines are joined
// with newlines. An empty slice stores nothing and returns a zero
// Chunk. The timestamp is the current time, bumped forward when needed
// so that it is strictly later than every earlier chunk of the session.
func (l *Ledger) Append(ctx context.Context, sessionID string, lines []string, kind Kind) (chunk Chunk, err error) {
	if len(lines) == 0 {
		return Chunk{}, nil
	}

	conn, err := l.pool.Take(ctx)
	if err != nil {
		return Chunk{}, unavailable("append", err)
	}
	defer l.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Chunk{}, unavailable("append", err)
	}
	defer endTransaction(&err)

	latest, found, err := latestNanos(conn, sessionID, true)
	if err != nil {
		return Chunk{}, unavailable("append", err)
	}
	timestamp := l.clock.Now().UnixNano()
	if found && timestamp <= latest {
		timestamp = latest + 1
	}

	content := strings.Join(lines, "\n")
	err = sqlitex.Execute(conn,
		`INSERT INTO chunks (session_id, ts, content, kind) VALUES (?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{sessionID, timestamp, content, string(kind)}})
	if err != nil {
		return Chunk{}, unavailable("append", err)
	}

	return Chunk{
		ID:        conn.LastInsertRowID(),
		SessionID: sessionID,
		Timestamp: time.Unix(0, timestamp),
		Content:   content,
		Kind:      kind,
	}, nil
}

// Read returns up to limit non-archived chunks of sessionID with
// timestamps strictly before before, newest first. A zero before
// starts from the most recent chunk.
func (l *Ledger) Read(ctx context.Context, sessionID string, before time.Time, limit int) (Page, error) {
	if limit <= 0 {
		limit = DefaultReadLimit
	}
	cursor := int64(math.MaxInt64)
	if !before.IsZero() {
		cursor = before.UnixNano()
	}

	var page Page
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT id, session_id, ts, content, kind
			FROM chunks
			WHERE session_id = ? AND archived = 0 AND ts < ?
			ORDER BY ts DESC
			LIMIT ?`,
			&sqlitex.ExecOptions{
				Args: []any{sessionID, cursor, limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					page.Chunks = append(page.Chunks, scanChunk(stmt))
					return nil
				},
			})
	})
	if err != nil {
		return Page{}, unavailable("read", err)
	}

	if len(page.Chunks) > 0 {
		page.Earliest = page.Chunks[len(page.Chunks)-1].Timestamp
	}
	return page, nil
}

func scanChunk(stmt *sqlite.Stmt) Chunk {
	return Chunk{
		ID:        stmt.ColumnInt64(0),
		SessionID: stmt.ColumnText(1),
		Timestamp: time.Unix(0, stmt.ColumnInt64(2)),
		Content:   stmt.ColumnText(3),
		Kind:      Kind(stmt.ColumnText(4)),
	}
}

// Search runs a full-text query over non-archived chunks. Each
// whitespace-separated word of Query.Text must appear in a match;
// FTS5 operators in the text are treated as literal words.
func (l *Ledger) Search(ctx context.Context, query Query) (SearchResults, error) {
	match := matchExpression(query.Text)
	if match == "" {
		return SearchResults{}, nil
	}
	limit := query.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	const where = `
		FROM chunks_fts
		JOIN chunks ON chunks.id = chunks_fts.rowid
		WHERE chunks_fts MATCH ?1
			AND chunks.archived = 0
			AND (?2 = '' OR chunks.session_id = ?2)`

	var results SearchResults
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn, `SELECT count(*) `+where,
			&sqlitex.ExecOptions{
				Args: []any{match, query.SessionID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					results.Total = stmt.ColumnInt(0)
					return nil
				},
			})
		if err != nil {
			return err
		}

		return sqlitex.Execute(conn, fmt.Sprintf(`
			SELECT chunks.id, chunks.session_id, chunks.ts, chunks.kind,
				snippet(chunks_fts, 0, '<b>', '</b>', '...', %d)
			%s
			ORDER BY rank
			LIMIT ?3`, snippetTokens, where),
			&sqlitex.ExecOptions{
				Args: []any{match, query.SessionID, limit},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					results.Results = append(results.Results, SearchResult{
						ChunkID:   stmt.ColumnInt64(0),
						SessionID: stmt.ColumnText(1),
						Timestamp: time.Unix(0, stmt.ColumnInt64(2)),
						Kind:      Kind(stmt.ColumnText(3)),
						Snippet:   stmt.ColumnText(4),
					})
					return nil
				},
			})
	})
	if err != nil {
		return SearchResults{}, unavailable("search", err)
	}
	return results, nil
}

// matchExpression quotes every word of text as an FTS5 string so that
// punctuation and operator keywords cannot produce a syntax error.
func matchExpression(text string) string {
	words := strings.Fields(text)
	for i, word := range words {
		words[i] = `"` + strings.ReplaceAll(word, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}

// LatestTimestamp returns the timestamp of the newest non-archived
// chunk of sessionID. The boolean is false when there is none.
func (l *Ledger) LatestTimestamp(ctx context.Context, sessionID string) (time.Time, bool, error) {
	var (
		latest int64
		found  bool
	)
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		var err error
		latest, found, err = latestNanos(conn, sessionID, false)
		return err
	})
	if err != nil {
		return time.Time{}, false, unavailable("latest timestamp", err)
	}
	if !found {
		return time.Time{}, false, nil
	}
	return time.Unix(0, latest), true, nil
}

func latestNanos(conn *sqlite.Conn, sessionID string, includeArchived bool) (int64, bool, error) {
	query := `SELECT max(ts) FROM chunks WHERE session_id = ? AND archived = 0`
	if includeArchived {
		query = `SELECT max(ts) FROM chunks WHERE session_id = ?`
	}

	var (
		latest int64
		found  bool
	)
	err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: []any{sessionID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			if stmt.ColumnType(0) != sqlite.TypeNull {
				latest = stmt.ColumnInt64(0)
				found = true
			}
			return nil
		},
	})
	return latest, found, err
}

// SessionIDs lists every session with at least one non-archived chunk.
func (l *Ledger) SessionIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT DISTINCT session_id FROM chunks WHERE archived = 0 ORDER BY session_id`,
			&sqlitex.ExecOptions{
				ResultFunc: func(stmt *sqlite.Stmt) error {
					ids = append(ids, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, unavailable("session ids", err)
	}
	return ids, nil
}

// SoftDelete archives every chunk of sessionID. Calling it again, or
// for a session with no chunks, succeeds and changes nothing.
func (l *Ledger) SoftDelete(ctx context.Context, sessionID string) error {
	var archived int
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`UPDATE chunks SET archived = 1 WHERE session_id = ? AND archived = 0`,
			&sqlitex.ExecOptions{Args: []any{sessionID}})
		archived = conn.Changes()
		return err
	})
	if err != nil {
		return unavailable("soft delete", err)
	}
	if archived > 0 {
		l.logger.Info("archived session output", "session_id", sessionID, "chunks", archived)
	}
	return nil
}

// Export writes the non-archived transcript of sessionID to w, oldest
// chunk first, each chunk terminated by a newline.
func (l *Ledger) Export(ctx context.Context, sessionID string, w io.Writer) error {
	var writeErr error
	err := l.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT content FROM chunks WHERE session_id = ? AND archived = 0 ORDER BY ts`,
			&sqlitex.ExecOptions{
				Args: []any{sessionID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					if _, err := io.WriteString(w, stmt.ColumnText(0)+"\n"); err != nil {
						writeErr = err
						return err
					}
					return nil
				},
			})
	})
	if writeErr != nil {
		return fmt.Errorf("ledger: export %s: %w", sessionID, writeErr)
	}
	if err != nil {
		return unavailable("export", err)
	}
	return nil
}
