// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

package notify

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/zeebo/blake3"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/agentdeck/agentdeck/lib/clock"
	"github.com/agentdeck/agentdeck/lib/sqlitepool"
)

// Subscription links one browser push endpoint to one session.
type Subscription struct {
	Endpoint string
	P256dh   string
	Auth     string

	SessionID string
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS subscriptions (
	endpoint_key TEXT    NOT NULL,
	endpoint     TEXT    NOT NULL,
	p256dh       TEXT    NOT NULL,
	auth         TEXT    NOT NULL,
	session_id   TEXT    NOT NULL,
	created_at   INTEGER NOT NULL,
	PRIMARY KEY (endpoint_key, session_id)
);

CREATE INDEX IF NOT EXISTS subscriptions_session ON subscriptions (session_id);
`

// StoreConfig holds the parameters for opening a Store.
type StoreConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Store persists push subscriptions. Rows are keyed by a BLAKE3 digest
// of the endpoint URL, which keeps the primary key short regardless of
// how long the push service makes its URLs.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// OpenStore opens or creates the subscription database.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("push store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("push store: Logger is required")
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: 2,
		Logger:   cfg.Logger,
		Schema:   storeSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("push store: %w", err)
	}
	return &Store{pool: pool, clock: cfg.Clock, logger: cfg.Logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

func endpointKey(endpoint string) string {
	digest := blake3.Sum256([]byte(endpoint))
	return hex.EncodeToString(digest[:])
}

// Subscribe adds or refreshes a subscription. The keys are updated on
// every existing row of the endpoint, since a browser re-subscribing
// may have rotated them.
func (s *Store) Subscribe(ctx context.Context, subscription Subscription) (err error) {
	if subscription.Endpoint == "" || subscription.SessionID == "" {
		return fmt.Errorf("push store: endpoint and session are required")
	}
	if subscription.P256dh == "" || subscription.Auth == "" {
		return fmt.Errorf("push store: p256dh and auth keys are required")
	}
	key := endpointKey(subscription.Endpoint)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("push store: subscribe: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("push store: subscribe: %w", err)
	}
	defer endTransaction(&err)

	err = sqlitex.Execute(conn, `
		INSERT INTO subscriptions (endpoint_key, endpoint, p256dh, auth, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (endpoint_key, session_id) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{
			key, subscription.Endpoint, subscription.P256dh, subscription.Auth,
			subscription.SessionID, s.clock.Now().UnixNano(),
		}})
	if err != nil {
		return fmt.Errorf("push store: subscribe: %w", err)
	}

	err = sqlitex.Execute(conn,
		`UPDATE subscriptions SET p256dh = ?, auth = ? WHERE endpoint_key = ?`,
		&sqlitex.ExecOptions{Args: []any{subscription.P256dh, subscription.Auth, key}})
	if err != nil {
		return fmt.Errorf("push store: subscribe: %w", err)
	}
	return nil
}

// Unsubscribe removes one endpoint/session pair. Removing a pair that
// does not exist succeeds.
func (s *Store) Unsubscribe(ctx context.Context, endpoint, sessionID string) error {
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`DELETE FROM subscriptions WHERE endpoint_key = ? AND session_id = ?`,
			&sqlitex.ExecOptions{Args: []any{endpointKey(endpoint), sessionID}})
	})
	if err != nil {
		return fmt.Errorf("push store: unsubscribe: %w", err)
	}
	return nil
}

// RemoveEndpoint deletes every subscription of the endpoint and
// returns how many there were.
func (s *Store) RemoveEndpoint(ctx context.Context, endpoint string) (int, error) {
	var removed int
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		err := sqlitex.Execute(conn,
			`DELETE FROM subscriptions WHERE endpoint_key = ?`,
			&sqlitex.ExecOptions{Args: []any{endpointKey(endpoint)}})
		removed = conn.Changes()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("push store: remove endpoint: %w", err)
	}
	return removed, nil
}

// SessionsForEndpoint lists the sessions an endpoint is subscribed to.
func (s *Store) SessionsForEndpoint(ctx context.Context, endpoint string) ([]string, error) {
	var sessions []string
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn,
			`SELECT session_id FROM subscriptions WHERE endpoint_key = ? ORDER BY session_id`,
			&sqlitex.ExecOptions{
				Args: []any{endpointKey(endpoint)},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					sessions = append(sessions, stmt.ColumnText(0))
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("push store: sessions for endpoint: %w", err)
	}
	return sessions, nil
}

// ForSession returns every subscription of a session.
func (s *Store) ForSession(ctx context.Context, sessionID string) ([]Subscription, error) {
	var subscriptions []Subscription
	err := s.pool.WithConn(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT endpoint, p256dh, auth, session_id
			FROM subscriptions
			WHERE session_id = ?
			ORDER BY created_at, endpoint`,
			&sqlitex.ExecOptions{
				Args: []any{sessionID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					subscriptions = append(subscriptions, Subscription{
						Endpoint:  stmt.ColumnText(0),
						P256dh:    stmt.ColumnText(1),
						Auth:      stmt.ColumnText(2),
						SessionID: stmt.ColumnText(3),
					})
					return nil
				},
			})
	})
	if err != nil {
		return nil, fmt.Errorf("push store: subscriptions for session: %w", err)
	}
	return subscriptions, nil
}
