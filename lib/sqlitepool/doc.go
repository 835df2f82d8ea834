// Copyright 2026 The AgentDeck Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool opens the SQLite databases agentdeck keeps under
// its state directory (the output ledger and the push subscription
// store).
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool and applies the same
// pragmas to every connection:
//
//   - journal_mode=WAL: the capture loop writes while interactive
//     history and search requests read.
//   - synchronous=NORMAL: committed rows survive a daemon crash.
//   - busy_timeout=5000: writers wait for the lock instead of failing.
//   - cache_size=-8192, mmap_size=268435456, temp_store=MEMORY.
//
// Callers write SQL directly with sqlitex.Execute and manage
// transactions with sqlitex.ImmediateTransaction:
//
//	pool, err := sqlitepool.Open(sqlitepool.Config{
//	    Path:   filepath.Join(stateDir, "output.db"),
//	    Logger: logger,
//	    Schema: schemaSQL,
//	})
//	...
//	err = pool.WithConn(ctx, func(conn *sqlite.Conn) error {
//	    return sqlitex.Execute(conn, "SELECT ...", &sqlitex.ExecOptions{...})
//	})
package sqlitepool
