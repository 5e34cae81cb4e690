package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// HistoryLimit is how many snapshots are kept per session
const HistoryLimit = 20

// DB is a sqlite-backed snapshot store
type DB struct {
	conn *sql.DB
	mu   sync.RWMutex
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate runs database migrations
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS game_sessions (
		id TEXT PRIMARY KEY,
		turn INTEGER NOT NULL DEFAULT 0,
		game_over INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS session_snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		state_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (session_id) REFERENCES game_sessions(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_session_snapshots_session_id ON session_snapshots(session_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// snapshotSummary is the part of a snapshot mirrored into game_sessions
type snapshotSummary struct {
	Turn     int  `json:"turn"`
	GameOver bool `json:"gameOver"`
}

// Save appends a snapshot and prunes the session's history
func (db *DB) Save(ctx context.Context, id string, blob []byte) error {
	var summary snapshotSummary
	// listing metadata only; an undecodable blob is stored as is
	_ = json.Unmarshal(blob, &summary)

	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO game_sessions (id, turn, game_over, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			turn = excluded.turn,
			game_over = excluded.game_over,
			updated_at = CURRENT_TIMESTAMP
	`, id, summary.Turn, boolToInt(summary.GameOver))
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_snapshots (session_id, state_json) VALUES (?, ?)
	`, id, string(blob))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM session_snapshots
		WHERE session_id = ? AND id NOT IN (
			SELECT id FROM session_snapshots WHERE session_id = ? ORDER BY id DESC LIMIT ?
		)
	`, id, id, HistoryLimit)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}

	return tx.Commit()
}

// Load returns the latest snapshot of a session
func (db *DB) Load(ctx context.Context, id string) ([]byte, bool, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var stateJSON string
	err := db.conn.QueryRowContext(ctx, `
		SELECT state_json FROM session_snapshots
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, id).Scan(&stateJSON)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(stateJSON), true, nil
}

// List returns all session IDs, most recently updated first
func (db *DB) List(ctx context.Context) ([]string, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, "SELECT id FROM game_sessions ORDER BY updated_at DESC, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

// HistoryLen returns how many snapshots are kept for a session
func (db *DB) HistoryLen(ctx context.Context, id string) (int, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM session_snapshots WHERE session_id = ?", id).Scan(&n)
	return n, err
}

// Delete removes a session and all its snapshots
func (db *DB) Delete(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM session_snapshots WHERE session_id = ?", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM game_sessions WHERE id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
