package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const dayMS = 24 * int64(time.Hour/time.Millisecond)

// SQLiteStore is the durable store implementation.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates/opens the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single-process store. One shared connection avoids writer lock
	// contention with SQLite under concurrent goroutines.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA synchronous=NORMAL;`,
		`PRAGMA temp_store=MEMORY;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS memory_entries (
			user_id TEXT NOT NULL,
			scope TEXT NOT NULL,
			entry_key TEXT NOT NULL,
			value_json TEXT NOT NULL DEFAULT 'null',
			updated_at_ms INTEGER NOT NULL,
			expires_at_ms INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY(user_id, scope, entry_key)
		);`,
		`CREATE INDEX IF NOT EXISTS memory_entries_scope_idx ON memory_entries(user_id, scope, updated_at_ms DESC);`,
		`CREATE INDEX IF NOT EXISTS memory_entries_exp_idx ON memory_entries(expires_at_ms);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init sqlite schema failed on %q: %w", trimSQL(stmt), err)
		}
	}
	return nil
}

func trimSQL(stmt string) string {
	line := strings.TrimSpace(stmt)
	if len(line) > 96 {
		return line[:96] + "..."
	}
	return line
}

func nowMS() int64 { return time.Now().UnixMilli() }

func encodeValue(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return string(b), nil
}

func decodeValue(raw string) interface{} {
	if raw == "" {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}

func (s *SQLiteStore) Get(ctx context.Context, userID, scope, key string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT entry_key, value_json, updated_at_ms, expires_at_ms
FROM memory_entries
WHERE user_id = ? AND scope = ? AND entry_key = ?`, userID, scope, key)

	var e Entry
	var raw string
	if err := row.Scan(&e.Key, &raw, &e.UpdatedAtMS, &e.ExpiresAtMS); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("get entry: %w", err)
	}
	if e.ExpiresAtMS > 0 && e.ExpiresAtMS <= nowMS() {
		// Expired rows are invisible; drop lazily.
		_, _ = s.db.ExecContext(ctx, `DELETE FROM memory_entries WHERE user_id = ? AND scope = ? AND entry_key = ?`, userID, scope, key)
		return Entry{}, false, nil
	}
	e.Value = decodeValue(raw)
	return e, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, userID, scope, key string, value interface{}, ttlDays int) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("put entry: empty user_id")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("put entry: empty key")
	}
	raw, err := encodeValue(value)
	if err != nil {
		return err
	}
	now := nowMS()
	var expires int64
	if ttlDays > 0 {
		expires = now + int64(ttlDays)*dayMS
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO memory_entries(user_id, scope, entry_key, value_json, updated_at_ms, expires_at_ms)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id, scope, entry_key) DO UPDATE SET
	value_json = excluded.value_json,
	updated_at_ms = excluded.updated_at_ms,
	expires_at_ms = excluded.expires_at_ms`,
		userID, scope, key, raw, now, expires)
	if err != nil {
		return fmt.Errorf("put entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Scan(ctx context.Context, userID, scope string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT entry_key, value_json, updated_at_ms, expires_at_ms
FROM memory_entries
WHERE user_id = ? AND scope = ?
ORDER BY entry_key`, userID, scope)
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	defer rows.Close()

	now := nowMS()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		var raw string
		if err := rows.Scan(&e.Key, &raw, &e.UpdatedAtMS, &e.ExpiresAtMS); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		if e.ExpiresAtMS > 0 && e.ExpiresAtMS <= now {
			continue
		}
		e.Value = decodeValue(raw)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, userID, scope, key string) error {
	_, err := s.db.ExecContext(ctx, `
DELETE FROM memory_entries WHERE user_id = ? AND scope = ? AND entry_key = ?`, userID, scope, key)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SweepExpired(ctx context.Context, atMS int64) (int, error) {
	if atMS <= 0 {
		atMS = nowMS()
	}
	res, err := s.db.ExecContext(ctx, `
DELETE FROM memory_entries WHERE expires_at_ms > 0 AND expires_at_ms <= ?`, atMS)
	if err != nil {
		return 0, fmt.Errorf("sweep expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
