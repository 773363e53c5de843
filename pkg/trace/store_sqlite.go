package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists traces durably. Traces are written whole as JSON with
// the fields needed for filtering and ordering lifted into indexed columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) a trace database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create trace db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open trace db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(trimSQL(`
		CREATE TABLE IF NOT EXISTS orchestration_traces (
			orchestration_id TEXT PRIMARY KEY,
			session_id       TEXT NOT NULL,
			user_id          TEXT NOT NULL,
			status           TEXT NOT NULL,
			start_ms         INTEGER NOT NULL,
			trace_json       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_traces_session ON orchestration_traces(session_id, start_ms);
		CREATE INDEX IF NOT EXISTS idx_traces_start ON orchestration_traces(start_ms);
	`))
	if err != nil {
		return fmt.Errorf("init trace schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, orchestrationID string) (*OrchestrationTrace, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT trace_json FROM orchestration_traces WHERE orchestration_id = ?`,
		orchestrationID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get trace %s: %w", orchestrationID, err)
	}
	t, err := decodeTrace(raw)
	if err != nil {
		return nil, false, err
	}
	return t, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, trace *OrchestrationTrace) error {
	raw, err := json.Marshal(trace)
	if err != nil {
		return fmt.Errorf("encode trace %s: %w", trace.OrchestrationID, err)
	}
	_, err = s.db.ExecContext(ctx, trimSQL(`
		INSERT INTO orchestration_traces (orchestration_id, session_id, user_id, status, start_ms, trace_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(orchestration_id) DO UPDATE SET
			status = excluded.status,
			trace_json = excluded.trace_json
	`), trace.OrchestrationID, trace.SessionID, trace.UserID, string(trace.Status), trace.StartTime.UnixMilli(), string(raw))
	if err != nil {
		return fmt.Errorf("put trace %s: %w", trace.OrchestrationID, err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, sessionID string) ([]*OrchestrationTrace, error) {
	query := `SELECT trace_json FROM orchestration_traces ORDER BY start_ms, orchestration_id`
	args := []interface{}{}
	if sessionID != "" {
		query = `SELECT trace_json FROM orchestration_traces WHERE session_id = ? ORDER BY start_ms, orchestration_id`
		args = append(args, sessionID)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list traces: %w", err)
	}
	defer rows.Close()

	var out []*OrchestrationTrace
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan trace row: %w", err)
		}
		t, err := decodeTrace(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func decodeTrace(raw string) (*OrchestrationTrace, error) {
	var t OrchestrationTrace
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("decode trace: %w", err)
	}
	return &t, nil
}

func trimSQL(q string) string {
	return strings.TrimSpace(q)
}
