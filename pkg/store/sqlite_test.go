package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "finagent.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	value := map[string]interface{}{
		"amount":   -42.5,
		"merchant": "Coffee Corner",
		"tags":     []interface{}{"food", "recurring"},
	}
	if err := s.Put(ctx, "u1", "preferences", "pref_budget", value, 0); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get(ctx, "u1", "preferences", "pref_budget")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected entry to exist")
	}
	m, ok := got.Value.(map[string]interface{})
	if !ok {
		t.Fatalf("expected map value, got %T", got.Value)
	}
	if m["merchant"] != "Coffee Corner" {
		t.Fatalf("unexpected merchant: %v", m["merchant"])
	}
	if m["amount"] != -42.5 {
		t.Fatalf("unexpected amount: %v", m["amount"])
	}
}

func TestSQLiteStore_UserIsolation(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "finagent.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "u1", "preferences", "k", "mine", 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "u2", "preferences", "k"); ok {
		t.Fatalf("expected no cross-user visibility")
	}
}

func TestSQLiteStore_OverwriteReplaces(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "state", "finagent.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "u1", "session", "s1", map[string]interface{}{"a": 1.0}, 1); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.Put(ctx, "u1", "session", "s1", map[string]interface{}{"b": 2.0}, 1); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, ok, err := s.Get(ctx, "u1", "session", "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	m := got.Value.(map[string]interface{})
	if _, stale := m["a"]; stale {
		t.Fatalf("expected full replace, found stale key: %#v", m)
	}
	if m["b"] != 2.0 {
		t.Fatalf("unexpected value: %#v", m)
	}
}

func TestSQLiteStore_ScanSkipsExpired(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "finagent.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer s.Close()

	if err := s.Put(ctx, "u1", "session", "live", "v", 1); err != nil {
		t.Fatalf("put live: %v", err)
	}
	if err := s.Put(ctx, "u1", "session", "dead", "v", 1); err != nil {
		t.Fatalf("put dead: %v", err)
	}
	// Force the second entry into the past.
	if _, err := s.db.Exec(`UPDATE memory_entries SET expires_at_ms = ? WHERE entry_key = 'dead'`, time.Now().Add(-time.Hour).UnixMilli()); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	entries, err := s.Scan(ctx, "u1", "session")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "live" {
		t.Fatalf("expected only live entry, got %#v", entries)
	}

	if _, ok, _ := s.Get(ctx, "u1", "session", "dead"); ok {
		t.Fatalf("expected expired entry to be invisible")
	}

	n, err := s.SweepExpired(ctx, 0)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// The lazy delete in Get may already have removed the row.
	if n > 1 {
		t.Fatalf("expected at most one swept row, got %d", n)
	}
}

func TestSQLiteStore_DeleteAndPersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "finagent.db")

	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := s.Put(ctx, "u1", "categories", "c1", "coffee", 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "u1", "categories", "c2", "rent", 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "u1", "categories", "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	entries, err := s2.Scan(ctx, "u1", "categories")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 1 || entries[0].Key != "c2" {
		t.Fatalf("expected surviving entry c2, got %#v", entries)
	}
}
