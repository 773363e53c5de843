package store

import (
	"context"
	"testing"
)

func TestMemStore_MatchesStoreContract(t *testing.T) {
	ctx := context.Background()
	var s Store = NewMemStore()
	defer s.Close()

	if _, ok, err := s.Get(ctx, "u1", "preferences", "missing"); err != nil || ok {
		t.Fatalf("expected clean miss, ok=%v err=%v", ok, err)
	}

	if err := s.Put(ctx, "u1", "preferences", "pref_x", map[string]interface{}{"v": 1}, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get(ctx, "u1", "preferences", "pref_x")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	// JSON round-trip: numbers come back as float64.
	if got.Value.(map[string]interface{})["v"] != 1.0 {
		t.Fatalf("unexpected value: %#v", got.Value)
	}

	if err := s.Put(ctx, "u1", "preferences", "pref_a", "first", 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	entries, err := s.Scan(ctx, "u1", "preferences")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 2 || entries[0].Key != "pref_a" || entries[1].Key != "pref_x" {
		t.Fatalf("expected sorted scan, got %#v", entries)
	}

	if err := s.Delete(ctx, "u1", "preferences", "pref_x"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "u1", "preferences", "pref_x"); ok {
		t.Fatalf("expected delete to remove entry")
	}
}

func TestMemStore_ValueIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	original := map[string]interface{}{"n": 1}
	if err := s.Put(ctx, "u1", "session", "s1", original, 0); err != nil {
		t.Fatalf("put: %v", err)
	}
	// Mutating the caller's map after Put must not leak into the store.
	original["n"] = 99

	got, _, _ := s.Get(ctx, "u1", "session", "s1")
	if got.Value.(map[string]interface{})["n"] != 1.0 {
		t.Fatalf("store aliased caller memory: %#v", got.Value)
	}
}
