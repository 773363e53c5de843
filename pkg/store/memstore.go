package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-process Store used by tests and embedded callers. Values
// round-trip through JSON so reads observe the same shapes a durable store
// would return.
type MemStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry // composite userID|scope|key
}

type memEntry struct {
	key         string
	raw         []byte
	updatedAtMS int64
	expiresAtMS int64
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[string]memEntry)}
}

func (m *MemStore) Close() error { return nil }

func memKey(userID, scope, key string) string {
	return userID + "|" + scope + "|" + key
}

func memPrefix(userID, scope string) string {
	return userID + "|" + scope + "|"
}

func (m *MemStore) Get(ctx context.Context, userID, scope, key string) (Entry, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[memKey(userID, scope, key)]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if e.expiresAtMS > 0 && e.expiresAtMS <= nowMS() {
		m.mu.Lock()
		delete(m.entries, memKey(userID, scope, key))
		m.mu.Unlock()
		return Entry{}, false, nil
	}
	return e.toEntry(), true, nil
}

func (m *MemStore) Put(ctx context.Context, userID, scope, key string, value interface{}, ttlDays int) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("put entry: empty user_id")
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("put entry: empty key")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value: %w", err)
	}
	now := nowMS()
	var expires int64
	if ttlDays > 0 {
		expires = now + int64(ttlDays)*dayMS
	}
	m.mu.Lock()
	m.entries[memKey(userID, scope, key)] = memEntry{key: key, raw: raw, updatedAtMS: now, expiresAtMS: expires}
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Scan(ctx context.Context, userID, scope string) ([]Entry, error) {
	prefix := memPrefix(userID, scope)
	now := nowMS()

	m.mu.RLock()
	out := []Entry{}
	for k, e := range m.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if e.expiresAtMS > 0 && e.expiresAtMS <= now {
			continue
		}
		out = append(out, e.toEntry())
	}
	m.mu.RUnlock()

	// Stable key order, matching the durable store.
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemStore) Delete(ctx context.Context, userID, scope, key string) error {
	m.mu.Lock()
	delete(m.entries, memKey(userID, scope, key))
	m.mu.Unlock()
	return nil
}

func (m *MemStore) SweepExpired(ctx context.Context, atMS int64) (int, error) {
	if atMS <= 0 {
		atMS = nowMS()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if e.expiresAtMS > 0 && e.expiresAtMS <= atMS {
			delete(m.entries, k)
			n++
		}
	}
	return n, nil
}

func (e memEntry) toEntry() Entry {
	var value interface{}
	_ = json.Unmarshal(e.raw, &value)
	return Entry{Key: e.key, Value: value, UpdatedAtMS: e.updatedAtMS, ExpiresAtMS: e.expiresAtMS}
}
