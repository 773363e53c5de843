// Package store provides the key-scoped persistence layer backing agent
// memory. Entries are addressed by (userID, scope, key); writes are
// last-write-wins and an optional TTL makes an entry invisible once expired.
package store

import "context"

// Entry is one stored record. Value holds arbitrary JSON-serializable data.
type Entry struct {
	Key         string
	Value       interface{}
	UpdatedAtMS int64
	ExpiresAtMS int64 // 0 means no expiry
}

// Store is the persistence contract consumed by the memory manager. Expired
// entries are never returned by Get or Scan; removal of the dead rows is the
// implementation's concern (lazy delete or SweepExpired).
type Store interface {
	Close() error
	Get(ctx context.Context, userID, scope, key string) (Entry, bool, error)
	Put(ctx context.Context, userID, scope, key string, value interface{}, ttlDays int) error
	Scan(ctx context.Context, userID, scope string) ([]Entry, error)
	Delete(ctx context.Context, userID, scope, key string) error
	SweepExpired(ctx context.Context, nowMS int64) (int, error)
}
