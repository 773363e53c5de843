package trace

import (
	"context"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Store persists orchestration traces. Implementations must treat the traces
// they hand out as private copies: mutations by the caller must not leak back
// without a Put.
type Store interface {
	// Get returns the trace with the given id, or found=false.
	Get(ctx context.Context, orchestrationID string) (*OrchestrationTrace, bool, error)
	// Put inserts or replaces a trace whole.
	Put(ctx context.Context, trace *OrchestrationTrace) error
	// List returns traces ordered by start time, oldest first. An empty
	// sessionID matches every session.
	List(ctx context.Context, sessionID string) ([]*OrchestrationTrace, error)
	Close() error
}

// MemoryStore keeps traces in process memory. Running traces are pinned;
// completed traces move into an LRU so long-lived processes keep a bounded
// window of history.
type MemoryStore struct {
	mu        sync.RWMutex
	running   map[string]*OrchestrationTrace
	completed *lru.Cache[string, *OrchestrationTrace]
}

// NewMemoryStore creates an in-memory store retaining at most maxCompleted
// completed traces. A non-positive bound falls back to 512.
func NewMemoryStore(maxCompleted int) *MemoryStore {
	if maxCompleted <= 0 {
		maxCompleted = 512
	}
	completed, _ := lru.New[string, *OrchestrationTrace](maxCompleted)
	return &MemoryStore{
		running:   make(map[string]*OrchestrationTrace),
		completed: completed,
	}
}

func (m *MemoryStore) Get(_ context.Context, orchestrationID string) (*OrchestrationTrace, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if t, ok := m.running[orchestrationID]; ok {
		return t.Clone(), true, nil
	}
	if t, ok := m.completed.Get(orchestrationID); ok {
		return t.Clone(), true, nil
	}
	return nil, false, nil
}

func (m *MemoryStore) Put(_ context.Context, trace *OrchestrationTrace) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := trace.Clone()
	if stored.Status == StatusCompleted {
		delete(m.running, stored.OrchestrationID)
		m.completed.Add(stored.OrchestrationID, stored)
		return nil
	}
	m.running[stored.OrchestrationID] = stored
	return nil
}

func (m *MemoryStore) List(_ context.Context, sessionID string) ([]*OrchestrationTrace, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*OrchestrationTrace, 0, len(m.running)+m.completed.Len())
	for _, t := range m.running {
		if sessionID == "" || t.SessionID == sessionID {
			out = append(out, t.Clone())
		}
	}
	for _, id := range m.completed.Keys() {
		t, ok := m.completed.Peek(id)
		if !ok {
			continue
		}
		if sessionID == "" || t.SessionID == sessionID {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].OrchestrationID < out[j].OrchestrationID
	})
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
