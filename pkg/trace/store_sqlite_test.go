package trace

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func openTestTraceStore(t *testing.T) (*SQLiteStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "traces.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("open trace store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func sampleTrace(id, session string, start time.Time) *OrchestrationTrace {
	return &OrchestrationTrace{
		OrchestrationID:     id,
		SessionID:           session,
		UserID:              "u1",
		Status:              StatusRunning,
		StartTime:           start,
		PlannedToolSequence: []string{"categorize_transactions"},
		ToolTraces:          []ToolCallTrace{},
	}
}

func TestSQLiteStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestTraceStore(t)

	trace := sampleTrace("orch-1", "s1", time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC))
	trace.ToolTraces = append(trace.ToolTraces, ToolCallTrace{
		TraceID:           "call-1",
		SessionID:         "s1",
		UserID:            "u1",
		Timestamp:         trace.StartTime.Add(10 * time.Millisecond),
		ToolName:          "categorize_transactions",
		Input:             map[string]interface{}{"transactions": []interface{}{"a"}},
		Output:            map[string]interface{}{"count": 1.0},
		ExecutionTimeMS:   12,
		Success:           true,
		OrchestrationStep: 1,
		ParentTraceID:     "orch-1",
		Metadata:          CallMetadata{Confidence: 0.9, MemoryAccessed: []string{"categories"}},
	})
	if err := s.Put(ctx, trace); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, found, err := s.Get(ctx, "orch-1")
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if got.SessionID != "s1" || len(got.ToolTraces) != 1 {
		t.Fatalf("unexpected trace: %+v", got)
	}
	call := got.ToolTraces[0]
	if call.ToolName != "categorize_transactions" || call.OrchestrationStep != 1 || !call.Success {
		t.Fatalf("unexpected call: %+v", call)
	}
	if call.Metadata.Confidence != 0.9 {
		t.Fatalf("metadata lost: %+v", call.Metadata)
	}

	if _, found, err := s.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("expected miss, found=%v err=%v", found, err)
	}
}

func TestSQLiteStore_PutReplacesWhole(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestTraceStore(t)

	start := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	trace := sampleTrace("orch-1", "s1", start)
	if err := s.Put(ctx, trace); err != nil {
		t.Fatalf("put: %v", err)
	}

	end := start.Add(200 * time.Millisecond)
	trace.Status = StatusCompleted
	trace.EndTime = &end
	trace.TotalExecutionTimeMS = 200
	trace.Success = true
	if err := s.Put(ctx, trace); err != nil {
		t.Fatalf("put update: %v", err)
	}

	got, _, err := s.Get(ctx, "orch-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCompleted || got.TotalExecutionTimeMS != 200 || got.EndTime == nil {
		t.Fatalf("update not applied: %+v", got)
	}
}

func TestSQLiteStore_ListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestTraceStore(t)

	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	for i, tc := range []struct {
		id, session string
		offset      time.Duration
	}{
		{"orch-b", "s1", 2 * time.Minute},
		{"orch-a", "s1", 1 * time.Minute},
		{"orch-c", "s2", 3 * time.Minute},
	} {
		if err := s.Put(ctx, sampleTrace(tc.id, tc.session, base.Add(tc.offset))); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 || all[0].OrchestrationID != "orch-a" || all[2].OrchestrationID != "orch-c" {
		t.Fatalf("bad order: %v", ids(all))
	}

	s1, err := s.List(ctx, "s1")
	if err != nil {
		t.Fatalf("list s1: %v", err)
	}
	if len(s1) != 2 || s1[0].OrchestrationID != "orch-a" || s1[1].OrchestrationID != "orch-b" {
		t.Fatalf("bad session filter: %v", ids(s1))
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, path := openTestTraceStore(t)

	if err := s.Put(ctx, sampleTrace("orch-1", "s1", time.Now())); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	_, found, err := reopened.Get(ctx, "orch-1")
	if err != nil || !found {
		t.Fatalf("trace lost across reopen: found=%v err=%v", found, err)
	}
}

func ids(traces []*OrchestrationTrace) []string {
	out := make([]string, len(traces))
	for i, tr := range traces {
		out[i] = tr.OrchestrationID
	}
	return out
}
