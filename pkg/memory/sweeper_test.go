package memory

import (
	"context"
	"testing"
	"time"

	"github.com/finagent-io/finagent/pkg/store"
)

func TestNewSweeper_InvalidCronFallsBack(t *testing.T) {
	s := NewSweeper(store.NewMemStore(), "not a cron")
	if s.expr != "0 * * * *" {
		t.Fatalf("expected hourly fallback, got %q", s.expr)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	s := NewSweeper(store.NewMemStore(), "* * * * *")
	s.Start()
	s.Stop()
	// Stop must be idempotent.
	s.Stop()
}

func TestSweeper_MaybeSweepRespectsSchedule(t *testing.T) {
	s := NewSweeper(store.NewMemStore(), "0 3 * * *") // daily at 03:00

	// Ticker offsets land mid-minute; the schedule check must still match.
	at := time.Date(2026, 5, 1, 3, 0, 10, 0, time.UTC)
	s.maybeSweep(at)
	if !s.lastRun.Equal(at) {
		t.Fatalf("expected sweep to fire at 03:00, lastRun=%v", s.lastRun)
	}

	// Same minute again: no double fire.
	later := at.Add(20 * time.Second)
	s.maybeSweep(later)
	if !s.lastRun.Equal(at) {
		t.Fatalf("expected no second fire within the minute, lastRun=%v", s.lastRun)
	}

	// Off-schedule time: nothing happens.
	s2 := NewSweeper(store.NewMemStore(), "0 3 * * *")
	s2.maybeSweep(time.Date(2026, 5, 1, 12, 30, 0, 0, time.UTC))
	if !s2.lastRun.IsZero() {
		t.Fatalf("expected no sweep off schedule")
	}
}

func TestSweeper_SweepReclaimsExpiredEntries(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	if err := st.Put(ctx, "u1", "session", "s1", "state", 1); err != nil {
		t.Fatalf("seed entry: %v", err)
	}

	// A due tick far past the TTL reclaims the entry.
	s := NewSweeper(st, "0 3 * * *")
	s.maybeSweep(time.Date(2100, 1, 1, 3, 0, 20, 0, time.UTC))
	if s.lastRun.IsZero() {
		t.Fatalf("expected sweep to fire")
	}

	entries, err := st.Scan(ctx, "u1", "session")
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected expired entry reclaimed, got %#v", entries)
	}
}
