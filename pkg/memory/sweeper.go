package memory

import (
	"context"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/finagent-io/finagent/pkg/logger"
	"github.com/finagent-io/finagent/pkg/store"
)

// Sweeper periodically deletes expired entries from the backing store. TTL
// visibility is already enforced on read; the sweep only reclaims dead rows.
type Sweeper struct {
	store store.Store
	expr  string
	gron  *gronx.Gronx

	poll    time.Duration
	lastRun time.Time

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSweeper creates a sweeper gated by a cron expression. An invalid
// expression falls back to hourly.
func NewSweeper(st store.Store, cronExpr string) *Sweeper {
	g := gronx.New()
	if cronExpr == "" || !g.IsValid(cronExpr) {
		if cronExpr != "" {
			logger.WarnCF("memory", "invalid sweep cron, falling back to hourly", map[string]interface{}{"expr": cronExpr})
		}
		cronExpr = "0 * * * *"
	}
	return &Sweeper{
		store:  st,
		expr:   cronExpr,
		gron:   g,
		poll:   30 * time.Second,
		stopCh: make(chan struct{}),
	}
}

// Start launches the background worker. Safe to call once.
func (s *Sweeper) Start() {
	s.wg.Add(1)
	go s.run()
}

// Stop terminates the worker and waits for it to exit.
func (s *Sweeper) Stop() {
	s.closeOnce.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
	})
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case now := <-ticker.C:
			s.maybeSweep(now)
		}
	}
}

func (s *Sweeper) maybeSweep(now time.Time) {
	// The poll is finer than cron resolution; don't fire twice in one minute.
	if now.Truncate(time.Minute).Equal(s.lastRun.Truncate(time.Minute)) {
		return
	}
	// The ticker fires at arbitrary sub-minute offsets; cron expressions only
	// match at second zero, so check against the top of the minute.
	due, err := s.gron.IsDue(s.expr, now.Truncate(time.Minute))
	if err != nil || !due {
		return
	}
	s.lastRun = now

	n, err := s.store.SweepExpired(context.Background(), now.UnixMilli())
	if err != nil {
		logger.ErrorCF("memory", "sweep failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		logger.InfoCF("memory", "swept expired entries", map[string]interface{}{"count": n})
	}
}
