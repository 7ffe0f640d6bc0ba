// Package scheduler keeps the current snapshot fresh: runs aggregation on start, then
// periodically, and on manual request. At most one aggregation runs at a time.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/singleflight"

	"github.com/umputun/newsdesk/pkg/domain"
)

//go:generate moq -out mocks/aggregator.go -pkg mocks -skip-ensure -fmt goimports . Aggregator
//go:generate moq -out mocks/history.go -pkg mocks -skip-ensure -fmt goimports . HistoryStore

// DefaultUpdateInterval used if Params.UpdateInterval is not set
const DefaultUpdateInterval = 15 * time.Minute

// Aggregator runs a single aggregation pass
type Aggregator interface {
	Run(ctx context.Context, sources []domain.Source) domain.Snapshot
}

// HistoryStore persists run summaries
type HistoryStore interface {
	SaveRun(ctx context.Context, run domain.SyncRun) error
	Prune(ctx context.Context, keep int) (int64, error)
}

// Params for NewScheduler
type Params struct {
	Aggregator     Aggregator
	Sources        []domain.Source
	UpdateInterval time.Duration
	History        HistoryStore // optional
	HistoryLimit   int          // runs to keep in history, 0 keeps all
	OnRefresh      []func(domain.Snapshot)
}

// Scheduler manages periodic and manual refresh of the snapshot
type Scheduler struct {
	Params

	group    singleflight.Group
	snapshot atomic.Pointer[domain.Snapshot]
	loading  atomic.Bool

	mu     sync.Mutex
	ctx    context.Context // runs are bound to scheduler lifetime, not to a caller
	cancel context.CancelFunc
	wg     sync.WaitGroup // periodic worker
	runs   sync.WaitGroup // in-flight aggregation runs
}

// NewScheduler creates a new scheduler instance
func NewScheduler(p Params) *Scheduler {
	if p.UpdateInterval <= 0 {
		p.UpdateInterval = DefaultUpdateInterval
	}
	return &Scheduler{Params: p, ctx: context.Background()}
}

// Start runs aggregation immediately and then every UpdateInterval until Stop or ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	runCtx := s.ctx
	s.mu.Unlock()

	s.wg.Add(1)
	go s.refreshWorker(runCtx)

	lgr.Printf("[INFO] scheduler started with update interval %v, %d sources", s.UpdateInterval, len(s.Sources))
}

// Stop gracefully stops the scheduler, waits for the periodic worker and the in-flight run to exit.
// A run cancelled this way is not published and not recorded in history.
func (s *Scheduler) Stop() {
	lgr.Printf("[INFO] stopping scheduler...")
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.runs.Wait()
	lgr.Printf("[INFO] scheduler stopped")
}

// refreshWorker periodically refreshes the snapshot
func (s *Scheduler) refreshWorker(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.UpdateInterval)
	defer ticker.Stop()

	// run immediately on start
	if _, err := s.Refresh(ctx); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				return
			}
		}
	}
}

// Refresh runs aggregation and returns the new snapshot. If a run is already in flight
// the call joins it instead of starting another one. Cancelling ctx stops waiting,
// the run itself completes and is published anyway. After Stop no new runs are started
// and the last published snapshot is returned.
func (s *Scheduler) Refresh(ctx context.Context) (domain.Snapshot, error) {
	ch := s.group.DoChan("refresh", func() (any, error) {
		runCtx, ok := s.beginRun()
		if !ok {
			lgr.Printf("[DEBUG] scheduler stopped, refresh skipped")
			return s.Snapshot(), nil
		}
		defer s.runs.Done()
		return s.run(runCtx), nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			lgr.Printf("[DEBUG] refresh joined in-flight run")
		}
		return res.Val.(domain.Snapshot), nil
	case <-ctx.Done():
		return domain.Snapshot{}, ctx.Err()
	}
}

// beginRun registers a run with Stop and returns the scheduler context for it.
// Registration happens under the same lock Stop cancels with, so no run starts after Stop.
func (s *Scheduler) beginRun() (context.Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return nil, false
	}
	s.runs.Add(1)
	return s.ctx, true
}

// run makes a single aggregation pass, publishes the snapshot and records history.
// A run interrupted by Stop leaves the previous snapshot in place.
func (s *Scheduler) run(ctx context.Context) domain.Snapshot {
	s.loading.Store(true)
	defer s.loading.Store(false)

	snap := s.Aggregator.Run(ctx, s.Sources)
	if ctx.Err() != nil {
		lgr.Printf("[INFO] run %s cancelled, snapshot not published", snap.RunID)
		return s.Snapshot()
	}
	s.snapshot.Store(&snap)

	for _, fn := range s.OnRefresh {
		fn(snap)
	}

	s.saveHistory(ctx, snap)
	return snap
}

func (s *Scheduler) saveHistory(ctx context.Context, snap domain.Snapshot) {
	if s.History == nil {
		return
	}
	if err := s.History.SaveRun(ctx, domain.NewSyncRun(snap)); err != nil {
		lgr.Printf("[WARN] failed to save sync history for run %s: %v", snap.RunID, err)
		return
	}
	if s.HistoryLimit <= 0 {
		return
	}
	deleted, err := s.History.Prune(ctx, s.HistoryLimit)
	if err != nil {
		lgr.Printf("[WARN] failed to prune sync history: %v", err)
		return
	}
	if deleted > 0 {
		lgr.Printf("[DEBUG] pruned %d old sync runs", deleted)
	}
}

// Snapshot returns the latest published snapshot with the loading flag set if a run is in flight.
// Before the first run completes it is empty, with non-nil articles and status.
func (s *Scheduler) Snapshot() domain.Snapshot {
	res := domain.Snapshot{Articles: []domain.Article{}, Status: domain.FetchStatus{}, Reports: []domain.SourceReport{}}
	if snap := s.snapshot.Load(); snap != nil {
		res = *snap
	}
	res.Loading = s.loading.Load()
	return res
}

// Loading reports if an aggregation run is in flight
func (s *Scheduler) Loading() bool {
	return s.loading.Load()
}
