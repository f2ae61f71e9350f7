package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ericfisherdev/duopanel/internal/domain/model"
	"github.com/ericfisherdev/duopanel/internal/domain/port/driven"
	"github.com/ericfisherdev/duopanel/internal/totp"
)

// Scheduler drives code generation: it recomputes a snapshot per account on
// every tick and owns the committed account set. The tick loop only reads
// that set; automation sessions are the sole writer and commit wholesale,
// so readers never observe a partial update.
type Scheduler struct {
	orch     *Orchestrator
	cache    driven.AccountCache // nil when caching is disabled
	interval time.Duration
	now      func() time.Time

	mu        sync.RWMutex
	accounts  []model.Account
	snapshots []model.CodeSnapshot

	refreshCh chan struct{}
}

// NewScheduler creates a Scheduler. cache may be nil, in which case the
// scheduler starts empty and shows a pending state until the first
// automation session completes.
func NewScheduler(orch *Orchestrator, cache driven.AccountCache, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{
		orch:     orch,
		cache:    cache,
		interval: interval,
		now:      time.Now,
		// Single-slot refresh signal: a request arriving while one is
		// pending is dropped, not queued.
		refreshCh: make(chan struct{}, 1),
	}
}

// Start runs the tick loop until ctx is canceled. It restores the cached
// account set (if configured), triggers the initial automation session
// exactly once, asynchronously, and then recomputes snapshots every tick.
// Start blocks until the context is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	s.restoreCached(ctx)
	s.recompute()
	s.RequestManualRefresh()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.recompute()
		case <-s.refreshCh:
			// Sessions are slow (process launch, external waits); run on a
			// separate goroutine so ticking never stalls. Overlap is
			// prevented by the orchestrator's session guard.
			go s.runSession(ctx)
		}
	}
}

// RequestManualRefresh asks for a new automation session. Non-blocking: the
// request is dropped when a session is already active or queued.
func (s *Scheduler) RequestManualRefresh() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
		slog.Info("refresh request dropped, one already pending")
	}
}

// Snapshots returns the latest code snapshot set in stable store order.
func (s *Scheduler) Snapshots() []model.CodeSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.CodeSnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// Status reports the orchestrator's current phase.
func (s *Scheduler) Status() model.OrchestratorStatus {
	return s.orch.Status()
}

// runSession executes one automation session and commits its result. On
// failure the previous account set is retained: stale-but-present codes are
// preferred over no codes, and the failure reason stays visible via Status.
func (s *Scheduler) runSession(ctx context.Context) {
	accounts, err := s.orch.Run(ctx)
	if err != nil {
		if errors.Is(err, ErrSessionActive) {
			slog.Info("refresh ignored, session already active")
			return
		}
		slog.Error("automation session failed, keeping previous accounts", "error", err)
		return
	}

	s.commit(accounts)
	s.persist(ctx, accounts)
}

// commit atomically replaces the account set and recomputes snapshots.
func (s *Scheduler) commit(accounts []model.Account) {
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	s.recompute()
}

// recompute rebuilds the snapshot set for the committed accounts at the
// current instant.
func (s *Scheduler) recompute() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshots := make([]model.CodeSnapshot, 0, len(s.accounts))
	for _, account := range s.accounts {
		snap, err := totp.Snapshot(account, now)
		if err != nil {
			slog.Warn("skipping account with unusable secret", "label", account.Label, "error", err)
			continue
		}
		snapshots = append(snapshots, snap)
	}
	s.snapshots = snapshots
}

// restoreCached loads the last-known-good account set so codes display
// immediately, before the first automation session completes.
func (s *Scheduler) restoreCached(ctx context.Context) {
	if s.cache == nil {
		return
	}

	accounts, err := s.cache.Load(ctx)
	if err != nil {
		if errors.Is(err, driven.ErrCacheKeyNotSet) {
			slog.Debug("account cache disabled")
		} else {
			slog.Warn("failed to load cached accounts", "error", err)
		}
		return
	}
	if len(accounts) == 0 {
		return
	}

	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	slog.Info("restored cached accounts", "count", len(accounts))
}

// persist writes a fresh extraction back to the cache, best-effort.
func (s *Scheduler) persist(ctx context.Context, accounts []model.Account) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Replace(ctx, accounts); err != nil {
		if errors.Is(err, driven.ErrCacheKeyNotSet) {
			slog.Debug("account cache disabled, not persisting")
			return
		}
		slog.Warn("failed to persist accounts to cache", "error", err)
	}
}
