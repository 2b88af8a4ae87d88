// internal/app/system/workers/invitecleanup.go
package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// InviteSweeper deletes spent invites older than a cutoff.
// The invite store satisfies it.
type InviteSweeper interface {
	DeleteSpent(ctx context.Context, cutoff time.Time) (int64, error)
}

// InviteCleanup is a background worker that removes invites which have
// been expired or used up for longer than the retention window.
type InviteCleanup struct {
	invites   InviteSweeper
	log       *zap.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewInviteCleanup creates a new invite cleanup worker.
//
// Parameters:
//   - invites: the store the sweep deletes from
//   - logger: zap logger for logging
//   - interval: how often to sweep (e.g., 1 hour)
//   - retention: how long spent invites stay visible before removal (e.g., 7 days)
func NewInviteCleanup(invites InviteSweeper, logger *zap.Logger, interval, retention time.Duration) *InviteCleanup {
	return &InviteCleanup{
		invites:   invites,
		log:       logger,
		interval:  interval,
		retention: retention,
		now:       func() time.Time { return time.Now().UTC() },
		stopCh:    make(chan struct{}),
	}
}

// Start begins the background cleanup loop.
func (w *InviteCleanup) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("invite cleanup worker started",
		zap.Duration("interval", w.interval),
		zap.Duration("retention", w.retention))
}

// Stop signals the worker to stop and waits for it to finish.
// Calling it more than once is safe.
func (w *InviteCleanup) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("invite cleanup worker stopped")
	})
}

func (w *InviteCleanup) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			if _, err := w.Sweep(context.Background()); err != nil {
				w.log.Error("failed to sweep spent invites", zap.Error(err))
			}
		}
	}
}

// Sweep runs one cleanup pass and reports how many invites were removed.
func (w *InviteCleanup) Sweep(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	count, err := w.invites.DeleteSpent(ctx, w.now().Add(-w.retention))
	if err != nil {
		return 0, err
	}
	if count > 0 {
		w.log.Info("removed spent invites", zap.Int64("count", count))
	}
	return count, nil
}
