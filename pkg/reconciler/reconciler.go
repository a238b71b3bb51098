// Package reconciler runs the background sweep that finishes reward
// credits for invitations left pending by earlier failures.
package reconciler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/angelcrypto/referral-ledger/internal/metrics"
)

// Settler settles pending invitations. Implemented by the referral
// ledger service.
type Settler interface {
	SettlePendingInvitations(ctx context.Context, limit int) (int, error)
}

// Reconciler periodically settles pending invitations in batches.
type Reconciler struct {
	settler   Settler
	batchSize int
	logger    *zap.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a new Reconciler
func New(settler Settler, batchSize int, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		settler:   settler,
		batchSize: batchSize,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// RunOnce settles up to one batch of pending invitations.
func (r *Reconciler) RunOnce(ctx context.Context) error {
	start := time.Now()

	settled, err := r.settler.SettlePendingInvitations(ctx, r.batchSize)
	if err != nil {
		metrics.SettlementRuns.WithLabelValues("error").Inc()
		return err
	}

	metrics.SettlementRuns.WithLabelValues("success").Inc()
	if settled > 0 {
		r.logger.Info("Settled pending invitations",
			zap.Int("settled", settled),
			zap.Duration("duration", time.Since(start)))
	}
	return nil
}

// Start starts a background goroutine that settles periodically until Stop.
func (r *Reconciler) Start(interval time.Duration) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		r.logger.Info("Started periodic invitation settlement", zap.Duration("interval", interval))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				if err := r.RunOnce(ctx); err != nil {
					r.logger.Error("Periodic settlement failed", zap.Error(err))
				}
				cancel()
			case <-r.stopCh:
				r.logger.Info("Stopping periodic invitation settlement")
				return
			}
		}
	}()
}

// Stop stops the periodic settlement and waits for the goroutine to exit.
// Safe to call more than once.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}
