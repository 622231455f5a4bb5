// File: internal/infra/sched/payment_sweeper.go
package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/infra/logging"
	"unzer-reconciler/internal/infra/metrics"
	"unzer-reconciler/internal/infra/worker"
	"unzer-reconciler/internal/usecase"
)

// PendingSweeper is the part of the sweep use case the scheduler drives.
type PendingSweeper interface {
	ListStale(ctx context.Context, staleAfter time.Duration, limit int) ([]*model.Order, error)
	ReconcileOrder(ctx context.Context, o *model.Order) (*usecase.ReconcileResult, error)
}

// PaymentSweeper re-reads provider state for orders whose payment stayed pending. This
// covers webhooks that never arrived or failed on every retry.
type PaymentSweeper struct {
	uc         PendingSweeper
	pool       *worker.Pool
	staleAfter time.Duration
	batchSize  int
	running    atomic.Bool
	log        *zerolog.Logger
}

func NewPaymentSweeper(uc PendingSweeper, pool *worker.Pool, staleAfter time.Duration, batchSize int, logger *zerolog.Logger) *PaymentSweeper {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &PaymentSweeper{uc: uc, pool: pool, staleAfter: staleAfter, batchSize: batchSize, log: logger}
}

// SweepStats counts the outcomes of one sweep.
type SweepStats struct {
	Listed    int
	Changed   int64
	Unchanged int64
	Failed    int64
}

// Sweep runs one pass and waits for every order of the batch. A pass that starts while
// another is still running returns immediately with zero stats.
func (s *PaymentSweeper) Sweep(ctx context.Context) SweepStats {
	var stats SweepStats
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn().Msg("payment sweep still running, skipping")
		return stats
	}
	defer s.running.Store(false)

	start := time.Now()
	orders, err := s.uc.ListStale(ctx, s.staleAfter, s.batchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("payment sweep: list pending failed")
		return stats
	}
	stats.Listed = len(orders)

	for _, o := range orders {
		o := o
		err := s.pool.Submit(ctx, func(ctx context.Context) error {
			return s.reconcile(ctx, o, &stats)
		})
		if err != nil {
			s.log.Warn().Err(err).Str("increment_id", o.IncrementID).Msg("payment sweep: submit failed")
			atomic.AddInt64(&stats.Failed, 1)
			metrics.IncSweepOrder("failed")
		}
	}
	s.pool.Wait()

	s.log.Info().
		Int("listed", stats.Listed).
		Int64("changed", atomic.LoadInt64(&stats.Changed)).
		Int64("failed", atomic.LoadInt64(&stats.Failed)).
		Dur("took", time.Since(start)).
		Msg("payment sweep finished")
	return stats
}

func (s *PaymentSweeper) reconcile(ctx context.Context, o *model.Order, stats *SweepStats) error {
	ctx = logging.WithStore(logging.WithIncrementID(ctx, o.IncrementID), o.StoreCode)
	res, err := s.uc.ReconcileOrder(ctx, o)
	if err != nil {
		atomic.AddInt64(&stats.Failed, 1)
		metrics.IncSweepOrder("failed")
		logging.With(ctx, s.log).Warn().Err(err).Msg("payment sweep: reconcile failed")
		return err
	}
	if res.Changed {
		atomic.AddInt64(&stats.Changed, 1)
		metrics.IncSweepOrder("changed")
		metrics.IncReconciledOrder(usecase.SourceSweeper)
		return nil
	}
	atomic.AddInt64(&stats.Unchanged, 1)
	metrics.IncSweepOrder("unchanged")
	return nil
}
