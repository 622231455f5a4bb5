// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/domain/ports/repository"
)

// Reconciliation sources, used as event and metric labels.
const (
	SourceWebhook = "webhook"
	SourceSweeper = "sweeper"
)

const defaultReconcileLockTTL = 30 * time.Second

// ReconcileResult describes what a reconciliation did to the local order.
type ReconcileResult struct {
	IncrementID string
	// Changed is true when payment bookkeeping was written.
	Changed bool
	Entry   *model.StatusHistoryEntry
}

// ReconcileUseCase folds provider payment state into local orders.
type ReconcileUseCase struct {
	orders  repository.OrderRepository
	tm      repository.TransactionManager
	locker  adapter.Locker
	events  adapter.EventPublisher
	lockTTL time.Duration
	log     *zerolog.Logger
}

// NewReconcileUseCase wires the reconciler. events may be nil.
func NewReconcileUseCase(
	orders repository.OrderRepository,
	tm repository.TransactionManager,
	locker adapter.Locker,
	events adapter.EventPublisher,
	lockTTL time.Duration,
	logger *zerolog.Logger,
) *ReconcileUseCase {
	if lockTTL <= 0 {
		lockTTL = defaultReconcileLockTTL
	}
	return &ReconcileUseCase{
		orders:  orders,
		tm:      tm,
		locker:  locker,
		events:  events,
		lockTTL: lockTTL,
		log:     logger,
	}
}

// Reconcile applies a payment received through a webhook.
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, payment *model.PaymentResource) (*ReconcileResult, error) {
	return uc.ReconcileFrom(ctx, SourceWebhook, payment)
}

// ReconcileFrom applies payment to the order named by its correlation key.
// A payment without correlation key yields (nil, nil). Unknown orders yield
// domain.ErrOrderNotFound and nothing is written.
func (uc *ReconcileUseCase) ReconcileFrom(ctx context.Context, source string, payment *model.PaymentResource) (*ReconcileResult, error) {
	if payment == nil || payment.OrderID == "" {
		return nil, nil
	}

	key := "reconcile:order:" + payment.OrderID
	token, err := uc.locker.TryLock(ctx, key, uc.lockTTL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := uc.locker.Unlock(context.WithoutCancel(ctx), key, token); err != nil {
			uc.log.Warn().Err(err).Str("key", key).Msg("reconcile unlock failed")
		}
	}()

	var (
		res   *ReconcileResult
		order *model.Order
	)
	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		o, err := uc.orders.FindByIncrementID(ctx, tx, payment.OrderID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}

		res = &ReconcileResult{IncrementID: o.IncrementID}
		res.Changed = o.Payment.ApplyPayment(payment)

		// Every webhook is audited. A sweep re-reads the same state on each tick, so it
		// only comments when something moved.
		if t := payment.LatestTransaction(); t != nil && (source == SourceWebhook || res.Changed) {
			e := o.AddComment(model.TransactionComment(t))
			if err := uc.orders.AppendHistory(ctx, tx, o.IncrementID, e); err != nil {
				return err
			}
			res.Entry = &e
		}

		switch {
		case res.Changed:
			if err := uc.orders.UpdatePayment(ctx, tx, o.IncrementID, o.Payment); err != nil {
				return err
			}
		case source == SourceSweeper:
			// Moves the order behind the other pending ones in the stale listing.
			if err := uc.orders.Touch(ctx, tx, o.IncrementID); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Changed {
		uc.publish(ctx, source, order)
	}
	uc.log.Info().
		Str("increment_id", res.IncrementID).
		Str("payment_id", payment.ID).
		Str("source", source).
		Bool("changed", res.Changed).
		Msg("order reconciled")
	return res, nil
}

func (uc *ReconcileUseCase) publish(ctx context.Context, source string, o *model.Order) {
	if uc.events == nil {
		return
	}
	ev := orderPaymentEvent(o, source)
	if err := uc.events.Publish(ctx, adapter.RoutingOrderPaymentReconciled, ev); err != nil {
		// The order is committed; downstream consumers catch up on the next change.
		uc.log.Error().Err(err).Str("increment_id", o.IncrementID).Msg("publish reconciled event failed")
	}
}

func orderPaymentEvent(o *model.Order, source string) adapter.OrderPaymentEvent {
	return adapter.OrderPaymentEvent{
		IncrementID:        o.IncrementID,
		StoreCode:          o.StoreCode,
		PaymentID:          o.Payment.Info(model.InfoPaymentID),
		LastTransID:        o.Payment.LastTransID,
		TransactionPending: o.Payment.TransactionPending,
		AmountAuthorized:   o.Payment.AmountAuthorized,
		AmountPaid:         o.Payment.AmountPaid,
		AmountCanceled:     o.Payment.AmountCanceled,
		Source:             source,
	}
}
