// File: internal/usecase/sweep_uc.go
package usecase

import (
	"context"
	"time"

	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/domain/ports/repository"
)

// PendingSweepUseCase re-reads payments of orders that stayed pending, for webhooks that
// never arrived.
type PendingSweepUseCase struct {
	stores     *StoreDirectory
	orders     repository.OrderRepository
	provider   adapter.PaymentProvider
	reconciler *ReconcileUseCase
}

func NewPendingSweepUseCase(stores *StoreDirectory, orders repository.OrderRepository, provider adapter.PaymentProvider, reconciler *ReconcileUseCase) *PendingSweepUseCase {
	return &PendingSweepUseCase{stores: stores, orders: orders, provider: provider, reconciler: reconciler}
}

// ListStale returns pending orders last updated before now-staleAfter.
func (uc *PendingSweepUseCase) ListStale(ctx context.Context, staleAfter time.Duration, limit int) ([]*model.Order, error) {
	return uc.orders.ListPendingOlderThan(ctx, repository.NoTX, time.Now().Add(-staleAfter), limit)
}

// ReconcileOrder fetches the order's payment by increment id and reconciles it.
func (uc *PendingSweepUseCase) ReconcileOrder(ctx context.Context, o *model.Order) (*ReconcileResult, error) {
	store, err := uc.stores.Lookup(o.StoreCode)
	if err != nil {
		return nil, err
	}
	payment, err := uc.provider.FetchPaymentByOrderID(ctx, store, o.IncrementID)
	if err != nil {
		return nil, err
	}
	if payment.OrderID == "" {
		payment.OrderID = o.IncrementID
	}
	return uc.reconciler.ReconcileFrom(ctx, SourceSweeper, payment)
}
