package repository

import (
	"context"
	"time"

	"unzer-reconciler/internal/domain/model"
)

// -----------------------------
// Orders
// -----------------------------

type OrderRepository interface {
	// FindByIncrementID loads an order with its payment but without history.
	// Inside a transaction the order row is locked.
	FindByIncrementID(ctx context.Context, tx Tx, incrementID string) (*model.Order, error)
	AppendHistory(ctx context.Context, tx Tx, incrementID string, entries ...model.StatusHistoryEntry) error
	ListHistory(ctx context.Context, tx Tx, incrementID string) ([]model.StatusHistoryEntry, error)
	UpdatePayment(ctx context.Context, tx Tx, incrementID string, p model.OrderPayment) error
	// Touch moves updated_at to now without changing the payment.
	Touch(ctx context.Context, tx Tx, incrementID string) error
	// ListPendingOlderThan returns orders whose payment is still pending.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
}
