package adapter

import (
	"context"

	"unzer-reconciler/internal/domain/model"
)

// PaymentProvider is the hex port for the payment API. Failures are returned as
// *domain.ProviderAPIError.
type PaymentProvider interface {
	Name() string

	// FetchResourceFromEvent retrieves the resource a webhook points at. Transactions
	// come back linked to their owning payment.
	FetchResourceFromEvent(ctx context.Context, store model.Store, event *model.WebhookEvent) (model.Resource, error)
	// FetchPaymentByOrderID looks a payment up by the merchant order id.
	FetchPaymentByOrderID(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error)
	// FetchPaymentType loads a tokenized payment method.
	FetchPaymentType(ctx context.Context, store model.Store, typeID string) (*model.PaymentType, error)
	// Authorize reserves the amount on the payment type. The returned transaction may
	// still carry an error status.
	Authorize(ctx context.Context, store model.Store, req *model.AuthorizationRequest) (*model.Transaction, error)
}
