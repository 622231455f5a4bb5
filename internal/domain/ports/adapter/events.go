package adapter

import "context"

// Routing keys of published order events.
const (
	RoutingOrderPaymentReconciled = "order.payment.reconciled"
	RoutingOrderPaymentAuthorized = "order.payment.authorized"
)

// EventPublisher emits integration events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, body interface{}) error
}

// OrderPaymentEvent is the body of order payment events.
type OrderPaymentEvent struct {
	IncrementID        string `json:"increment_id"`
	StoreCode          string `json:"store_code"`
	PaymentID          string `json:"payment_id"`
	LastTransID        string `json:"last_trans_id"`
	TransactionPending bool   `json:"transaction_pending"`
	AmountAuthorized   int64  `json:"amount_authorized"`
	AmountPaid         int64  `json:"amount_paid"`
	AmountCanceled     int64  `json:"amount_canceled"`
	Source             string `json:"source"`
}
