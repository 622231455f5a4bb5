package model

import "strings"

// WebhookEvent is the notification body posted by the provider.
type WebhookEvent struct {
	Event       string `json:"event"`
	PublicKey   string `json:"publicKey"`
	RetrieveURL string `json:"retrieveUrl"`
	PaymentID   string `json:"paymentId,omitempty"`
}

// Domain is the part of the event name before the first dot ("charge" for "charge.succeeded").
func (e *WebhookEvent) Domain() string {
	name := strings.ToLower(strings.TrimSpace(e.Event))
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// ResourceKindFor classifies an event domain. Transaction kinds are returned along
// with ResourceKindTransaction; payment events carry no transaction kind.
func ResourceKindFor(domain string) (ResourceKind, TransactionKind) {
	switch domain {
	case "payment":
		return ResourceKindPayment, ""
	case "authorize":
		return ResourceKindTransaction, TransactionAuthorization
	case "charge":
		return ResourceKindTransaction, TransactionCharge
	case "cancel", "cancel-authorize", "cancel-charge":
		return ResourceKindTransaction, TransactionCancellation
	case "shipment":
		return ResourceKindTransaction, TransactionShipment
	case "payout":
		return ResourceKindTransaction, TransactionPayout
	case "chargeback":
		return ResourceKindTransaction, TransactionChargeback
	default:
		return ResourceKindUnknown, ""
	}
}
