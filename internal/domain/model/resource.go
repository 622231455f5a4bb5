package model

import "strings"

// ResourceKind tags the variant held by a Resource.
type ResourceKind string

const (
	ResourceKindPayment     ResourceKind = "payment"
	ResourceKindTransaction ResourceKind = "transaction"
	ResourceKindUnknown     ResourceKind = "unknown"
)

type TransactionKind string

const (
	TransactionAuthorization TransactionKind = "authorization"
	TransactionCharge        TransactionKind = "charge"
	TransactionCancellation  TransactionKind = "cancellation"
	TransactionShipment      TransactionKind = "shipment"
	TransactionPayout        TransactionKind = "payout"
	TransactionChargeback    TransactionKind = "chargeback"
)

// Label is the capitalised kind used in order history comments.
func (k TransactionKind) Label() string {
	s := string(k)
	if s == "" {
		return "Unknown"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

type TransactionStatus string

const (
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusError   TransactionStatus = "error"
)

// PaymentState mirrors the provider's payment state names.
type PaymentState string

const (
	PaymentStatePending       PaymentState = "pending"
	PaymentStateCompleted     PaymentState = "completed"
	PaymentStateCanceled      PaymentState = "canceled"
	PaymentStatePartly        PaymentState = "partly"
	PaymentStatePaymentReview PaymentState = "payment_review"
	PaymentStateChargeback    PaymentState = "chargeback"
	PaymentStateCreate        PaymentState = "create"
)

// TransactionMessage is the provider's result message split by audience.
type TransactionMessage struct {
	Code     string
	Merchant string
	Customer string
}

// Transaction is a typed sub-event of a PaymentResource. Amounts are minor units.
type Transaction struct {
	Kind        TransactionKind
	ID          string
	UniqueID    string
	ShortID     string
	Status      TransactionStatus
	Amount      int64
	Currency    string
	PaymentID   string
	TypeID      string
	RedirectURL string

	// Bank details, filled for invoice and prepayment charges.
	Holder string
	IBAN   string
	BIC    string

	Message TransactionMessage

	// Payment is the owning payment resource. Nil until resolved.
	Payment *PaymentResource
}

func (t *Transaction) IsSuccess() bool { return t.Status == TransactionStatusSuccess }
func (t *Transaction) IsPending() bool { return t.Status == TransactionStatusPending }
func (t *Transaction) IsError() bool   { return t.Status == TransactionStatusError }

// PaymentResource is the provider-side aggregate of one payment attempt.
type PaymentResource struct {
	ID string
	// OrderID is the merchant order increment id used as correlation key.
	OrderID      string
	State        PaymentState
	Currency     string
	Total        int64
	Charged      int64
	Canceled     int64
	Transactions []*Transaction
}

// IsPending reports whether the provider still waits for the payment to settle.
func (p *PaymentResource) IsPending() bool {
	return p.State == PaymentStatePending || p.State == PaymentStatePaymentReview || p.State == PaymentStateCreate
}

// LatestTransaction returns the most recent transaction or nil.
func (p *PaymentResource) LatestTransaction() *Transaction {
	if len(p.Transactions) == 0 {
		return nil
	}
	return p.Transactions[len(p.Transactions)-1]
}

// LatestSuccessfulOrPending returns the most recent transaction without error status.
func (p *PaymentResource) LatestSuccessfulOrPending() *Transaction {
	for i := len(p.Transactions) - 1; i >= 0; i-- {
		if t := p.Transactions[i]; t.ID != "" && !t.IsError() {
			return t
		}
	}
	return nil
}

// ChargeByIndex returns the i-th charge or nil.
func (p *PaymentResource) ChargeByIndex(i int) *Transaction {
	n := 0
	for _, t := range p.Transactions {
		if t.Kind != TransactionCharge {
			continue
		}
		if n == i {
			return t
		}
		n++
	}
	return nil
}

// SuccessfulAmount sums successful transactions of the given kind.
func (p *PaymentResource) SuccessfulAmount(kind TransactionKind) int64 {
	var sum int64
	for _, t := range p.Transactions {
		if t.Kind == kind && t.IsSuccess() {
			sum += t.Amount
		}
	}
	return sum
}

// Attach links t to p and appends it unless a transaction with the same id is present,
// in which case the stored one is replaced with t.
func (p *PaymentResource) Attach(t *Transaction) {
	t.Payment = p
	if t.PaymentID == "" {
		t.PaymentID = p.ID
	}
	for i, existing := range p.Transactions {
		if existing.ID != "" && existing.ID == t.ID {
			p.Transactions[i] = t
			return
		}
	}
	p.Transactions = append(p.Transactions, t)
}

// Resource is what the provider returns for a webhook retrieve url.
// Exactly one of Payment or Transaction is set, according to Kind.
type Resource struct {
	Kind        ResourceKind
	Payment     *PaymentResource
	Transaction *Transaction
}

func PaymentResourceOf(p *PaymentResource) Resource {
	return Resource{Kind: ResourceKindPayment, Payment: p}
}

func TransactionResourceOf(t *Transaction) Resource {
	return Resource{Kind: ResourceKindTransaction, Transaction: t}
}

func UnknownResource() Resource { return Resource{Kind: ResourceKindUnknown} }

// Resolve returns the owning payment resource: the payment itself, or the payment a
// transaction belongs to. Nil means there is nothing to reconcile.
func (r Resource) Resolve() *PaymentResource {
	switch r.Kind {
	case ResourceKindPayment:
		return r.Payment
	case ResourceKindTransaction:
		if r.Transaction == nil {
			return nil
		}
		return r.Transaction.Payment
	default:
		return nil
	}
}
