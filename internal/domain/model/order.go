package model

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Keys of OrderPayment.AdditionalInfo.
const (
	InfoPaymentID      = "payment_id"
	InfoCustomerID     = "customer_id"
	InfoResourceID     = "resource_id"
	InfoThreatMetrixID = "threat_metrix_id"
	InfoBirthDate      = "birthDate"
	InfoSalutation     = "salutation"
)

// Order is the local shop order, identified by its increment id.
type Order struct {
	IncrementID    string
	StoreCode      string
	CustomerID     string
	CustomerEmail  string
	BaseCurrency   string
	OrderCurrency  string
	BaseGrandTotal int64 // minor units, base currency
	TotalDue       int64 // minor units, order currency
	Payment        OrderPayment
	History        []StatusHistoryEntry
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// OrderPayment holds the transaction bookkeeping of an order.
type OrderPayment struct {
	Method             string
	LastTransID        string
	TransactionID      string
	TransactionPending bool
	TransactionClosed  bool
	AmountAuthorized   int64
	AmountPaid         int64
	AmountCanceled     int64
	AdditionalInfo     map[string]string
}

// StatusHistoryEntry is one line of the append-only order comment log.
// IDs are ULIDs so lexical order equals append order.
type StatusHistoryEntry struct {
	ID        string
	Comment   string
	CreatedAt time.Time
}

func NewStatusHistoryEntry(comment string) StatusHistoryEntry {
	now := time.Now().UTC()
	return StatusHistoryEntry{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Comment:   comment,
		CreatedAt: now,
	}
}

// AddComment appends a history entry and returns it.
func (o *Order) AddComment(comment string) StatusHistoryEntry {
	e := NewStatusHistoryEntry(comment)
	o.History = append(o.History, e)
	return e
}

func TransactionComment(t *Transaction) string {
	return fmt.Sprintf("Unzer %s transaction: UniqueId: %s | ShortId: %s", t.Kind.Label(), t.UniqueID, t.ShortID)
}

func PaymentIDComment(paymentID string) string {
	return "Unzer paymentId: " + paymentID
}

func ProviderErrorComment(code, message string) string {
	return fmt.Sprintf("Unzer Error (%s): %s", code, message)
}

func (p *OrderPayment) Info(key string) string {
	if p.AdditionalInfo == nil {
		return ""
	}
	return p.AdditionalInfo[key]
}

func (p *OrderPayment) SetInfo(key, value string) {
	if p.AdditionalInfo == nil {
		p.AdditionalInfo = map[string]string{}
	}
	p.AdditionalInfo[key] = value
}

// SetTransaction records an authorization or charge returned by a payment command.
func (p *OrderPayment) SetTransaction(t *Transaction) {
	p.LastTransID = t.ID
	p.TransactionID = t.ID
	p.TransactionClosed = false
	p.TransactionPending = t.IsPending()
	p.SetInfo(InfoPaymentID, t.PaymentID)
}

// Settled reports whether a non-pending transaction has already been recorded.
func (p *OrderPayment) Settled() bool {
	return p.LastTransID != "" && !p.TransactionPending
}

// ApplyPayment folds the authoritative provider state into the bookkeeping and reports
// whether anything changed. It is safe to replay: ids are never cleared, a settled
// payment never becomes pending again and amounts only grow.
func (p *OrderPayment) ApplyPayment(res *PaymentResource) bool {
	before := p.snapshot()

	// A pending state arriving after settlement is an out-of-order delivery.
	if !(res.IsPending() && p.Settled()) {
		if t := res.LatestSuccessfulOrPending(); t != nil {
			p.LastTransID = t.ID
			p.TransactionID = t.ID
		}
		if p.LastTransID != "" || res.IsPending() {
			p.TransactionPending = res.IsPending()
		}
	}
	if res.ID != "" && p.Info(InfoPaymentID) == "" {
		p.SetInfo(InfoPaymentID, res.ID)
	}

	p.AmountAuthorized = max(p.AmountAuthorized, res.SuccessfulAmount(TransactionAuthorization))
	p.AmountPaid = max(p.AmountPaid, res.SuccessfulAmount(TransactionCharge))
	p.AmountCanceled = max(p.AmountCanceled, res.SuccessfulAmount(TransactionCancellation))

	return before != p.snapshot()
}

type paymentSnapshot struct {
	lastTransID, transactionID, paymentID string
	pending                               bool
	authorized, paid, canceled            int64
}

func (p *OrderPayment) snapshot() paymentSnapshot {
	return paymentSnapshot{
		lastTransID:   p.LastTransID,
		transactionID: p.TransactionID,
		paymentID:     p.Info(InfoPaymentID),
		pending:       p.TransactionPending,
		authorized:    p.AmountAuthorized,
		paid:          p.AmountPaid,
		canceled:      p.AmountCanceled,
	}
}

// CanCancel reports whether some authorized or paid amount is not yet canceled.
func (p *OrderPayment) CanCancel() bool {
	return p.AmountAuthorized > p.AmountCanceled || p.AmountPaid > p.AmountCanceled
}
