package model

import "strings"

// TransmitCurrency selects which amount/currency pair is sent to the provider.
type TransmitCurrency string

const (
	CurrencyBase     TransmitCurrency = "base"
	CurrencyCustomer TransmitCurrency = "customer"
)

func ParseTransmitCurrency(s string) TransmitCurrency {
	if strings.EqualFold(strings.TrimSpace(s), string(CurrencyCustomer)) {
		return CurrencyCustomer
	}
	return CurrencyBase
}

// Charge is the amount/currency pair of one payment command. It is resolved once per
// command and shared by the authorization request and the vault logic.
type Charge struct {
	Amount   int64
	Currency string
}

// ResolveCharge applies the currency policy. The base policy keeps the requested
// amount in the base currency; the customer policy sends the order's total due in the
// order currency.
func ResolveCharge(o *Order, requested int64, policy TransmitCurrency) Charge {
	if policy == CurrencyCustomer {
		return Charge{Amount: o.TotalDue, Currency: o.OrderCurrency}
	}
	if requested <= 0 {
		requested = o.BaseGrandTotal
	}
	return Charge{Amount: requested, Currency: o.BaseCurrency}
}

const RecurrenceOneClick = "oneclick"

// RiskData is fraud-prevention data attached to an authorization.
type RiskData struct {
	ThreatMetrixID          string
	CustomerGroup           string
	RegistrationLevel       string
	CustomerID              string
	ConfirmedOrders         int
	ConfirmedAmount         int64
	RegistrationDateISO8601 string
}

// AuthorizationRequest is what the orchestrator sends to the provider.
type AuthorizationRequest struct {
	Charge         Charge
	OrderID        string
	ReturnURL      string
	TypeID         string
	CustomerID     string
	RecurrenceType string
	RiskData       *RiskData
	Metadata       map[string]string
}

// AuthorizationState is the outcome of one checkout attempt.
type AuthorizationState string

const (
	AuthorizationPending    AuthorizationState = "pending"
	AuthorizationAuthorized AuthorizationState = "authorized"
	AuthorizationDeclined   AuthorizationState = "declined"
	AuthorizationErrored    AuthorizationState = "errored"
)

// PaymentType is a tokenized payment method held by the provider.
type PaymentType struct {
	ID          string
	Method      string
	Brand       string
	Number      string
	ExpiryDate  string
	Email       string
	Holder      string
	Recurring   bool
	Description string
}

// Store is a shop scope with its own provider credentials.
type Store struct {
	Code             string
	PublicKey        string
	PrivateKey       string
	TransmitCurrency TransmitCurrency
	EnabledMethods   []string
	ReturnURL        string
}

func (s Store) MethodEnabled(code string) bool {
	for _, m := range s.EnabledMethods {
		if m == code {
			return true
		}
	}
	return false
}
