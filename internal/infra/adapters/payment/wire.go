// File: internal/infra/adapters/payment/wire.go
package payment

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"unzer-reconciler/internal/domain/model"
)

// decimal accepts both "100.0000" and 100.0 and holds minor units.
type decimal int64

func (d *decimal) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*d = 0
		return nil
	}
	s := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
	}
	v, err := model.ParseMinorUnits(s)
	if err != nil {
		return err
	}
	*d = decimal(v)
	return nil
}

type apiErrorItem struct {
	Code            string `json:"code"`
	MerchantMessage string `json:"merchantMessage"`
	CustomerMessage string `json:"customerMessage"`
}

type apiErrorBody struct {
	ID      string         `json:"id"`
	IsError bool           `json:"isError"`
	Errors  []apiErrorItem `json:"errors"`
}

type resourcesDTO struct {
	PaymentID  string `json:"paymentId"`
	TypeID     string `json:"typeId"`
	CustomerID string `json:"customerId"`
	MetadataID string `json:"metadataId,omitempty"`
}

type messageDTO struct {
	Code     string `json:"code"`
	Merchant string `json:"merchant"`
	Customer string `json:"customer"`
}

type processingDTO struct {
	UniqueID string `json:"uniqueId"`
	ShortID  string `json:"shortId"`
	IBAN     string `json:"iban"`
	BIC      string `json:"bic"`
	Holder   string `json:"holder"`
}

type transactionDTO struct {
	ID          string        `json:"id"`
	IsSuccess   bool          `json:"isSuccess"`
	IsPending   bool          `json:"isPending"`
	IsError     bool          `json:"isError"`
	RedirectURL string        `json:"redirectUrl"`
	Message     messageDTO    `json:"message"`
	Amount      decimal       `json:"amount"`
	Currency    string        `json:"currency"`
	Resources   resourcesDTO  `json:"resources"`
	Processing  processingDTO `json:"processing"`
}

func (t transactionDTO) toModel(kind model.TransactionKind) *model.Transaction {
	status := model.TransactionStatusSuccess
	switch {
	case t.IsError:
		status = model.TransactionStatusError
	case t.IsPending:
		status = model.TransactionStatusPending
	}
	return &model.Transaction{
		Kind:        kind,
		ID:          t.ID,
		UniqueID:    t.Processing.UniqueID,
		ShortID:     t.Processing.ShortID,
		Status:      status,
		Amount:      int64(t.Amount),
		Currency:    t.Currency,
		PaymentID:   t.Resources.PaymentID,
		TypeID:      t.Resources.TypeID,
		RedirectURL: t.RedirectURL,
		Holder:      t.Processing.Holder,
		IBAN:        t.Processing.IBAN,
		BIC:         t.Processing.BIC,
		Message: model.TransactionMessage{
			Code:     t.Message.Code,
			Merchant: t.Message.Merchant,
			Customer: t.Message.Customer,
		},
	}
}

type paymentDTO struct {
	ID    string `json:"id"`
	State struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"state"`
	Amount struct {
		Total    decimal `json:"total"`
		Charged  decimal `json:"charged"`
		Canceled decimal `json:"canceled"`
	} `json:"amount"`
	Currency     string           `json:"currency"`
	OrderID      string           `json:"orderId"`
	Resources    resourcesDTO     `json:"resources"`
	Transactions []transactionRef `json:"transactions"`
}

// transactionRef is the short form listed inside a payment.
type transactionRef struct {
	Type   string  `json:"type"`
	Status string  `json:"status"`
	URL    string  `json:"url"`
	Amount decimal `json:"amount"`
}

// toModel converts the payment. The returned urls are aligned with Transactions and
// point at the full transaction resources.
func (p paymentDTO) toModel() (*model.PaymentResource, []string) {
	res := &model.PaymentResource{
		ID:       p.ID,
		OrderID:  p.OrderID,
		State:    model.PaymentState(strings.ToLower(p.State.Name)),
		Currency: p.Currency,
		Total:    int64(p.Amount.Total),
		Charged:  int64(p.Amount.Charged),
		Canceled: int64(p.Amount.Canceled),
	}
	urls := make([]string, 0, len(p.Transactions))
	for _, ref := range p.Transactions {
		_, kind := model.ResourceKindFor(strings.ToLower(ref.Type))
		if kind == "" {
			continue
		}
		t := &model.Transaction{
			Kind:      kind,
			ID:        lastSegment(ref.URL),
			Status:    model.TransactionStatus(strings.ToLower(ref.Status)),
			Amount:    int64(ref.Amount),
			Currency:  p.Currency,
			PaymentID: p.ID,
			TypeID:    p.Resources.TypeID,
			Payment:   res,
		}
		res.Transactions = append(res.Transactions, t)
		urls = append(urls, ref.URL)
	}
	return res, urls
}

type paymentTypeDTO struct {
	ID         string `json:"id"`
	Method     string `json:"method"`
	Recurring  bool   `json:"recurring"`
	Number     string `json:"number"`
	Brand      string `json:"brand"`
	ExpiryDate string `json:"expiryDate"`
	CardHolder string `json:"cardHolder"`
	Holder     string `json:"holder"`
	Email      string `json:"email"`
	IBAN       string `json:"iban"`
}

func (t paymentTypeDTO) toModel() *model.PaymentType {
	pt := &model.PaymentType{
		ID:         t.ID,
		Method:     t.Method,
		Brand:      t.Brand,
		Number:     t.Number,
		ExpiryDate: t.ExpiryDate,
		Email:      t.Email,
		Holder:     t.CardHolder,
		Recurring:  t.Recurring,
	}
	if pt.Holder == "" {
		pt.Holder = t.Holder
	}
	if pt.Number == "" {
		pt.Number = t.IBAN
	}
	switch {
	case pt.Brand != "":
		pt.Description = pt.Brand + " " + pt.Number
	case pt.Email != "":
		pt.Description = pt.Email
	default:
		pt.Description = pt.Number
	}
	return pt
}

type riskDataDTO struct {
	ThreatMetrixID    string `json:"threatMetrixId,omitempty"`
	CustomerGroup     string `json:"customerGroup,omitempty"`
	CustomerID        string `json:"customerId,omitempty"`
	RegistrationLevel string `json:"registrationLevel,omitempty"`
	RegistrationDate  string `json:"registrationDate,omitempty"`
	ConfirmedOrders   int    `json:"confirmedOrders,omitempty"`
	ConfirmedAmount   string `json:"confirmedAmount,omitempty"`
}

type authorizeBody struct {
	Amount                    string         `json:"amount"`
	Currency                  string         `json:"currency"`
	ReturnURL                 string         `json:"returnUrl,omitempty"`
	OrderID                   string         `json:"orderId,omitempty"`
	Resources                 resourcesDTO   `json:"resources"`
	AdditionalTransactionData map[string]any `json:"additionalTransactionData,omitempty"`
}

func newAuthorizeBody(req *model.AuthorizationRequest, metadataID string) authorizeBody {
	body := authorizeBody{
		Amount:    model.FormatMinorUnits(req.Charge.Amount),
		Currency:  req.Charge.Currency,
		ReturnURL: req.ReturnURL,
		OrderID:   req.OrderID,
		Resources: resourcesDTO{
			TypeID:     req.TypeID,
			CustomerID: req.CustomerID,
			MetadataID: metadataID,
		},
	}
	extra := map[string]any{}
	if req.RecurrenceType != "" {
		extra["card"] = map[string]string{"recurrenceType": req.RecurrenceType}
	}
	if rd := req.RiskData; rd != nil {
		dto := riskDataDTO{
			ThreatMetrixID:    rd.ThreatMetrixID,
			CustomerGroup:     rd.CustomerGroup,
			CustomerID:        rd.CustomerID,
			RegistrationLevel: rd.RegistrationLevel,
			RegistrationDate:  rd.RegistrationDateISO8601,
			ConfirmedOrders:   rd.ConfirmedOrders,
		}
		if rd.ConfirmedAmount > 0 {
			dto.ConfirmedAmount = model.FormatMinorUnits(rd.ConfirmedAmount)
		}
		extra["riskData"] = dto
	}
	if len(extra) > 0 {
		body.AdditionalTransactionData = extra
	}
	return body
}

func lastSegment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	return path.Base(strings.TrimRight(u.Path, "/"))
}
