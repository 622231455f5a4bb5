//go:build !integration

package model

import (
	"strings"
	"testing"
)

func TestParseMinorUnits(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		err  bool
	}{
		{"", 0, false},
		{"100", 10000, false},
		{"100.5", 10050, false},
		{"100.0000", 10000, false},
		{"1.005", 101, false},
		{"1.999", 200, false},
		{".25", 25, false},
		{"-2.50", -250, false},
		{" 12.34 ", 1234, false},
		{"abc", 0, true},
		{"1.x", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseMinorUnits(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("ParseMinorUnits(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseMinorUnits(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
	}
}

func TestFormatMinorUnits(t *testing.T) {
	if got := FormatMinorUnits(10050); got != "100.50" {
		t.Fatalf("got %q", got)
	}
	if got := FormatMinorUnits(-5); got != "-0.05" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(119, "EUR"); got != "1.19 EUR" {
		t.Fatalf("got %q", got)
	}
	if got := FormatAmount(100, ""); got != "1.00" {
		t.Fatalf("got %q", got)
	}
}

func TestResource_Resolve(t *testing.T) {
	p := &PaymentResource{ID: "s-pay-1"}
	if PaymentResourceOf(p).Resolve() != p {
		t.Fatal("payment resource should resolve to itself")
	}
	tx := &Transaction{ID: "s-chg-1"}
	p.Attach(tx)
	if TransactionResourceOf(tx).Resolve() != p {
		t.Fatal("transaction should resolve to its payment")
	}
	if tx.PaymentID != "s-pay-1" {
		t.Fatalf("attach should default payment id, got %q", tx.PaymentID)
	}
	if TransactionResourceOf(nil).Resolve() != nil || UnknownResource().Resolve() != nil {
		t.Fatal("unknown or empty resources resolve to nil")
	}
	if TransactionResourceOf(&Transaction{ID: "orphan"}).Resolve() != nil {
		t.Fatal("orphan transaction resolves to nil")
	}
}

func TestPaymentResource_Attach(t *testing.T) {
	p := &PaymentResource{ID: "s-pay-1"}
	p.Attach(&Transaction{ID: "s-aut-1", Status: TransactionStatusPending})
	p.Attach(&Transaction{ID: "s-aut-1", Status: TransactionStatusSuccess})
	p.Attach(&Transaction{ID: "s-chg-1", Kind: TransactionCharge})
	if len(p.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(p.Transactions))
	}
	if !p.Transactions[0].IsSuccess() {
		t.Fatal("same id should replace the stored transaction")
	}
	if p.ChargeByIndex(0).ID != "s-chg-1" || p.ChargeByIndex(1) != nil {
		t.Fatal("unexpected charge lookup")
	}
}

func TestOrderPayment_ApplyPayment(t *testing.T) {
	var op OrderPayment

	pending := &PaymentResource{ID: "s-pay-1", State: PaymentStatePending}
	pending.Attach(&Transaction{Kind: TransactionAuthorization, ID: "s-aut-1", Status: TransactionStatusPending, Amount: 5000})
	if !op.ApplyPayment(pending) {
		t.Fatal("first pending state should change the payment")
	}
	if op.LastTransID != "s-aut-1" || !op.TransactionPending || op.Info(InfoPaymentID) != "s-pay-1" {
		t.Fatalf("unexpected bookkeeping: %+v", op)
	}
	if op.ApplyPayment(pending) {
		t.Fatal("replaying the same state must not change anything")
	}

	completed := &PaymentResource{ID: "s-pay-1", State: PaymentStateCompleted}
	completed.Attach(&Transaction{Kind: TransactionAuthorization, ID: "s-aut-1", Status: TransactionStatusSuccess, Amount: 5000})
	completed.Attach(&Transaction{Kind: TransactionCharge, ID: "s-chg-1", Status: TransactionStatusSuccess, Amount: 5000})
	completed.Attach(&Transaction{Kind: TransactionCharge, ID: "s-chg-2", Status: TransactionStatusError, Amount: 100})
	if !op.ApplyPayment(completed) {
		t.Fatal("completion should change the payment")
	}
	if op.LastTransID != "s-chg-1" || op.TransactionPending || op.AmountPaid != 5000 || op.AmountAuthorized != 5000 {
		t.Fatalf("unexpected bookkeeping after completion: %+v", op)
	}

	stale := &PaymentResource{ID: "s-pay-1", State: PaymentStatePending}
	stale.Attach(&Transaction{Kind: TransactionAuthorization, ID: "s-aut-9", Status: TransactionStatusPending})
	if op.ApplyPayment(stale) {
		t.Fatal("a late pending state must not reopen a settled payment")
	}
	if op.LastTransID != "s-chg-1" || op.TransactionPending || op.AmountPaid != 5000 {
		t.Fatalf("settled payment was modified: %+v", op)
	}

	other := &PaymentResource{ID: "s-pay-2", State: PaymentStateCompleted}
	op.ApplyPayment(other)
	if op.Info(InfoPaymentID) != "s-pay-1" {
		t.Fatal("payment id must not be replaced once set")
	}
}

func TestOrderPayment_CanCancel(t *testing.T) {
	if (&OrderPayment{}).CanCancel() {
		t.Fatal("nothing to cancel")
	}
	if !(&OrderPayment{AmountAuthorized: 100}).CanCancel() {
		t.Fatal("authorized amount can be canceled")
	}
	if (&OrderPayment{AmountAuthorized: 100, AmountCanceled: 100}).CanCancel() {
		t.Fatal("fully canceled")
	}
	if !(&OrderPayment{AmountPaid: 100, AmountCanceled: 50}).CanCancel() {
		t.Fatal("partly refunded charge can be canceled")
	}
}

func TestOrder_Comments(t *testing.T) {
	var o Order
	first := o.AddComment(PaymentIDComment("s-pay-1"))
	second := o.AddComment(TransactionComment(&Transaction{Kind: TransactionCharge, UniqueID: "31HA", ShortID: "1234.5678"}))
	if len(o.History) != 2 || first.ID >= second.ID {
		t.Fatalf("history ids must grow: %q %q", first.ID, second.ID)
	}
	if want := "Unzer Charge transaction: UniqueId: 31HA | ShortId: 1234.5678"; second.Comment != want {
		t.Fatalf("got %q", second.Comment)
	}
	if got := ProviderErrorComment("COR.400", "declined"); got != "Unzer Error (COR.400): declined" {
		t.Fatalf("got %q", got)
	}
}

func TestWebhookEvent_Domain(t *testing.T) {
	cases := map[string]string{
		"charge.succeeded":    "charge",
		"Payment.Completed":   "payment",
		"payment":             "payment",
		" authorize.pending ": "authorize",
	}
	for in, want := range cases {
		if got := (&WebhookEvent{Event: in}).Domain(); got != want {
			t.Errorf("Domain(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResourceKindFor(t *testing.T) {
	if k, tk := ResourceKindFor("payment"); k != ResourceKindPayment || tk != "" {
		t.Fatalf("payment: %s %s", k, tk)
	}
	if k, tk := ResourceKindFor("cancel-charge"); k != ResourceKindTransaction || tk != TransactionCancellation {
		t.Fatalf("cancel-charge: %s %s", k, tk)
	}
	if k, _ := ResourceKindFor("basket"); k != ResourceKindUnknown {
		t.Fatalf("basket: %s", k)
	}
	if TransactionCharge.Label() != "Charge" || TransactionKind("").Label() != "Unknown" {
		t.Fatal("unexpected labels")
	}
}

func TestResolveCharge(t *testing.T) {
	o := &Order{BaseGrandTotal: 11900, BaseCurrency: "EUR", TotalDue: 12800, OrderCurrency: "CHF"}
	if c := ResolveCharge(o, 0, CurrencyBase); c.Amount != 11900 || c.Currency != "EUR" {
		t.Fatalf("base default: %+v", c)
	}
	if c := ResolveCharge(o, 5000, CurrencyBase); c.Amount != 5000 || c.Currency != "EUR" {
		t.Fatalf("base requested: %+v", c)
	}
	if c := ResolveCharge(o, 5000, CurrencyCustomer); c.Amount != 12800 || c.Currency != "CHF" {
		t.Fatalf("customer: %+v", c)
	}
	if ParseTransmitCurrency(" Customer ") != CurrencyCustomer || ParseTransmitCurrency("whatever") != CurrencyBase {
		t.Fatal("unexpected transmit currency parsing")
	}
}

func TestCheckoutSession_SelectMethod(t *testing.T) {
	s := &CheckoutSession{ID: "sess", ThreatMetrixID: "tm-1"}
	if s.SelectMethod(MethodCards) {
		t.Fatal("cards never need the fraud script")
	}
	if !s.SelectMethod(MethodPaylaterInvoice) {
		t.Fatal("first paylater selection injects the script")
	}
	if s.SelectMethod(MethodPaylaterInvoiceB2B) {
		t.Fatal("the script is injected at most once per session")
	}
	if s.SelectedMethod != MethodPaylaterInvoiceB2B {
		t.Fatalf("selected = %q", s.SelectedMethod)
	}
	if (&CheckoutSession{}).SelectMethod(MethodPaylaterInvoice) {
		t.Fatal("no threat metrix id, no script")
	}

	script, iframe := FraudScriptURLs("org", "sess")
	if !strings.Contains(script, "org_id=org&session_id=sess") || !strings.Contains(iframe, "/fp/tags?") {
		t.Fatalf("unexpected urls: %s %s", script, iframe)
	}
}

func TestAssignAdditionalData(t *testing.T) {
	var p OrderPayment
	n := AssignAdditionalData(&p, map[string]any{
		InfoCustomerID:     "s-cst-1",
		InfoBirthDate:      "1980-01-01",
		InfoThreatMetrixID: float64(12),
		InfoResourceID:     []string{"nope"},
		"unrelated":        "x",
	})
	if n != 3 {
		t.Fatalf("assigned %d fields", n)
	}
	if p.Info(InfoThreatMetrixID) != "12" || p.Info(InfoCustomerID) != "s-cst-1" || p.Info("unrelated") != "" || p.Info(InfoResourceID) != "" {
		t.Fatalf("unexpected info: %v", p.AdditionalInfo)
	}
}

func TestMethods(t *testing.T) {
	m, ok := LookupMethod(MethodCards)
	if !ok || !m.CanVault || m.Vault {
		t.Fatalf("cards: %+v", m)
	}
	if _, ok := LookupMethod("unzer_unknown"); ok {
		t.Fatal("unknown method found")
	}
	all := Methods()
	all[0].Title = "changed"
	if Methods()[0].Title == "changed" {
		t.Fatal("Methods must return a copy")
	}
	if !ShowsBankInstructions(MethodPrepayment) || ShowsBankInstructions(MethodCards) {
		t.Fatal("unexpected bank instruction flags")
	}
	if !(Store{EnabledMethods: []string{MethodPaypal}}).MethodEnabled(MethodPaypal) {
		t.Fatal("enabled method not reported")
	}
}

func TestVaultToken(t *testing.T) {
	pt := &PaymentType{ID: "s-crd-1", Brand: "VISA", Number: "4711****1111"}
	tok := NewVaultToken("cust-1", MethodCards, pt, Charge{Amount: 100, Currency: "EUR"})
	if tok.GatewayToken != "s-crd-1" || !tok.Active || tok.PublicHash != PublicHash("cust-1", "s-crd-1") {
		t.Fatalf("unexpected token: %+v", tok)
	}
	if _, ok := tok.Details["email"]; ok {
		t.Fatal("empty details must be dropped")
	}
	if tok.Details["currency"] != "EUR" || tok.Details["brand"] != "VISA" {
		t.Fatalf("details: %v", tok.Details)
	}
	if len(tok.PublicHash) != 64 || PublicHash("cust-2", "s-crd-1") == tok.PublicHash {
		t.Fatal("public hash must be a per-customer sha256 hex")
	}
}
