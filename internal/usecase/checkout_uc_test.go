//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/usecase"
)

func newCheckoutUC(orders *MockOrderRepo, sessions *MockSessionRepo) *usecase.CheckoutUseCase {
	return usecase.NewCheckoutUseCase(testStores(), sessions, orders, NewMockTxManager(), time.Hour, "363t8kgq", newTestLogger())
}

func TestCheckoutUseCase_Config(t *testing.T) {
	uc := newCheckoutUC(NewMockOrderRepo(), NewMockSessionRepo())

	cfg, err := uc.Config("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	payment := cfg["payment"].(map[string]any)
	base := payment[model.MethodBase].(map[string]any)
	if base["publicKey"] != "s-pub-X" {
		t.Errorf("unexpected public key %v", base["publicKey"])
	}
	for _, code := range []string{model.MethodCards, model.MethodPaylaterInvoice, model.MethodInvoice} {
		if _, ok := payment[code]; !ok {
			t.Errorf("expected enabled method %s in config", code)
		}
	}
	if _, ok := payment[model.MethodCardsVault]; ok {
		t.Error("vault methods must not be listed")
	}
	if _, ok := payment[model.MethodPaypal]; ok {
		t.Error("disabled methods must not be listed")
	}

	if _, err := uc.Config("unknown"); !errors.Is(err, domain.ErrStoreNotFound) {
		t.Errorf("expected ErrStoreNotFound, got %v", err)
	}
}

func TestCheckoutUseCase_SelectMethod(t *testing.T) {
	ctx := context.Background()
	sessions := NewMockSessionRepo()
	uc := newCheckoutUC(NewMockOrderRepo(), sessions)

	first, err := uc.SelectMethod(ctx, "", "", model.MethodPaylaterInvoice, "tm-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !first.InjectFraudScript || first.SessionID == "" {
		t.Fatalf("expected fraud script on first selection, got %+v", first)
	}
	if !strings.Contains(first.ScriptURL, "org_id=363t8kgq") || !strings.Contains(first.ScriptURL, "session_id=tm-1") {
		t.Errorf("unexpected script url %q", first.ScriptURL)
	}
	if sessions.LastTTL != time.Hour {
		t.Errorf("expected session ttl of 1h, got %s", sessions.LastTTL)
	}

	// Switching back and forth within the same session injects only once.
	if again, _ := uc.SelectMethod(ctx, "", first.SessionID, model.MethodCards, ""); again.InjectFraudScript {
		t.Error("cards never need the fraud script")
	}
	if again, _ := uc.SelectMethod(ctx, "", first.SessionID, model.MethodPaylaterInvoice, ""); again.InjectFraudScript {
		t.Error("expected the fraud script only once per session")
	}

	// A new session starts over.
	other, _ := uc.SelectMethod(ctx, "", "", model.MethodPaylaterInvoice, "tm-2")
	if !other.InjectFraudScript {
		t.Error("expected a new session to get the fraud script")
	}

	if _, err := uc.SelectMethod(ctx, "", "", model.MethodPaypal, ""); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for a disabled method, got %v", err)
	}
}

func TestCheckoutUseCase_AssignPaymentData(t *testing.T) {
	ctx := context.Background()
	orders := NewMockOrderRepo(pendingOrder("000000400"))
	uc := newCheckoutUC(orders, NewMockSessionRepo())

	n, err := uc.AssignPaymentData(ctx, "default", "000000400", model.MethodPaylaterInvoice, map[string]any{
		model.InfoResourceID: "s-piv-9",
		model.InfoBirthDate:  "1980-01-01",
		"cc_number":          "4111111111111111",
		model.InfoSalutation: nil,
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 assigned fields, got %d", n)
	}
	p := orders.Get("000000400").Payment
	if p.Method != model.MethodPaylaterInvoice || p.Info(model.InfoResourceID) != "s-piv-9" {
		t.Errorf("unexpected payment %+v", p)
	}
	if _, ok := p.AdditionalInfo["cc_number"]; ok {
		t.Error("non whitelisted keys must be ignored")
	}

	if _, err := uc.AssignPaymentData(ctx, "default", "missing", "", nil); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Errorf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestPaymentInfoUseCase(t *testing.T) {
	ctx := context.Background()
	invoice := pendingOrder("000000500")
	invoice.Payment.AmountAuthorized = 10000
	card := cardOrder("000000501")
	orders := NewMockOrderRepo(invoice, card)

	provider := &MockProvider{
		FetchByOrderIDFunc: func(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error) {
			if orderID != "000000500" {
				t.Errorf("unexpected fetch for %s", orderID)
			}
			p := &model.PaymentResource{ID: "s-pay-5", OrderID: orderID}
			p.Attach(&model.Transaction{Kind: model.TransactionAuthorization, ID: "s-aut-5"})
			p.Attach(&model.Transaction{Kind: model.TransactionCharge, ID: "s-chg-5", Amount: 11990, ShortID: "2222.3333.4444", Holder: "Unzer GmbH", IBAN: "DE89370400440532013000", BIC: "COBADEFFXXX"})
			return p, nil
		},
	}
	uc := usecase.NewPaymentInfoUseCase(testStores(), orders, provider, newTestLogger())

	info, err := uc.PaymentInfo(ctx, "default", "000000500")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	for _, want := range []string{"119.90 EUR", "Holder: Unzer GmbH", "IBAN: DE89370400440532013000", "BIC: COBADEFFXXX", "2222.3333.4444"} {
		if !strings.Contains(info.Instructions, want) {
			t.Errorf("instructions missing %q:\n%s", want, info.Instructions)
		}
	}
	if !info.CanCancel {
		t.Error("expected an authorized, uncanceled order to be cancelable")
	}

	info, err = uc.PaymentInfo(ctx, "", "000000501")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if info.Instructions != "" || info.CanCancel {
		t.Errorf("unexpected info for card order %+v", info)
	}

	if usecase.TransferInstructions(nil, "EUR") != "" {
		t.Error("expected empty instructions without a charge")
	}
}

func TestCheckout_OrdersOfOtherStoresAreHidden(t *testing.T) {
	ctx := context.Background()
	second := testStore()
	second.Code, second.PrivateKey = "second", "s-priv-second"
	stores := testStores(testStore(), second)

	orders := NewMockOrderRepo(pendingOrder("000000600"))
	provider := &MockProvider{}

	checkout := usecase.NewCheckoutUseCase(stores, NewMockSessionRepo(), orders, NewMockTxManager(), time.Hour, "org", newTestLogger())
	if _, err := checkout.AssignPaymentData(ctx, "second", "000000600", model.MethodCards, map[string]any{model.InfoResourceID: "s-crd-x"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if got := orders.Get("000000600").Payment; got.Method != model.MethodInvoice || got.Info(model.InfoResourceID) != "" {
		t.Errorf("order of another store was modified: %+v", got)
	}

	info := usecase.NewPaymentInfoUseCase(stores, orders, provider, newTestLogger())
	if _, err := info.PaymentInfo(ctx, "second", "000000600"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	authorize := usecase.NewAuthorizeUseCase(stores, orders, NewMockVaultRepo(), NewMockSessionRepo(), NewMockTxManager(), provider, nil, newTestLogger())
	if _, err := authorize.Authorize(ctx, usecase.AuthorizeCommand{StoreCode: "second", IncrementID: "000000600", ResourceID: "s-crd-1"}); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
	if len(provider.AuthorizeRequests) != 0 {
		t.Error("no provider call may be made for an order of another store")
	}

	provider.FetchByOrderIDFunc = func(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error) {
		if store.Code != "default" {
			t.Errorf("fetched with the credentials of %q", store.Code)
		}
		return &model.PaymentResource{ID: "s-pay-6", OrderID: orderID}, nil
	}
	if _, err := info.PaymentInfo(ctx, "default", "000000600"); err != nil {
		t.Fatalf("owning store must see its order: %v", err)
	}
}
