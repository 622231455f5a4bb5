// File: internal/usecase/invoice_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/domain/ports/repository"
)

// PaymentInfo is the customer-facing payment summary of an order.
type PaymentInfo struct {
	IncrementID  string `json:"increment_id"`
	Method       string `json:"method"`
	Instructions string `json:"instructions"`
	CanCancel    bool   `json:"can_cancel"`
}

type PaymentInfoUseCase struct {
	stores   *StoreDirectory
	orders   repository.OrderRepository
	provider adapter.PaymentProvider
	log      *zerolog.Logger
}

func NewPaymentInfoUseCase(stores *StoreDirectory, orders repository.OrderRepository, provider adapter.PaymentProvider, logger *zerolog.Logger) *PaymentInfoUseCase {
	return &PaymentInfoUseCase{stores: stores, orders: orders, provider: provider, log: logger}
}

// PaymentInfo reads the payment summary of an order of storeCode.
func (uc *PaymentInfoUseCase) PaymentInfo(ctx context.Context, storeCode, incrementID string) (*PaymentInfo, error) {
	o, err := uc.orders.FindByIncrementID(ctx, repository.NoTX, incrementID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	store, err := uc.stores.ForOrder(storeCode, o)
	if err != nil {
		return nil, err
	}
	info := &PaymentInfo{
		IncrementID: o.IncrementID,
		Method:      o.Payment.Method,
		CanCancel:   o.Payment.CanCancel(),
	}
	if !model.ShowsBankInstructions(o.Payment.Method) {
		return info, nil
	}

	payment, err := uc.provider.FetchPaymentByOrderID(ctx, store, o.IncrementID)
	if err != nil {
		var apiErr *domain.ProviderAPIError
		if errors.As(err, &apiErr) {
			uc.log.Error().Str("increment_id", o.IncrementID).Str("code", apiErr.Code).Msg(apiErr.MerchantMessage)
		}
		return nil, err
	}
	info.Instructions = TransferInstructions(payment.ChargeByIndex(0), o.OrderCurrency)
	return info, nil
}

// TransferInstructions renders bank transfer instructions for the first charge of an
// invoice payment. A nil charge yields an empty string.
func TransferInstructions(charge *model.Transaction, orderCurrency string) string {
	if charge == nil {
		return ""
	}
	currency := orderCurrency
	if currency == "" {
		currency = charge.Currency
	}
	return fmt.Sprintf(
		"Please transfer the amount of %s to the following account after your order has arrived:\n\n"+
			"Holder: %s\nIBAN: %s\nBIC: %s\n\n"+
			"Please use only this identification number as the descriptor:\n%s",
		model.FormatAmount(charge.Amount, currency),
		charge.Holder, charge.IBAN, charge.BIC, charge.ShortID,
	)
}
