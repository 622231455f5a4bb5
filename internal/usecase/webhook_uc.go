// File: internal/usecase/webhook_uc.go
package usecase

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"

	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
)

// ParseEvent decodes and validates a webhook body against the store's public key.
func ParseEvent(body []byte, publicKey string) (*model.WebhookEvent, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, domain.ErrMalformedPayload
	}
	var ev model.WebhookEvent
	if err := json.Unmarshal(trimmed, &ev); err != nil {
		return nil, domain.ErrMalformedPayload
	}
	if ev.Event == "" || ev.PublicKey == "" || ev.RetrieveURL == "" {
		return nil, domain.ErrInvalidEvent
	}
	if subtle.ConstantTimeCompare([]byte(ev.PublicKey), []byte(publicKey)) != 1 {
		return nil, domain.ErrUnauthorizedEvent
	}
	return &ev, nil
}

// IsValidationError reports whether err is a webhook input error.
func IsValidationError(err error) bool {
	return errors.Is(err, domain.ErrMalformedPayload) ||
		errors.Is(err, domain.ErrInvalidEvent) ||
		errors.Is(err, domain.ErrUnauthorizedEvent)
}

type WebhookUseCase struct {
	stores     *StoreDirectory
	provider   adapter.PaymentProvider
	reconciler *ReconcileUseCase
	log        *zerolog.Logger
}

func NewWebhookUseCase(stores *StoreDirectory, provider adapter.PaymentProvider, reconciler *ReconcileUseCase, logger *zerolog.Logger) *WebhookUseCase {
	return &WebhookUseCase{stores: stores, provider: provider, reconciler: reconciler, log: logger}
}

// FetchPayment retrieves the resource behind ev and resolves it to its owning payment.
// A nil payment without error means there is nothing to reconcile.
func (uc *WebhookUseCase) FetchPayment(ctx context.Context, store model.Store, ev *model.WebhookEvent) (*model.PaymentResource, error) {
	res, err := uc.provider.FetchResourceFromEvent(ctx, store, ev)
	if err != nil {
		return nil, err
	}
	return res.Resolve(), nil
}

// Process handles one webhook delivery for the store code. A nil result with nil error
// is an acknowledged event that touched no order.
func (uc *WebhookUseCase) Process(ctx context.Context, storeCode string, body []byte) (*ReconcileResult, error) {
	store, err := uc.stores.Lookup(storeCode)
	if err != nil {
		return nil, err
	}
	ev, err := ParseEvent(body, store.PublicKey)
	if err != nil {
		return nil, err
	}

	payment, err := uc.FetchPayment(ctx, store, ev)
	if err != nil {
		uc.logFailure(err, store, ev)
		return nil, err
	}
	if payment == nil {
		uc.log.Debug().Str("event", ev.Event).Str("store", store.Code).Msg("webhook resource not reconcilable")
		return nil, nil
	}

	res, err := uc.reconciler.Reconcile(ctx, payment)
	if err != nil {
		uc.logFailure(err, store, ev)
		return nil, err
	}
	return res, nil
}

func (uc *WebhookUseCase) logFailure(err error, store model.Store, ev *model.WebhookEvent) {
	var apiErr *domain.ProviderAPIError
	switch {
	case IsValidationError(err):
		return
	case errors.As(err, &apiErr):
		uc.log.Error().
			Str("code", apiErr.Code).
			Str("store", store.Code).
			Str("event", ev.Event).
			Str("retrieve_url", ev.RetrieveURL).
			Msg(apiErr.MerchantMessage)
	case errors.Is(err, domain.ErrOrderNotFound):
		uc.log.Info().Str("store", store.Code).Str("event", ev.Event).Msg("webhook for unknown order")
	default:
		uc.log.Error().Err(err).Str("store", store.Code).Str("event", ev.Event).Msg("webhook processing failed")
	}
}
