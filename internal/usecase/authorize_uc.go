// File: internal/usecase/authorize_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/domain/ports/repository"
)

// FailedAuthorizationMessage is shown when the provider declined the authorization.
const FailedAuthorizationMessage = "Failed to authorize payment."

// AuthorizeCommand is one checkout submission.
type AuthorizeCommand struct {
	// StoreCode is the store the caller is scoped to. Orders of other stores are not found.
	StoreCode   string
	IncrementID string
	// Amount is the requested amount in base currency minor units. Zero means the
	// order's base grand total.
	Amount int64
	// ResourceID is the tokenized payment type. Falls back to the payment's
	// additional information, then to the vault token named by PublicHash.
	ResourceID   string
	PublicHash   string
	SaveForLater bool
	SessionID    string
}

type AuthorizeResult struct {
	State           model.AuthorizationState
	PaymentID       string
	TransactionID   string
	Charge          model.Charge
	RedirectURL     string
	VaultPublicHash string
}

type AuthorizeUseCase struct {
	stores   *StoreDirectory
	orders   repository.OrderRepository
	vault    repository.VaultRepository
	sessions repository.SessionRepository
	tm       repository.TransactionManager
	provider adapter.PaymentProvider
	events   adapter.EventPublisher
	log      *zerolog.Logger
}

// NewAuthorizeUseCase wires the authorize command. sessions and events may be nil.
func NewAuthorizeUseCase(
	stores *StoreDirectory,
	orders repository.OrderRepository,
	vault repository.VaultRepository,
	sessions repository.SessionRepository,
	tm repository.TransactionManager,
	provider adapter.PaymentProvider,
	events adapter.EventPublisher,
	logger *zerolog.Logger,
) *AuthorizeUseCase {
	return &AuthorizeUseCase{
		stores:   stores,
		orders:   orders,
		vault:    vault,
		sessions: sessions,
		tm:       tm,
		provider: provider,
		events:   events,
		log:      logger,
	}
}

// Authorize reserves the order amount with the provider.
//
// Provider API errors leave the order untouched and come back as *domain.AuthorizationError
// with the customer-safe message. A transaction returned with error status is recorded
// in the order history only, and the error wraps domain.ErrAuthorizationFailed.
func (uc *AuthorizeUseCase) Authorize(ctx context.Context, cmd AuthorizeCommand) (*AuthorizeResult, error) {
	order, err := uc.orders.FindByIncrementID(ctx, repository.NoTX, cmd.IncrementID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	store, err := uc.stores.ForOrder(cmd.StoreCode, order)
	if err != nil {
		return nil, err
	}
	method, ok := model.LookupMethod(order.Payment.Method)
	if !ok {
		return nil, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, order.Payment.Method)
	}

	charge := model.ResolveCharge(order, cmd.Amount, store.TransmitCurrency)
	res := &AuthorizeResult{State: model.AuthorizationPending, Charge: charge}

	typeID, reuse, err := uc.resolveTypeID(ctx, order, cmd)
	if err != nil {
		return nil, err
	}

	req := &model.AuthorizationRequest{
		Charge:     charge,
		OrderID:    order.IncrementID,
		ReturnURL:  store.ReturnURL,
		TypeID:     typeID,
		CustomerID: order.Payment.Info(model.InfoCustomerID),
		Metadata: map[string]string{
			"storeCode":   store.Code,
			"incrementId": order.IncrementID,
		},
	}
	if method.HasRiskData {
		req.RiskData = uc.riskData(ctx, order, cmd.SessionID)
	}
	saveToken := cmd.SaveForLater && method.CanVault && !reuse
	if saveToken || reuse {
		req.RecurrenceType = model.RecurrenceOneClick
	}

	txn, err := uc.provider.Authorize(ctx, store, req)
	if err != nil {
		res.State = model.AuthorizationErrored
		var apiErr *domain.ProviderAPIError
		if errors.As(err, &apiErr) {
			uc.log.Error().Str("increment_id", order.IncrementID).Str("code", apiErr.Code).Msg(apiErr.MerchantMessage)
			return res, &domain.AuthorizationError{Message: apiErr.CustomerMessage(), Err: err}
		}
		uc.log.Error().Err(err).Str("increment_id", order.IncrementID).Msg("authorize failed")
		return res, &domain.AuthorizationError{Message: domain.DefaultClientMessage, Err: err}
	}
	res.PaymentID = txn.PaymentID
	res.TransactionID = txn.ID
	res.RedirectURL = txn.RedirectURL

	var token *model.VaultToken
	if saveToken && !txn.IsError() {
		token = uc.vaultToken(ctx, store, order, method, typeID, charge)
	}

	err = uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		locked, err := uc.orders.FindByIncrementID(ctx, tx, order.IncrementID)
		if err != nil {
			return err
		}
		entries := []model.StatusHistoryEntry{
			locked.AddComment(model.PaymentIDComment(txn.PaymentID)),
			locked.AddComment(model.TransactionComment(txn)),
		}
		if err := uc.orders.AppendHistory(ctx, tx, locked.IncrementID, entries...); err != nil {
			return err
		}
		if txn.IsError() {
			return nil
		}

		locked.Payment.SetTransaction(txn)
		if token != nil {
			if err := uc.vault.Save(ctx, tx, token); err != nil {
				return err
			}
		}
		order = locked
		return uc.orders.UpdatePayment(ctx, tx, locked.IncrementID, locked.Payment)
	})
	if err != nil {
		res.State = model.AuthorizationErrored
		return res, err
	}

	if txn.IsError() {
		res.State = model.AuthorizationDeclined
		uc.log.Warn().
			Str("increment_id", order.IncrementID).
			Str("payment_id", txn.PaymentID).
			Str("code", txn.Message.Code).
			Msg(txn.Message.Merchant)
		return res, &domain.AuthorizationError{Message: FailedAuthorizationMessage, Err: domain.ErrAuthorizationFailed}
	}

	if token != nil {
		res.VaultPublicHash = token.PublicHash
	}
	if txn.IsPending() {
		res.State = model.AuthorizationPending
	} else {
		res.State = model.AuthorizationAuthorized
	}
	if uc.events != nil {
		if err := uc.events.Publish(ctx, adapter.RoutingOrderPaymentAuthorized, orderPaymentEvent(order, "authorize")); err != nil {
			uc.log.Error().Err(err).Str("increment_id", order.IncrementID).Msg("publish authorized event failed")
		}
	}
	return res, nil
}

func (uc *AuthorizeUseCase) resolveTypeID(ctx context.Context, order *model.Order, cmd AuthorizeCommand) (typeID string, reuse bool, err error) {
	if cmd.ResourceID != "" {
		return cmd.ResourceID, false, nil
	}
	if id := order.Payment.Info(model.InfoResourceID); id != "" {
		return id, false, nil
	}
	if cmd.PublicHash == "" {
		return "", false, fmt.Errorf("%w: missing payment resource", domain.ErrInvalidArgument)
	}
	tok, err := uc.vault.FindByPublicHash(ctx, repository.NoTX, order.CustomerID, cmd.PublicHash)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !tok.Active) {
		return "", false, domain.ErrVaultTokenNotFound
	}
	if err != nil {
		return "", false, err
	}
	return tok.GatewayToken, true, nil
}

func (uc *AuthorizeUseCase) riskData(ctx context.Context, order *model.Order, sessionID string) *model.RiskData {
	rd := &model.RiskData{
		ThreatMetrixID:    order.Payment.Info(model.InfoThreatMetrixID),
		CustomerGroup:     "NEUTRAL",
		RegistrationLevel: "0",
		CustomerID:        order.CustomerID,
	}
	if order.CustomerID != "" {
		rd.RegistrationLevel = "1"
	}
	if rd.ThreatMetrixID == "" && sessionID != "" && uc.sessions != nil {
		if s, err := uc.sessions.Get(ctx, sessionID); err == nil {
			rd.ThreatMetrixID = s.ThreatMetrixID
		}
	}
	return rd
}

// vaultToken loads the payment type to build a token. Failures only skip saving.
func (uc *AuthorizeUseCase) vaultToken(ctx context.Context, store model.Store, order *model.Order, method model.Method, typeID string, charge model.Charge) *model.VaultToken {
	if order.CustomerID == "" {
		return nil
	}
	pt, err := uc.provider.FetchPaymentType(ctx, store, typeID)
	if err != nil {
		uc.log.Warn().Err(err).Str("increment_id", order.IncrementID).Msg("fetch payment type for vault failed")
		return nil
	}
	return model.NewVaultToken(order.CustomerID, method.Code, pt, charge)
}
