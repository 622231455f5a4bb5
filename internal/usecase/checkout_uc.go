// File: internal/usecase/checkout_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/repository"
)

// MethodSelection is returned when the customer picks a payment method.
type MethodSelection struct {
	SessionID string `json:"session_id"`
	Method    string `json:"method"`
	// InjectFraudScript is true once per session for methods with device fingerprinting.
	InjectFraudScript bool   `json:"inject_fraud_script"`
	ScriptURL         string `json:"script_url,omitempty"`
	IframeURL         string `json:"iframe_url,omitempty"`
}

type CheckoutUseCase struct {
	stores     *StoreDirectory
	sessions   repository.SessionRepository
	orders     repository.OrderRepository
	tm         repository.TransactionManager
	sessionTTL time.Duration
	tmOrgID    string
	log        *zerolog.Logger
}

func NewCheckoutUseCase(
	stores *StoreDirectory,
	sessions repository.SessionRepository,
	orders repository.OrderRepository,
	tm repository.TransactionManager,
	sessionTTL time.Duration,
	threatMetrixOrgID string,
	logger *zerolog.Logger,
) *CheckoutUseCase {
	return &CheckoutUseCase{
		stores:     stores,
		sessions:   sessions,
		orders:     orders,
		tm:         tm,
		sessionTTL: sessionTTL,
		tmOrgID:    threatMetrixOrgID,
		log:        logger,
	}
}

// Config returns the checkout configuration of the store: the public key and the
// frontend settings of every enabled, non-vault method.
func (uc *CheckoutUseCase) Config(storeCode string) (map[string]any, error) {
	store, err := uc.stores.Lookup(storeCode)
	if err != nil {
		return nil, err
	}
	payment := map[string]any{
		model.MethodBase: map[string]any{"publicKey": store.PublicKey},
	}
	for _, m := range model.Methods() {
		if m.Vault || !store.MethodEnabled(m.Code) {
			continue
		}
		payment[m.Code] = map[string]any{
			"title":       m.Title,
			"hasRiskData": m.HasRiskData,
			"canVault":    m.CanVault,
		}
	}
	return map[string]any{"payment": payment}, nil
}

// SelectMethod records the chosen method on the checkout session, creating the session
// when sessionID is empty or unknown.
func (uc *CheckoutUseCase) SelectMethod(ctx context.Context, storeCode, sessionID, method, threatMetrixID string) (*MethodSelection, error) {
	store, err := uc.stores.Lookup(storeCode)
	if err != nil {
		return nil, err
	}
	if !store.MethodEnabled(method) {
		return nil, fmt.Errorf("%w: method %q not enabled", domain.ErrInvalidArgument, method)
	}

	var s *model.CheckoutSession
	if sessionID != "" {
		s, err = uc.sessions.Get(ctx, sessionID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
	}
	if s == nil {
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		s = &model.CheckoutSession{ID: sessionID, StoreCode: store.Code}
	}
	if threatMetrixID != "" {
		s.ThreatMetrixID = threatMetrixID
	}

	out := &MethodSelection{SessionID: s.ID, Method: method}
	out.InjectFraudScript = s.SelectMethod(method)
	if out.InjectFraudScript {
		out.ScriptURL, out.IframeURL = model.FraudScriptURLs(uc.tmOrgID, s.ThreatMetrixID)
	}
	if err := uc.sessions.Save(ctx, s, uc.sessionTTL); err != nil {
		return nil, err
	}
	return out, nil
}

// AssignPaymentData stores the method and the whitelisted checkout fields on the order
// payment and returns the number of assigned fields.
func (uc *CheckoutUseCase) AssignPaymentData(ctx context.Context, storeCode, incrementID, method string, data map[string]any) (int, error) {
	if method != "" {
		if _, ok := model.LookupMethod(method); !ok {
			return 0, fmt.Errorf("%w: unknown payment method %q", domain.ErrInvalidArgument, method)
		}
	}
	n := 0
	err := uc.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		o, err := uc.orders.FindByIncrementID(ctx, tx, incrementID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrOrderNotFound
		}
		if err != nil {
			return err
		}
		if _, err := uc.stores.ForOrder(storeCode, o); err != nil {
			return err
		}
		if method != "" {
			o.Payment.Method = method
		}
		n = model.AssignAdditionalData(&o.Payment, data)
		return uc.orders.UpdatePayment(ctx, tx, o.IncrementID, o.Payment)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
