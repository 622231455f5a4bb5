package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/infra/logging"
	"unzer-reconciler/internal/infra/metrics"
	"unzer-reconciler/internal/usecase"
)

const maxCheckoutBody = 64 << 10

func (s *Server) handleCheckoutConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.checkout.Config(storeFor(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type selectMethodRequest struct {
	Method         string `json:"method"`
	ThreatMetrixID string `json:"threat_metrix_id"`
}

func (s *Server) handleSelectMethod(w http.ResponseWriter, r *http.Request) {
	var req selectMethodRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sel, err := s.checkout.SelectMethod(r.Context(), storeFor(r), chi.URLParam(r, "sessionID"), req.Method, req.ThreatMetrixID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

type paymentDataRequest struct {
	Method         string         `json:"method"`
	AdditionalData map[string]any `json:"additional_data"`
}

func (s *Server) handleAssignPaymentData(w http.ResponseWriter, r *http.Request) {
	var req paymentDataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	incrementID := chi.URLParam(r, "incrementID")
	n, err := s.checkout.AssignPaymentData(logging.WithIncrementID(r.Context(), incrementID), storeFor(r), incrementID, req.Method, req.AdditionalData)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"assigned": n})
}

type authorizeRequest struct {
	// Amount is a decimal string in base currency, e.g. "119.90". Empty means the
	// order's grand total.
	Amount       string `json:"amount"`
	ResourceID   string `json:"resource_id"`
	PublicHash   string `json:"public_hash"`
	SaveForLater bool   `json:"save_for_later"`
	SessionID    string `json:"session_id"`
}

type authorizeResponse struct {
	State           model.AuthorizationState `json:"state"`
	PaymentID       string                   `json:"payment_id"`
	TransactionID   string                   `json:"transaction_id"`
	Amount          string                   `json:"amount"`
	Currency        string                   `json:"currency"`
	RedirectURL     string                   `json:"redirect_url,omitempty"`
	VaultPublicHash string                   `json:"vault_public_hash,omitempty"`
}

func (s *Server) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	var req authorizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, err := model.ParseMinorUnits(req.Amount)
	if err != nil || amount < 0 {
		writeJSONError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	incrementID := chi.URLParam(r, "incrementID")
	res, err := s.authorizer.Authorize(logging.WithIncrementID(r.Context(), incrementID), usecase.AuthorizeCommand{
		StoreCode:    storeFor(r),
		IncrementID:  incrementID,
		Amount:       amount,
		ResourceID:   req.ResourceID,
		PublicHash:   req.PublicHash,
		SaveForLater: req.SaveForLater,
		SessionID:    req.SessionID,
	})
	if err != nil {
		var authErr *domain.AuthorizationError
		switch {
		case errors.Is(err, domain.ErrAuthorizationFailed):
			metrics.IncAuthorization(string(model.AuthorizationDeclined))
		case errors.As(err, &authErr):
			metrics.IncAuthorization(string(model.AuthorizationErrored))
		}
		s.writeError(w, r, err)
		return
	}

	metrics.IncAuthorization(string(res.State))
	if res.State == model.AuthorizationAuthorized {
		metrics.AddAuthorizedAmount(res.Charge.Currency, res.Charge.Amount)
	}
	writeJSON(w, http.StatusOK, authorizeResponse{
		State:           res.State,
		PaymentID:       res.PaymentID,
		TransactionID:   res.TransactionID,
		Amount:          model.FormatMinorUnits(res.Charge.Amount),
		Currency:        res.Charge.Currency,
		RedirectURL:     res.RedirectURL,
		VaultPublicHash: res.VaultPublicHash,
	})
}

func (s *Server) handlePaymentInfo(w http.ResponseWriter, r *http.Request) {
	incrementID := chi.URLParam(r, "incrementID")
	info, err := s.info.PaymentInfo(logging.WithIncrementID(r.Context(), incrementID), storeFor(r), incrementID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// writeError maps domain errors to checkout API answers. Provider detail never reaches
// the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr *domain.AuthorizationError
		apiErr  *domain.ProviderAPIError
	)
	switch {
	case errors.As(err, &authErr):
		writeJSONError(w, http.StatusUnprocessableEntity, authErr.Message)
	case errors.Is(err, domain.ErrVaultTokenNotFound):
		writeJSONError(w, http.StatusUnprocessableEntity, "stored payment method not found")
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrStoreNotFound), errors.Is(err, domain.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeJSONError(w, http.StatusBadRequest, "invalid request")
	case errors.As(err, &apiErr):
		writeJSONError(w, http.StatusBadGateway, apiErr.CustomerMessage())
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("path", r.URL.Path).Msg("checkout request failed")
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCheckoutBody)).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
