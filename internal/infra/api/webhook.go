package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/infra/logging"
	"unzer-reconciler/internal/infra/metrics"
	"unzer-reconciler/internal/usecase"
)

const maxWebhookBody = 1 << 20

// handleWebhook answers once, after processing: 200 "OK", 400 "Bad request",
// 404 "Not found" or 500 with a customer-safe message.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	storeCode := r.URL.Query().Get("store")
	ctx := logging.WithStore(r.Context(), storeCode)

	var (
		status = http.StatusOK
		body   = "OK"
		result = "ok"
	)
	defer func() {
		metrics.ObserveWebhook(result, time.Since(start))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}()

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		status, body, result = http.StatusBadRequest, "Bad request", "bad_request"
		return
	}

	res, err := s.webhooks.Process(ctx, storeCode, payload)
	var apiErr *domain.ProviderAPIError
	switch {
	case err == nil && res == nil:
		result = "ignored"
	case err == nil:
		if res.Changed {
			metrics.IncReconciledOrder(usecase.SourceWebhook)
		}
	case usecase.IsValidationError(err):
		status, body, result = http.StatusBadRequest, "Bad request", "bad_request"
	case errors.Is(err, domain.ErrStoreNotFound), errors.Is(err, domain.ErrOrderNotFound):
		status, body, result = http.StatusNotFound, "Not found", "not_found"
	case errors.As(err, &apiErr):
		status, body, result = http.StatusInternalServerError, apiErr.CustomerMessage(), "provider_error"
	default:
		status, body, result = http.StatusInternalServerError, "Internal server error", "error"
	}
}
