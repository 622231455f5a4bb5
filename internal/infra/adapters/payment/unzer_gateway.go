// File: internal/infra/adapters/payment/unzer_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/infra/metrics"
)

var _ adapter.PaymentProvider = (*UnzerGateway)(nil)

const maxResponseBytes = 4 << 20

// Options configures the Unzer gateway. Zero values fall back to defaults.
type Options struct {
	BaseURL              string
	Timeout              time.Duration
	MaxRetries           int
	RetryInitialInterval time.Duration
	BreakerTimeout       time.Duration
	HTTPClient           *http.Client
}

// UnzerGateway implements adapter.PaymentProvider against the Unzer payment API v1.
// Every call authenticates with the store's private key.
type UnzerGateway struct {
	base    *url.URL
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]byte]
	retry   retryPolicy
	log     *zerolog.Logger
}

func NewUnzerGateway(opts Options, logger *zerolog.Logger) (*UnzerGateway, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.unzer.com/v1"
	}
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid provider base url %q", opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.RetryInitialInterval <= 0 {
		opts.RetryInitialInterval = 200 * time.Millisecond
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &UnzerGateway{
		base:    base,
		client:  client,
		breaker: newBreaker("unzer", opts.BreakerTimeout),
		retry: retryPolicy{
			maxRetries:      opts.MaxRetries,
			initialInterval: opts.RetryInitialInterval,
			maxElapsed:      opts.Timeout * 2,
		},
		log: logger,
	}, nil
}

func (g *UnzerGateway) Name() string { return "unzer" }

// FetchResourceFromEvent classifies the event by its domain and loads the resource.
// Transactions are linked to their owning payment, which is loaded as well.
func (g *UnzerGateway) FetchResourceFromEvent(ctx context.Context, store model.Store, ev *model.WebhookEvent) (model.Resource, error) {
	target, err := g.resolveRetrieveURL(ev.RetrieveURL)
	if err != nil {
		return model.Resource{}, err
	}

	kind, txKind := model.ResourceKindFor(ev.Domain())
	switch kind {
	case model.ResourceKindPayment:
		p, err := g.fetchPayment(ctx, store, "fetch_payment", target)
		if err != nil {
			return model.Resource{}, err
		}
		return model.PaymentResourceOf(p), nil

	case model.ResourceKindTransaction:
		var dto transactionDTO
		if err := g.getJSON(ctx, store, "fetch_transaction", target, &dto); err != nil {
			return model.Resource{}, err
		}
		txn := dto.toModel(txKind)
		paymentID := txn.PaymentID
		if paymentID == "" {
			paymentID = ev.PaymentID
		}
		if paymentID == "" {
			return model.UnknownResource(), nil
		}
		p, err := g.fetchPayment(ctx, store, "fetch_payment", g.endpoint("payments", paymentID))
		if err != nil {
			return model.Resource{}, err
		}
		p.Attach(txn)
		return model.TransactionResourceOf(txn), nil

	default:
		return model.UnknownResource(), nil
	}
}

func (g *UnzerGateway) FetchPaymentByOrderID(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error) {
	p, err := g.fetchPayment(ctx, store, "fetch_payment_by_order", g.endpoint("payments", orderID))
	if err != nil {
		return nil, err
	}
	if p.OrderID == "" {
		p.OrderID = orderID
	}
	return p, nil
}

func (g *UnzerGateway) FetchPaymentType(ctx context.Context, store model.Store, typeID string) (*model.PaymentType, error) {
	var dto paymentTypeDTO
	if err := g.getJSON(ctx, store, "fetch_type", g.endpoint("types", typeID), &dto); err != nil {
		return nil, err
	}
	return dto.toModel(), nil
}

// Authorize posts the authorization. It is never retried since the provider may have
// accepted a request whose answer got lost.
func (g *UnzerGateway) Authorize(ctx context.Context, store model.Store, req *model.AuthorizationRequest) (*model.Transaction, error) {
	var metadataID string
	if len(req.Metadata) > 0 {
		var meta struct {
			ID string `json:"id"`
		}
		if err := g.postJSON(ctx, store, "create_metadata", g.endpoint("metadata"), req.Metadata, &meta); err != nil {
			return nil, err
		}
		metadataID = meta.ID
	}

	var dto transactionDTO
	if err := g.postJSON(ctx, store, "authorize", g.endpoint("payments", "authorize"), newAuthorizeBody(req, metadataID), &dto); err != nil {
		return nil, err
	}
	return dto.toModel(model.TransactionAuthorization), nil
}

// fetchPayment loads a payment and completes the details of its latest transaction and
// its first charge, which the short listing lacks.
func (g *UnzerGateway) fetchPayment(ctx context.Context, store model.Store, op, target string) (*model.PaymentResource, error) {
	var dto paymentDTO
	if err := g.getJSON(ctx, store, op, target, &dto); err != nil {
		return nil, err
	}
	p, urls := dto.toModel()

	idx := map[int]bool{}
	if n := len(p.Transactions); n > 0 {
		idx[n-1] = true
	}
	for i, t := range p.Transactions {
		if t.Kind == model.TransactionCharge {
			idx[i] = true
			break
		}
	}
	for i := range idx {
		if urls[i] == "" {
			continue
		}
		u, err := g.resolveRetrieveURL(urls[i])
		if err != nil {
			return nil, err
		}
		var full transactionDTO
		if err := g.getJSON(ctx, store, "fetch_transaction", u, &full); err != nil {
			return nil, err
		}
		t := full.toModel(p.Transactions[i].Kind)
		if t.ID == "" {
			t.ID = p.Transactions[i].ID
		}
		t.Payment = p
		if t.PaymentID == "" {
			t.PaymentID = p.ID
		}
		p.Transactions[i] = t
	}
	return p, nil
}

// resolveRetrieveURL accepts absolute urls on the provider host only, so the private
// key is never sent elsewhere. Relative paths are joined to the base url.
func (g *UnzerGateway) resolveRetrieveURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("%w: bad retrieve url", domain.ErrInvalidEvent)
	}
	if !u.IsAbs() {
		target := g.base.String() + "/" + strings.TrimLeft(u.EscapedPath(), "/")
		if u.RawQuery != "" {
			target += "?" + u.RawQuery
		}
		return target, nil
	}
	if !strings.EqualFold(u.Host, g.base.Host) || u.Scheme != g.base.Scheme {
		return "", fmt.Errorf("%w: retrieve url outside provider api", domain.ErrInvalidEvent)
	}
	return u.String(), nil
}

func (g *UnzerGateway) endpoint(parts ...string) string {
	esc := make([]string, len(parts))
	for i, p := range parts {
		esc[i] = url.PathEscape(p)
	}
	return g.base.String() + "/" + strings.Join(esc, "/")
}

func (g *UnzerGateway) getJSON(ctx context.Context, store model.Store, op, target string, out interface{}) error {
	start := time.Now()
	b, err := guarded(ctx, g.breaker, g.retry, true, g.log, op, func() ([]byte, error) {
		return g.roundTrip(ctx, store, http.MethodGet, target, nil)
	})
	metrics.ObserveProviderRequest(op, resultLabel(err), time.Since(start))
	if err != nil {
		return err
	}
	return decode(b, out)
}

func (g *UnzerGateway) postJSON(ctx context.Context, store model.Store, op, target string, in, out interface{}) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	start := time.Now()
	b, err := guarded(ctx, g.breaker, g.retry, false, g.log, op, func() ([]byte, error) {
		return g.roundTrip(ctx, store, http.MethodPost, target, payload)
	})
	metrics.ObserveProviderRequest(op, resultLabel(err), time.Since(start))
	if err != nil {
		return err
	}
	return decode(b, out)
}

func (g *UnzerGateway) roundTrip(ctx context.Context, store model.Store, method, target string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(store.PrivateKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &domain.ProviderAPIError{MerchantMessage: err.Error(), Transient: true}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.ProviderAPIError{MerchantMessage: "read response: " + err.Error(), StatusCode: resp.StatusCode, Transient: true}
	}
	if apiErr := apiError(resp.StatusCode, data); apiErr != nil {
		return nil, apiErr
	}
	return data, nil
}

// apiError extracts the provider error of a response. A 2xx transaction that carries
// isError is a result, not an API error.
func apiError(status int, data []byte) *domain.ProviderAPIError {
	transient := status >= 500 || status == http.StatusTooManyRequests
	var body apiErrorBody
	_ = json.Unmarshal(data, &body)

	if status < 300 && len(body.Errors) == 0 {
		return nil
	}
	if status < 300 {
		var peek transactionDTO
		if json.Unmarshal(data, &peek) == nil && peek.ID != "" && peek.Resources.PaymentID != "" {
			return nil
		}
	}

	e := &domain.ProviderAPIError{StatusCode: status, Transient: transient}
	if len(body.Errors) > 0 {
		e.Code = body.Errors[0].Code
		e.MerchantMessage = body.Errors[0].MerchantMessage
		e.ClientMessage = body.Errors[0].CustomerMessage
	}
	if e.MerchantMessage == "" {
		e.MerchantMessage = fmt.Sprintf("unexpected provider status %d", status)
	}
	return e
}

func decode(b []byte, out interface{}) error {
	if err := json.Unmarshal(b, out); err != nil {
		return &domain.ProviderAPIError{MerchantMessage: "unexpected provider response: " + err.Error()}
	}
	return nil
}
