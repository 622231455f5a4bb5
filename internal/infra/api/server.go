package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/infra/redis"
	"unzer-reconciler/internal/usecase"
)

// WebhookProcessor handles one provider notification.
type WebhookProcessor interface {
	Process(ctx context.Context, storeCode string, body []byte) (*usecase.ReconcileResult, error)
}

type Checkout interface {
	Config(storeCode string) (map[string]any, error)
	SelectMethod(ctx context.Context, storeCode, sessionID, method, threatMetrixID string) (*usecase.MethodSelection, error)
	AssignPaymentData(ctx context.Context, storeCode, incrementID, method string, data map[string]any) (int, error)
}

type Authorizer interface {
	Authorize(ctx context.Context, cmd usecase.AuthorizeCommand) (*usecase.AuthorizeResult, error)
}

type PaymentInfoReader interface {
	PaymentInfo(ctx context.Context, storeCode, incrementID string) (*usecase.PaymentInfo, error)
}

// Pinger reports dependency health for /health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RequestTimeout   time.Duration
	WebhookRateLimit int
}

type Server struct {
	webhooks   WebhookProcessor
	checkout   Checkout
	authorizer Authorizer
	info       PaymentInfoReader
	auth       *AuthManager
	limiter    Limiter
	health     map[string]Pinger
	opts       Options
	log        *zerolog.Logger
}

func NewServer(
	webhooks WebhookProcessor,
	checkout Checkout,
	authorizer Authorizer,
	info PaymentInfoReader,
	auth *AuthManager,
	limiter Limiter,
	health map[string]Pinger,
	opts Options,
	logger *zerolog.Logger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	return &Server{
		webhooks:   webhooks,
		checkout:   checkout,
		authorizer: authorizer,
		info:       info,
		auth:       auth,
		limiter:    limiter,
		health:     health,
		opts:       opts,
		log:        logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), Recover(s.log), RequestLog(s.log), Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.With(RateLimit(s.limiter, s.opts.WebhookRateLimit, redis.WebhookKey, s.log)).
		Post("/webhooks/process", s.handleWebhook)

	r.Route("/checkout", func(r chi.Router) {
		r.Use(s.auth.Require)
		r.Get("/config", s.handleCheckoutConfig)
		r.Post("/sessions/{sessionID}/method", s.handleSelectMethod)
		r.Post("/orders/{incrementID}/payment-data", s.handleAssignPaymentData)
		r.Post("/orders/{incrementID}/authorize", s.handleAuthorize)
		r.Get("/orders/{incrementID}/payment-info", s.handlePaymentInfo)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	code := http.StatusOK
	for name, p := range s.health {
		if err := p.Ping(ctx); err != nil {
			status[name] = "down"
			code = http.StatusServiceUnavailable
			continue
		}
		status[name] = "up"
	}
	writeJSON(w, code, map[string]any{"status": http.StatusText(code), "checks": status})
}

// storeFor returns the store bound to the checkout token. The store query parameter
// is not consulted: a token only ever acts for its own store.
func storeFor(r *http.Request) string {
	if c := claimsFrom(r.Context()); c != nil {
		return c.Store
	}
	return ""
}

