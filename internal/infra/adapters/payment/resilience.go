// File: internal/infra/adapters/payment/resilience.go
package payment

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/infra/metrics"
)

// newBreaker trips after 60% failures over at least 5 requests. Only transient
// provider errors count as failures; API errors are answers.
func newBreaker(name string, openFor time.Duration) *gobreaker.CircuitBreaker[[]byte] {
	var st gobreaker.Settings
	st.Name = name
	st.Timeout = openFor
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && failureRatio >= 0.6
	}
	st.IsSuccessful = func(err error) bool {
		if err == nil {
			return true
		}
		var apiErr *domain.ProviderAPIError
		return errors.As(err, &apiErr) && !apiErr.Transient
	}
	st.OnStateChange = func(name string, from, to gobreaker.State) {
		metrics.SetProviderBreakerState(name, int(to))
	}
	return gobreaker.NewCircuitBreaker[[]byte](st)
}

type retryPolicy struct {
	maxRetries      int
	initialInterval time.Duration
	maxElapsed      time.Duration
}

func (p retryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.MaxElapsedTime = p.maxElapsed
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.maxRetries)), ctx)
}

// guarded runs call through the breaker. With retry set, transient failures are retried
// per policy; everything else is returned on first sight.
func guarded(ctx context.Context, cb *gobreaker.CircuitBreaker[[]byte], policy retryPolicy, retry bool, log *zerolog.Logger, op string, call func() ([]byte, error)) ([]byte, error) {
	attempt := func() ([]byte, error) {
		b, err := cb.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &domain.ProviderAPIError{
				MerchantMessage: "payment provider unavailable: " + err.Error(),
				Transient:       true,
			}
		}
		return b, err
	}
	if !retry || policy.maxRetries <= 0 {
		return attempt()
	}

	var out []byte
	err := backoff.RetryNotify(func() error {
		b, err := attempt()
		if err == nil {
			out = b
			return nil
		}
		if isRetryable(err) && cb.State() != gobreaker.StateOpen {
			return err
		}
		return backoff.Permanent(err)
	}, policy.backOff(ctx), func(err error, wait time.Duration) {
		log.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying provider call")
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !isProviderError(err) {
			return nil, &domain.ProviderAPIError{MerchantMessage: ctxErr.Error(), Transient: true}
		}
		return nil, err
	}
	return out, nil
}

func isRetryable(err error) bool {
	var apiErr *domain.ProviderAPIError
	return errors.As(err, &apiErr) && apiErr.Transient
}

func isProviderError(err error) bool {
	var apiErr *domain.ProviderAPIError
	return errors.As(err, &apiErr)
}

func resultLabel(err error) string {
	var apiErr *domain.ProviderAPIError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &apiErr) && apiErr.Transient:
		return "transient"
	case errors.As(err, &apiErr):
		return "api_error"
	default:
		return "error"
	}
}
