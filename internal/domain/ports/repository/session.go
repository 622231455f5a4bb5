package repository

import (
	"context"
	"time"

	"unzer-reconciler/internal/domain/model"
)

// SessionRepository keeps checkout sessions. Get returns domain.ErrNotFound for
// unknown or expired sessions.
type SessionRepository interface {
	Get(ctx context.Context, id string) (*model.CheckoutSession, error)
	Save(ctx context.Context, s *model.CheckoutSession, ttl time.Duration) error
}
