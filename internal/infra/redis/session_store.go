package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/repository"
	"unzer-reconciler/internal/infra/metrics"
)

var _ repository.SessionRepository = (*SessionStore)(nil)

// SessionStore keeps checkout sessions as JSON under "checkout_session:<id>".
type SessionStore struct {
	client RedisClient
}

func NewSessionStore(client RedisClient) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(id string) string { return "checkout_session:" + id }

func (s *SessionStore) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	data, err := s.client.Get(ctx, sessionKey(id))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			metrics.IncSessionLookup("miss")
			return nil, domain.ErrNotFound
		}
		metrics.IncSessionLookup("error")
		return nil, err
	}

	var sess model.CheckoutSession
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		metrics.IncSessionLookup("error")
		return nil, err
	}
	metrics.IncSessionLookup("hit")
	return &sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *model.CheckoutSession, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey(sess.ID), data, ttl)
}
