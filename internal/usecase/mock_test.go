//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"unzer-reconciler/internal/domain"
	"unzer-reconciler/internal/domain/model"
	"unzer-reconciler/internal/domain/ports/adapter"
	"unzer-reconciler/internal/domain/ports/repository"
	"unzer-reconciler/internal/usecase"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	if o.Payment.AdditionalInfo != nil {
		cp.Payment.AdditionalInfo = make(map[string]string, len(o.Payment.AdditionalInfo))
		for k, v := range o.Payment.AdditionalInfo {
			cp.Payment.AdditionalInfo[k] = v
		}
	}
	cp.History = append([]model.StatusHistoryEntry(nil), o.History...)
	return &cp
}

func testStore() model.Store {
	return model.Store{
		Code:             "default",
		PublicKey:        "s-pub-X",
		PrivateKey:       "s-priv-X",
		TransmitCurrency: model.CurrencyBase,
		EnabledMethods:   []string{model.MethodCards, model.MethodPaylaterInvoice, model.MethodInvoice, model.MethodCardsVault},
		ReturnURL:        "https://shop.example/unzer/return",
	}
}

func testStores(stores ...model.Store) *usecase.StoreDirectory {
	if len(stores) == 0 {
		stores = []model.Store{testStore()}
	}
	return usecase.NewStoreDirectory(stores[0].Code, stores...)
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentProvider ----

type MockProvider struct {
	mu sync.Mutex

	FetchResourceFunc     func(ctx context.Context, store model.Store, ev *model.WebhookEvent) (model.Resource, error)
	FetchByOrderIDFunc    func(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error)
	FetchPaymentTypeFunc  func(ctx context.Context, store model.Store, typeID string) (*model.PaymentType, error)
	AuthorizeFunc         func(ctx context.Context, store model.Store, req *model.AuthorizationRequest) (*model.Transaction, error)
	AuthorizeRequests     []*model.AuthorizationRequest
	FetchResourceRequests int
}

var _ adapter.PaymentProvider = (*MockProvider)(nil)

func (m *MockProvider) Name() string { return "mock-unzer" }

func (m *MockProvider) FetchResourceFromEvent(ctx context.Context, store model.Store, ev *model.WebhookEvent) (model.Resource, error) {
	m.mu.Lock()
	m.FetchResourceRequests++
	m.mu.Unlock()
	if m.FetchResourceFunc != nil {
		return m.FetchResourceFunc(ctx, store, ev)
	}
	return model.UnknownResource(), nil
}

func (m *MockProvider) FetchPaymentByOrderID(ctx context.Context, store model.Store, orderID string) (*model.PaymentResource, error) {
	if m.FetchByOrderIDFunc != nil {
		return m.FetchByOrderIDFunc(ctx, store, orderID)
	}
	return nil, &domain.ProviderAPIError{Code: "API.310.100.003", MerchantMessage: "payment not found", StatusCode: 404}
}

func (m *MockProvider) FetchPaymentType(ctx context.Context, store model.Store, typeID string) (*model.PaymentType, error) {
	if m.FetchPaymentTypeFunc != nil {
		return m.FetchPaymentTypeFunc(ctx, store, typeID)
	}
	return &model.PaymentType{ID: typeID, Method: "card", Brand: "VISA", Number: "471110******0000", ExpiryDate: "12/2030"}, nil
}

func (m *MockProvider) Authorize(ctx context.Context, store model.Store, req *model.AuthorizationRequest) (*model.Transaction, error) {
	m.mu.Lock()
	m.AuthorizeRequests = append(m.AuthorizeRequests, req)
	m.mu.Unlock()
	if m.AuthorizeFunc != nil {
		return m.AuthorizeFunc(ctx, store, req)
	}
	return &model.Transaction{
		Kind:      model.TransactionAuthorization,
		ID:        "s-aut-1",
		UniqueID:  "31HA07BC8142C5A171745D00AD63D182",
		ShortID:   "4567.8901.2345",
		Status:    model.TransactionStatusSuccess,
		Amount:    req.Charge.Amount,
		Currency:  req.Charge.Currency,
		PaymentID: "s-pay-100",
		TypeID:    req.TypeID,
	}, nil
}

// ---- Mock EventPublisher ----

type publishedEvent struct {
	RoutingKey string
	Body       interface{}
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []publishedEvent
	Err    error
}

var _ adapter.EventPublisher = (*MockPublisher)(nil)

func (p *MockPublisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.Events = append(p.Events, publishedEvent{RoutingKey: routingKey, Body: body})
	return nil
}

func (p *MockPublisher) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Events)
}

// ---- In-memory Locker ----

type MockLocker struct {
	mu    sync.Mutex
	held  map[string]string
	ErrOn map[string]error
}

var _ adapter.Locker = (*MockLocker)(nil)

func NewMockLocker() *MockLocker {
	return &MockLocker{held: map[string]string{}, ErrOn: map[string]error{}}
}

func (l *MockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err, bad := l.ErrOn[key]; bad {
		return "", err
	}
	if tok, ok := l.held[key]; ok && tok != "" {
		return "", domain.ErrLockBusy
	}
	tok := uuid.NewString()
	l.held[key] = tok
	return tok, nil
}

func (l *MockLocker) Unlock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		return nil
	}
	return errors.New("unlock token mismatch")
}

func (l *MockLocker) Held(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

// =============================
// Repositories
// =============================

// ---- Mock OrderRepository ----

type MockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*model.Order

	UpdatePaymentCalls int
	TouchCalls         int
	AppendHistoryErr   error
}

var _ repository.OrderRepository = (*MockOrderRepo)(nil)

func NewMockOrderRepo(orders ...*model.Order) *MockOrderRepo {
	r := &MockOrderRepo{orders: map[string]*model.Order{}}
	for _, o := range orders {
		r.orders[o.IncrementID] = cloneOrder(o)
	}
	return r
}

// Get returns a copy of the stored order including its history.
func (r *MockOrderRepo) Get(id string) *model.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

func (r *MockOrderRepo) FindByIncrementID(ctx context.Context, tx repository.Tx, incrementID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[incrementID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := cloneOrder(o)
	cp.History = nil
	return cp, nil
}

func (r *MockOrderRepo) AppendHistory(ctx context.Context, tx repository.Tx, incrementID string, entries ...model.StatusHistoryEntry) error {
	if r.AppendHistoryErr != nil {
		return r.AppendHistoryErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[incrementID]
	if !ok {
		return domain.ErrNotFound
	}
	o.History = append(o.History, entries...)
	return nil
}

func (r *MockOrderRepo) ListHistory(ctx context.Context, tx repository.Tx, incrementID string) ([]model.StatusHistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[incrementID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]model.StatusHistoryEntry(nil), o.History...), nil
}

func (r *MockOrderRepo) UpdatePayment(ctx context.Context, tx repository.Tx, incrementID string, p model.OrderPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[incrementID]
	if !ok {
		return domain.ErrNotFound
	}
	tmp := &model.Order{Payment: p}
	o.Payment = cloneOrder(tmp).Payment
	o.UpdatedAt = time.Now()
	r.UpdatePaymentCalls++
	return nil
}

func (r *MockOrderRepo) Touch(ctx context.Context, tx repository.Tx, incrementID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[incrementID]
	if !ok {
		return domain.ErrNotFound
	}
	o.UpdatedAt = time.Now()
	r.TouchCalls++
	return nil
}

func (r *MockOrderRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Order
	for _, o := range r.orders {
		if o.Payment.TransactionPending && o.UpdatedAt.Before(olderThan) {
			out = append(out, cloneOrder(o))
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// ---- Mock VaultRepository ----

type MockVaultRepo struct {
	mu     sync.Mutex
	tokens map[string]*model.VaultToken
}

var _ repository.VaultRepository = (*MockVaultRepo)(nil)

func NewMockVaultRepo(tokens ...*model.VaultToken) *MockVaultRepo {
	r := &MockVaultRepo{tokens: map[string]*model.VaultToken{}}
	for _, t := range tokens {
		cp := *t
		r.tokens[t.PublicHash] = &cp
	}
	return r
}

func (r *MockVaultRepo) Save(ctx context.Context, tx repository.Tx, v *model.VaultToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.tokens[v.PublicHash] = &cp
	return nil
}

func (r *MockVaultRepo) FindByPublicHash(ctx context.Context, tx repository.Tx, customerID, publicHash string) (*model.VaultToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tokens[publicHash]
	if !ok || t.CustomerID != customerID {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *MockVaultRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// ---- Mock SessionRepository ----

type MockSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*model.CheckoutSession
	LastTTL  time.Duration
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{sessions: map[string]*model.CheckoutSession{}}
}

func (r *MockSessionRepo) Get(ctx context.Context, id string) (*model.CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *MockSessionRepo) Save(ctx context.Context, s *model.CheckoutSession, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.sessions[s.ID] = &cp
	r.LastTTL = ttl
	return nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager {
	return &MockTxManager{}
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless WithTxFunc is set.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
