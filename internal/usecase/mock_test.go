//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// -----------------------------
// Utilities: tiny helpers
// -----------------------------

func strPtr(s string) *string { return &s }

func cloneSession(s *model.Session) *model.Session {
	c := *s
	return &c
}

func clonePayment(p *model.Payment) *model.Payment {
	c := *p
	return &c
}

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway (adapter) ----

type MockPaymentGateway struct {
	mu sync.Mutex

	NameVal         string
	PushFunc        func(ctx context.Context, req adapter.PushRequest) (adapter.PushResult, error)
	QueryStatusFunc func(ctx context.Context, checkoutID string) (adapter.StatusResult, error)

	Pushes  []adapter.PushRequest
	Queries []string
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.NameVal == "" {
		return "mockpay"
	}
	return m.NameVal
}

func (m *MockPaymentGateway) Push(ctx context.Context, req adapter.PushRequest) (adapter.PushResult, error) {
	m.mu.Lock()
	m.Pushes = append(m.Pushes, req)
	m.mu.Unlock()
	if m.PushFunc != nil {
		return m.PushFunc(ctx, req)
	}
	return adapter.PushResult{CheckoutRequestID: "ws_CO_" + uuid.NewString(), CustomerMessage: "Success. Request accepted for processing"}, nil
}

func (m *MockPaymentGateway) QueryStatus(ctx context.Context, checkoutID string) (adapter.StatusResult, error) {
	m.mu.Lock()
	m.Queries = append(m.Queries, checkoutID)
	m.mu.Unlock()
	if m.QueryStatusFunc != nil {
		return m.QueryStatusFunc(ctx, checkoutID)
	}
	return adapter.StatusResult{Pending: true}, nil
}

func (m *MockPaymentGateway) QueryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// ---- Mock OperatorAlerter ----

type MockAlerter struct {
	mu   sync.Mutex
	Sent []string
}

var _ adapter.OperatorAlerter = (*MockAlerter)(nil)

func (m *MockAlerter) Alert(ctx context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, text)
	return nil
}

// ---- Mock RateLimiter ----

type MockRateLimiter struct {
	mu     sync.Mutex
	counts map[string]int
	Err    error
}

func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{counts: map[string]int{}}
}

func (m *MockRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key] <= limit, nil
}

// =============================
// Repositories
// =============================

// ---- Mock PackageRepository ----

type MockPackageRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Package

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
}

var _ repository.PackageRepository = (*MockPackageRepo)(nil)

func NewMockPackageRepo(pkgs ...*model.Package) *MockPackageRepo {
	m := &MockPackageRepo{byID: map[string]*model.Package{}}
	for _, p := range pkgs {
		m.byID[p.ID] = p
	}
	return m
}

func (m *MockPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.byID {
		if existing.Code == p.Code && id != p.ID {
			delete(m.byID, id)
		}
	}
	m.byID[p.ID] = p
	return nil
}

func (m *MockPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, tx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byID[id]; ok {
		return p, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockPackageRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPackageRepo) FindByPrice(ctx context.Context, tx repository.Tx, amount decimal.Decimal) (*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byID {
		if p.Price.Equal(amount) {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPackageRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Package, 0, len(m.byID))
	for _, p := range m.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price.LessThan(out[j].Price) })
	return out, nil
}

// ---- Mock AccountRepository ----

type MockAccountRepo struct {
	mu      sync.Mutex
	byPhone map[string]*model.Account

	UpsertFunc func(ctx context.Context, tx repository.Tx, phone string, packageID *string) (*model.Account, error)
}

var _ repository.AccountRepository = (*MockAccountRepo)(nil)

func NewMockAccountRepo() *MockAccountRepo {
	return &MockAccountRepo{byPhone: map[string]*model.Account{}}
}

func (m *MockAccountRepo) Upsert(ctx context.Context, tx repository.Tx, phone string, packageID *string) (*model.Account, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, tx, phone, packageID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byPhone[phone]
	if !ok {
		a = &model.Account{ID: uuid.NewString(), Phone: phone, CreatedAt: time.Now()}
		m.byPhone[phone] = a
	}
	if packageID != nil {
		a.PackageID = packageID
	}
	c := *a
	return &c, nil
}

func (m *MockAccountRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.byPhone[phone]; ok {
		c := *a
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockAccountRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byPhone)
}

// ---- Mock PaymentRepository ----
// Enforces the same guards as the Postgres schema: unique transaction id,
// unique receipt, and a finish that only applies to unfinished rows.

type MockPaymentRepo struct {
	mu   sync.Mutex
	byTx map[string]*model.Payment

	SaveFunc            func(ctx context.Context, tx repository.Tx, p *model.Payment) error
	FinishIfPendingFunc func(ctx context.Context, tx repository.Tx, transactionID string, out repository.PaymentOutcome) (*model.Payment, bool, error)
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{byTx: map[string]*model.Payment{}}
}

func (m *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byTx[p.TransactionID]; dup {
		return domain.ErrDuplicateTransaction
	}
	m.byTx[p.TransactionID] = clonePayment(p)
	return nil
}

func (m *MockPaymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.byTx {
		if p.ID == id {
			return clonePayment(p), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.byTx[transactionID]; ok {
		return clonePayment(p), nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockPaymentRepo) FindByTransactionAndPhone(ctx context.Context, tx repository.Tx, transactionID, phone string) (*model.Payment, error) {
	p, err := m.FindByTransactionID(ctx, tx, transactionID)
	if err != nil {
		return nil, err
	}
	if p.Phone != phone {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *MockPaymentRepo) FinishIfPending(ctx context.Context, tx repository.Tx, transactionID string, out repository.PaymentOutcome) (*model.Payment, bool, error) {
	if m.FinishIfPendingFunc != nil {
		return m.FinishIfPendingFunc(ctx, tx, transactionID, out)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok || p.IsFinished {
		return nil, false, nil
	}
	if out.Receipt != nil {
		for _, other := range m.byTx {
			if other != p && other.Receipt != nil && *other.Receipt == *out.Receipt {
				return nil, false, domain.ErrDuplicateReceipt
			}
		}
	}
	at := out.At
	p.Status = out.Status
	p.IsFinished = true
	p.IsSuccessful = out.Status == model.PaymentStatusCompleted
	p.CompletedAt = &at
	p.Receipt = out.Receipt
	p.FailureReason = out.FailureReason
	if out.Phone != nil {
		p.Phone = *out.Phone
	}
	return clonePayment(p), true, nil
}

func (m *MockPaymentRepo) Hold(ctx context.Context, tx repository.Tx, transactionID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byTx[transactionID]
	if !ok || p.IsFinished || p.HoldReason != "" {
		return false, nil
	}
	p.HoldReason = reason
	return true, nil
}

func (m *MockPaymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Payment
	for _, p := range m.byTx {
		if !p.IsFinished && p.HoldReason == "" && p.CreatedAt.Before(olderThan) {
			out = append(out, clonePayment(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Put stores p directly, bypassing the guards.
func (m *MockPaymentRepo) Put(p *model.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byTx[p.TransactionID] = clonePayment(p)
}

func (m *MockPaymentRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTx)
}

// ---- Mock SessionRepository ----
// Enforces one session per payment like the unique index on payment_id.

type MockSessionRepo struct {
	mu   sync.Mutex
	byID map[string]*model.Session

	CreateFunc func(ctx context.Context, tx repository.Tx, s *model.Session) error
	// BeforeCreate lets tests widen the check-then-create window.
	BeforeCreate func()
}

var _ repository.SessionRepository = (*MockSessionRepo)(nil)

func NewMockSessionRepo() *MockSessionRepo {
	return &MockSessionRepo{byID: map[string]*model.Session{}}
}

func (m *MockSessionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, tx, s)
	}
	if m.BeforeCreate != nil {
		m.BeforeCreate()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byID[s.ID]; dup {
		return domain.ErrAlreadyExists
	}
	if s.PaymentID != nil {
		for _, other := range m.byID {
			if other.PaymentID != nil && *other.PaymentID == *s.PaymentID {
				return domain.ErrAlreadyExists
			}
		}
	}
	m.byID[s.ID] = cloneSession(s)
	return nil
}

func (m *MockSessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.byID[id]; ok {
		return cloneSession(s), nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockSessionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.byID {
		if s.PaymentID != nil && *s.PaymentID == paymentID {
			return cloneSession(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSessionRepo) sorted(filter func(*model.Session) bool) []*model.Session {
	var out []*model.Session
	for _, s := range m.byID {
		if filter(s) {
			out = append(out, cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *MockSessionRepo) FindActiveByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(s *model.Session) bool { return s.Phone == phone && s.IsActive })
	if len(out) == 0 {
		return nil, domain.ErrNotFound
	}
	return out[0], nil
}

func (m *MockSessionRepo) ListByPhone(ctx context.Context, tx repository.Tx, phone string, limit int) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(s *model.Session) bool { return s.Phone == phone })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSessionRepo) ListActive(ctx context.Context, tx repository.Tx, limit int) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(s *model.Session) bool { return s.IsActive })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockSessionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Session
	for _, s := range m.byID {
		if s.IsActive && !now.Before(s.ExpiresAt) {
			s.IsActive = false
			s.Status = model.SessionStatusExpired
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (m *MockSessionRepo) Expire(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.Status = model.SessionStatusExpired
	return true, nil
}

func (m *MockSessionRepo) Disconnect(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.byID[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.Status = model.SessionStatusDisconnected
	s.DisconnectedAt = &at
	return true, nil
}

// Put stores s directly.
func (m *MockSessionRepo) Put(s *model.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[s.ID] = cloneSession(s)
}

func (m *MockSessionRepo) CountForPayment(paymentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.byID {
		if s.PaymentID != nil && *s.PaymentID == paymentID {
			n++
		}
	}
	return n
}

// ---- Mock VoucherRepository ----

type MockVoucherRepo struct {
	mu     sync.Mutex
	byCode map[string]*model.Voucher
}

var _ repository.VoucherRepository = (*MockVoucherRepo)(nil)

func NewMockVoucherRepo() *MockVoucherRepo {
	return &MockVoucherRepo{byCode: map[string]*model.Voucher{}}
}

func (m *MockVoucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byCode[v.Code]; dup {
		return domain.ErrAlreadyExists
	}
	c := *v
	m.byCode[v.Code] = &c
	return nil
}

func (m *MockVoucherRepo) SaveIfAbsent(ctx context.Context, tx repository.Tx, v *model.Voucher) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.byCode[v.Code]; dup {
		return false, nil
	}
	c := *v
	m.byCode[v.Code] = &c
	return true, nil
}

func (m *MockVoucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.byCode[code]; ok {
		c := *v
		return &c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockVoucherRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.byCode[code]
	if !ok || v.IsUsed {
		return false, nil
	}
	v.IsUsed = true
	v.UsedAt = &at
	return true, nil
}

// ---- Mock TransactionManager ----

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	// By default, execute the function immediately with NoTX.
	return fn(ctx, repository.NoTX)
}

var errBoom = errors.New("boom")

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}
