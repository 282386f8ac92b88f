//go:build !integration

package sched

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockSessionUC struct {
	usecase.SessionUseCase
	ExpireDueFunc func(ctx context.Context) ([]*model.Session, error)
}

func (m *mockSessionUC) ExpireDue(ctx context.Context) ([]*model.Session, error) {
	return m.ExpireDueFunc(ctx)
}

type mockReconcileUC struct {
	usecase.ReconciliationUseCase
	StalePendingFunc func(ctx context.Context, limit int) ([]*model.Payment, error)
	ReconcileFunc    func(ctx context.Context, p *model.Payment) (*usecase.VerifyResult, error)

	mu    sync.Mutex
	calls []string
}

func (m *mockReconcileUC) StalePending(ctx context.Context, limit int) ([]*model.Payment, error) {
	return m.StalePendingFunc(ctx, limit)
}

func (m *mockReconcileUC) Reconcile(ctx context.Context, p *model.Payment) (*usecase.VerifyResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, p.TransactionID)
	m.mu.Unlock()
	return m.ReconcileFunc(ctx, p)
}

type mockLocker struct {
	held     bool
	unlocked int
}

var _ red.Locker = (*mockLocker)(nil)

func (m *mockLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if m.held {
		return "", red.ErrLockHeld
	}
	return "tok", nil
}

func (m *mockLocker) Unlock(ctx context.Context, key, token string) error {
	m.unlocked++
	return nil
}

func pendingPayment(txID string) *model.Payment {
	return &model.Payment{ID: "id-" + txID, TransactionID: txID, Phone: "254712345678",
		Amount: decimal.NewFromInt(20), Status: model.PaymentStatusPending}
}
