package web

import (
	"context"
	"time"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// --- Mock Use Cases ---

type mockSessionUC struct {
	ListActiveFunc func(ctx context.Context, limit int) ([]*model.Session, error)
	DisconnectFunc func(ctx context.Context, id string) (*model.Session, error)
}

func (m *mockSessionUC) GrantFor(ctx context.Context, p *model.Payment) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionUC) ActiveByPhone(ctx context.Context, phone string) (*model.Session, error) {
	return nil, nil
}
func (m *mockSessionUC) ListByPhone(ctx context.Context, phone string, limit int) ([]*model.Session, error) {
	return nil, nil
}
func (m *mockSessionUC) ListActive(ctx context.Context, limit int) ([]*model.Session, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx, limit)
	}
	return []*model.Session{}, nil
}
func (m *mockSessionUC) Disconnect(ctx context.Context, id string) (*model.Session, error) {
	if m.DisconnectFunc != nil {
		return m.DisconnectFunc(ctx, id)
	}
	return nil, nil
}
func (m *mockSessionUC) ExpireDue(ctx context.Context) ([]*model.Session, error) { return nil, nil }

type mockVoucherUC struct {
	CreateFunc func(ctx context.Context, code, packageCode string, expiresAt *time.Time) (*model.Voucher, error)
}

func (m *mockVoucherUC) Redeem(ctx context.Context, code, phone, packageCode string) (*model.Session, error) {
	return nil, nil
}
func (m *mockVoucherUC) Create(ctx context.Context, code, packageCode string, expiresAt *time.Time) (*model.Voucher, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, code, packageCode, expiresAt)
	}
	return &model.Voucher{Code: code, ExpiresAt: expiresAt, CreatedAt: time.Now()}, nil
}

type mockSweeper struct {
	RunOnceFunc func(ctx context.Context) (int, error)
}

func (m *mockSweeper) RunOnce(ctx context.Context) (int, error) {
	if m.RunOnceFunc != nil {
		return m.RunOnceFunc(ctx)
	}
	return 0, nil
}

func activeSession(id, phone string) *model.Session {
	now := time.Now().UTC()
	return &model.Session{
		ID:              id,
		Phone:           phone,
		PackageID:       "pkg-1",
		CreatedAt:       now,
		ExpiresAt:       now.Add(time.Hour),
		DurationMinutes: 60,
		IsActive:        true,
		Status:          model.SessionStatusActive,
	}
}
