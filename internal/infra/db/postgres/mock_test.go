//go:build !integration

package postgres

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPackageRepo mocks the database repository that the Package decorator wraps.
type mockInnerPackageRepo struct {
	SaveFunc        func(ctx context.Context, tx repository.Tx, p *model.Package) error
	FindByIDFunc    func(ctx context.Context, tx repository.Tx, id string) (*model.Package, error)
	FindByCodeFunc  func(ctx context.Context, tx repository.Tx, code string) (*model.Package, error)
	FindByPriceFunc func(ctx context.Context, tx repository.Tx, amount decimal.Decimal) (*model.Package, error)
	ListAllFunc     func(ctx context.Context, tx repository.Tx) ([]*model.Package, error)
}

func (m *mockInnerPackageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	return m.SaveFunc(ctx, tx, p)
}
func (m *mockInnerPackageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	return m.FindByIDFunc(ctx, tx, id)
}
func (m *mockInnerPackageRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Package, error) {
	return m.FindByCodeFunc(ctx, tx, code)
}
func (m *mockInnerPackageRepo) FindByPrice(ctx context.Context, tx repository.Tx, amount decimal.Decimal) (*model.Package, error) {
	return m.FindByPriceFunc(ctx, tx, amount)
}
func (m *mockInnerPackageRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	return m.ListAllFunc(ctx, tx)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc    func(ctx context.Context, keys ...string) error
	PingFunc   func(ctx context.Context) error
	IncrFunc   func(ctx context.Context, key string) (int64, error)
	ExpireFunc func(ctx context.Context, key string, expiration time.Duration) error
	CloseFunc  func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	if m.DelFunc == nil {
		return nil
	}
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
