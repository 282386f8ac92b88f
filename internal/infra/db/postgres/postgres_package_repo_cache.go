package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
)

var _ repository.PackageRepository = (*packageRepoCacheDecorator)(nil)

const packagesAllKey = "packages:all"

// packageRepoCacheDecorator is a read-through cache for the package catalog.
// Any cache error falls back to the inner repository.
type packageRepoCacheDecorator struct {
	inner repository.PackageRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewPackageRepoCacheDecorator(inner repository.PackageRepository, cache red.RedisClient, ttl time.Duration) repository.PackageRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &packageRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
	}
}

func packageIDKey(id string) string     { return fmt.Sprintf("package:%s", id) }
func packageCodeKey(code string) string { return fmt.Sprintf("package:code:%s", code) }

func (d *packageRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	if err := d.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	if err := d.cache.Del(ctx, packageIDKey(p.ID), packageCodeKey(p.Code), packagesAllKey); err == nil {
		metrics.IncCatalogCacheEviction()
	}
	return nil
}

func (d *packageRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	return d.readOne(ctx, packageIDKey(id), func() (*model.Package, error) {
		return d.inner.FindByID(ctx, tx, id)
	})
}

func (d *packageRepoCacheDecorator) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Package, error) {
	return d.readOne(ctx, packageCodeKey(code), func() (*model.Package, error) {
		return d.inner.FindByCode(ctx, tx, code)
	})
}

// FindByPrice is not cached; a price edit could not invalidate the old key.
func (d *packageRepoCacheDecorator) FindByPrice(ctx context.Context, tx repository.Tx, amount decimal.Decimal) (*model.Package, error) {
	return d.inner.FindByPrice(ctx, tx, amount)
}

func (d *packageRepoCacheDecorator) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	val, err := d.cache.Get(ctx, packagesAllKey)
	if err == nil {
		var pkgs []*model.Package
		if json.Unmarshal([]byte(val), &pkgs) == nil {
			metrics.IncCatalogCacheLookup("list", "hit")
			return pkgs, nil
		}
	}
	metrics.IncCatalogCacheLookup("list", lookupResult(err))
	pkgs, err := d.inner.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(pkgs) > 0 {
		if b, err := json.Marshal(pkgs); err == nil {
			_ = d.cache.Set(ctx, packagesAllKey, b, d.ttl)
		}
	}
	return pkgs, nil
}

func (d *packageRepoCacheDecorator) readOne(ctx context.Context, key string, load func() (*model.Package, error)) (*model.Package, error) {
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var p model.Package
		if json.Unmarshal([]byte(val), &p) == nil {
			metrics.IncCatalogCacheLookup("item", "hit")
			return &p, nil
		}
	}
	metrics.IncCatalogCacheLookup("item", lookupResult(err))
	p, err := load()
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(p); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return p, nil
}

// lookupResult classifies a cache read that did not produce a usable value.
// An undecodable entry counts as a miss.
func lookupResult(err error) string {
	if err != nil && !red.IsMiss(err) {
		return "error"
	}
	return "miss"
}
