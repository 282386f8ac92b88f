package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// PackageRepository is the port for package catalog persistence.
type PackageRepository interface {
	// Save inserts or updates a package keyed by its code.
	Save(ctx context.Context, tx Tx, p *model.Package) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Package, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Package, error)
	// FindByPrice returns the package whose price equals amount, preferring popular ones.
	FindByPrice(ctx context.Context, tx Tx, amount decimal.Decimal) (*model.Package, error)
	ListAll(ctx context.Context, tx Tx) ([]*model.Package, error)
}
