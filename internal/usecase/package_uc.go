package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// Compile-time check
var _ PackageUseCase = (*packageUC)(nil)

type PackageUseCase interface {
	// Resolve finds the package by public code. Only when no code is given does
	// it fall back to the package priced at amount.
	Resolve(ctx context.Context, code string, amount decimal.Decimal) (*model.Package, error)
	Get(ctx context.Context, id string) (*model.Package, error)
	List(ctx context.Context) ([]*model.Package, error)
	Create(ctx context.Context, p *model.Package) error
}

type packageUC struct {
	repo repository.PackageRepository
	log  *zerolog.Logger
}

func NewPackageUseCase(repo repository.PackageRepository, logger *zerolog.Logger) *packageUC {
	return &packageUC{repo: repo, log: logger}
}

func (u *packageUC) Resolve(ctx context.Context, code string, amount decimal.Decimal) (*model.Package, error) {
	code = strings.TrimSpace(code)
	var (
		p   *model.Package
		err error
	)
	if code != "" {
		p, err = u.repo.FindByCode(ctx, repository.NoTX, code)
	} else {
		if !amount.IsPositive() {
			return nil, domain.ErrPackageNotFound
		}
		p, err = u.repo.FindByPrice(ctx, repository.NoTX, amount)
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (u *packageUC) Get(ctx context.Context, id string) (*model.Package, error) {
	p, err := u.repo.FindByID(ctx, repository.NoTX, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrPackageNotFound
	}
	return p, err
}

func (u *packageUC) List(ctx context.Context) ([]*model.Package, error) {
	return u.repo.ListAll(ctx, repository.NoTX)
}

func (u *packageUC) Create(ctx context.Context, p *model.Package) error {
	if p == nil {
		return domain.ErrInvalidArgument
	}
	if _, err := model.NewPackage(p.ID, p.Code, p.Name, p.Price, p.DurationValue, p.DurationUnit, p.Speed, p.Popular); err != nil {
		return err
	}
	return u.repo.Save(ctx, repository.NoTX, p)
}
