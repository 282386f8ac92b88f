//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

func TestPackageUseCase_Resolve(t *testing.T) {
	ctx := context.Background()
	hourly := &model.Package{ID: "pkg-1", Code: "P1", Name: "Hourly", Price: decimal.NewFromInt(20), DurationValue: 1, DurationUnit: model.DurationHours}
	daily := &model.Package{ID: "pkg-2", Code: "P2", Name: "Daily", Price: decimal.NewFromInt(50), DurationValue: 1, DurationUnit: model.DurationDays}
	uc := usecase.NewPackageUseCase(NewMockPackageRepo(hourly, daily), newTestLogger())

	t.Run("explicit code wins over price", func(t *testing.T) {
		p, err := uc.Resolve(ctx, "P2", decimal.NewFromInt(20))
		if err != nil || p.ID != "pkg-2" {
			t.Errorf("expected pkg-2, got %v err=%v", p, err)
		}
	})

	t.Run("price lookup when no code", func(t *testing.T) {
		p, err := uc.Resolve(ctx, "", decimal.RequireFromString("20.00"))
		if err != nil || p.ID != "pkg-1" {
			t.Errorf("expected pkg-1, got %v err=%v", p, err)
		}
	})

	t.Run("unknown code does not fall back to price", func(t *testing.T) {
		if _, err := uc.Resolve(ctx, "P9", decimal.NewFromInt(20)); !errors.Is(err, domain.ErrPackageNotFound) {
			t.Errorf("expected ErrPackageNotFound, got %v", err)
		}
	})

	t.Run("Create validates the package", func(t *testing.T) {
		bad := &model.Package{ID: "x", Code: "BAD", Name: "Bad", Price: decimal.Zero, DurationValue: 1, DurationUnit: model.DurationHours}
		if err := uc.Create(ctx, bad); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Create refuses a price STK push could not charge exactly", func(t *testing.T) {
		half := &model.Package{ID: "y", Code: "HALF", Name: "Half", Price: decimal.RequireFromString("49.50"), DurationValue: 1, DurationUnit: model.DurationHours}
		if err := uc.Create(ctx, half); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}
