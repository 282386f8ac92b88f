package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
)

type DurationUnit string

const (
	DurationMinutes DurationUnit = "minutes"
	DurationHours   DurationUnit = "hours"
	DurationDays    DurationUnit = "days"
)

// Package is a purchasable access tier. Price is in KES.
type Package struct {
	ID            string // UUID
	Code          string // public package_id, e.g. "P1"
	Name          string
	Price         decimal.Decimal
	DurationValue int
	DurationUnit  DurationUnit
	Speed         string
	Popular       bool
	CreatedAt     time.Time
}

func (p *Package) IsZero() bool { return p == nil || p.ID == "" }

// DurationMinutes converts the package duration to minutes.
func (p *Package) DurationMinutes() int {
	switch p.DurationUnit {
	case DurationHours:
		return p.DurationValue * 60
	case DurationDays:
		return p.DurationValue * 1440
	default:
		return p.DurationValue
	}
}

func (p *Package) Duration() time.Duration {
	return time.Duration(p.DurationMinutes()) * time.Minute
}

func ParseDurationUnit(s string) (DurationUnit, error) {
	switch u := DurationUnit(strings.ToLower(strings.TrimSpace(s))); u {
	case DurationMinutes, DurationHours, DurationDays:
		return u, nil
	default:
		return "", domain.ErrInvalidArgument
	}
}

// NewPackage validates and constructs a package. STK pushes charge whole
// shillings, so prices with a fractional part are rejected.
func NewPackage(id, code, name string, price decimal.Decimal, value int, unit DurationUnit, speed string, popular bool) (*Package, error) {
	if id == "" || code == "" || name == "" || value <= 0 || !price.IsPositive() || !price.IsInteger() {
		return nil, domain.ErrInvalidArgument
	}
	if _, err := ParseDurationUnit(string(unit)); err != nil {
		return nil, err
	}
	return &Package{
		ID:            id,
		Code:          code,
		Name:          name,
		Price:         price,
		DurationValue: value,
		DurationUnit:  unit,
		Speed:         speed,
		Popular:       popular,
		CreatedAt:     time.Now(),
	}, nil
}
