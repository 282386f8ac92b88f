package model

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/kileldylan/afrinet-project/internal/domain"
)

type SessionStatus string

const (
	SessionStatusActive       SessionStatus = "active"
	SessionStatusDisconnected SessionStatus = "disconnected"
	SessionStatusExpired      SessionStatus = "expired"
)

// Session is one granted internet access window.
type Session struct {
	ID              string // ULID
	AccountID       *string
	Phone           string
	PackageID       string
	PaymentID       *string // unique; nil for voucher grants
	VoucherCode     string
	CreatedAt       time.Time
	ExpiresAt       time.Time
	DurationMinutes int
	IsActive        bool
	Status          SessionStatus
	DisconnectedAt  *time.Time
}

// NewSession builds an active session. ExpiresAt is fixed here and never recomputed.
func NewSession(accountID *string, phone string, pkg *Package, paymentID *string, voucherCode string, now time.Time) (*Session, error) {
	if phone == "" || pkg.IsZero() || pkg.DurationMinutes() <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	now = now.UTC()
	return &Session{
		ID:              ulid.Make().String(),
		AccountID:       accountID,
		Phone:           phone,
		PackageID:       pkg.ID,
		PaymentID:       paymentID,
		VoucherCode:     voucherCode,
		CreatedAt:       now,
		ExpiresAt:       now.Add(pkg.Duration()),
		DurationMinutes: pkg.DurationMinutes(),
		IsActive:        true,
		Status:          SessionStatusActive,
	}, nil
}

func (s *Session) IsZero() bool { return s == nil || s.ID == "" }

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TimeRemaining is zero for inactive or expired sessions.
func (s *Session) TimeRemaining(now time.Time) time.Duration {
	if !s.IsActive || s.IsExpired(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}
