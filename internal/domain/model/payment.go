package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // push accepted by gateway; awaiting result
	PaymentStatusCompleted PaymentStatus = "completed" // provider confirmed success
	PaymentStatusFailed    PaymentStatus = "failed"    // provider reported a non-zero result code
)

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted || s == PaymentStatusFailed
}

// Payment records one STK push attempt and its outcome.
type Payment struct {
	ID            string // UUID
	AccountID     string // UUID
	Phone         string
	Amount        decimal.Decimal
	PackageID     *string
	Reference     string // locally generated correlation key
	TransactionID string // gateway CheckoutRequestID
	Receipt       *string
	Status        PaymentStatus
	IsFinished    bool
	IsSuccessful  bool
	FailureReason string
	HoldReason    string // set while an operator must resolve the payment; skipped by reconciliation
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

func (p *Payment) IsZero() bool { return p == nil || p.ID == "" }

func (p *Payment) IsHeld() bool { return p.HoldReason != "" }

// PendingFor reports how long the payment has been waiting for a result.
func (p *Payment) PendingFor(now time.Time) time.Duration {
	if p.IsFinished {
		return 0
	}
	return now.Sub(p.CreatedAt)
}
