package repository

import (
	"context"
	"time"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// PaymentOutcome is the terminal result applied to a pending payment.
type PaymentOutcome struct {
	Status        model.PaymentStatus // completed | failed
	Receipt       *string
	Phone         *string // authoritative phone from the provider, if any
	FailureReason string
	At            time.Time
}

// -----------------------------
// Payments
// -----------------------------

type PaymentRepository interface {
	// Save inserts a new payment. A duplicate transaction id yields domain.ErrDuplicateTransaction.
	Save(ctx context.Context, tx Tx, p *model.Payment) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Payment, error)
	FindByTransactionID(ctx context.Context, tx Tx, transactionID string) (*model.Payment, error)
	FindByTransactionAndPhone(ctx context.Context, tx Tx, transactionID, phone string) (*model.Payment, error)

	// FinishIfPending applies out only when the payment is not finished yet.
	// It returns the updated row and true when this call performed the
	// transition, or nil and false when the row was already finished or absent.
	// A receipt already used by another payment yields domain.ErrDuplicateReceipt.
	FinishIfPending(ctx context.Context, tx Tx, transactionID string, out PaymentOutcome) (*model.Payment, bool, error)

	// Hold records reason on a pending payment that is not held yet; the bool
	// reports whether this call placed the hold.
	Hold(ctx context.Context, tx Tx, transactionID, reason string) (bool, error)

	// ListPendingOlderThan skips held payments.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}
