package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentLedger = (*paymentLedger)(nil)

// Transition is the result of a terminal ledger call. Applied is false when the
// payment had already been finished by an earlier call, in which case Payment
// is the stored record unchanged.
type Transition struct {
	Payment *model.Payment
	Applied bool
}

// PaymentLedger owns every write to payment rows.
type PaymentLedger interface {
	CreatePending(ctx context.Context, accountID, phone string, amount decimal.Decimal, packageID *string, transactionID string) (*model.Payment, error)
	CompleteSuccess(ctx context.Context, transactionID, receipt string, actualPhone *string) (Transition, error)
	CompleteFailure(ctx context.Context, transactionID, reason string) (Transition, error)
	FindByTransaction(ctx context.Context, transactionID string) (*model.Payment, error)
	FindByTransactionAndPhone(ctx context.Context, transactionID, phone string) (*model.Payment, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Payment, error)
	// Hold parks a pending payment for an operator; reconciliation leaves it alone.
	Hold(ctx context.Context, transactionID, reason string) (bool, error)
}

type paymentLedger struct {
	payments repository.PaymentRepository
	log      *zerolog.Logger
}

func NewPaymentLedger(payments repository.PaymentRepository, logger *zerolog.Logger) *paymentLedger {
	l := logger.With().Str("component", "ledger").Logger()
	return &paymentLedger{payments: payments, log: &l}
}

func (l *paymentLedger) CreatePending(ctx context.Context, accountID, phone string, amount decimal.Decimal, packageID *string, transactionID string) (*model.Payment, error) {
	if accountID == "" || phone == "" || transactionID == "" || !amount.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	p := &model.Payment{
		ID:            uuid.NewString(),
		AccountID:     accountID,
		Phone:         phone,
		Amount:        amount,
		PackageID:     packageID,
		Reference:     uuid.NewString(),
		TransactionID: transactionID,
		Status:        model.PaymentStatusPending,
		CreatedAt:     time.Now().UTC(),
	}
	if err := l.payments.Save(ctx, repository.NoTX, p); err != nil {
		return nil, err
	}
	l.log.Info().Str("transaction_id", transactionID).Str("payment_id", p.ID).Msg("pending payment recorded")
	return p, nil
}

func (l *paymentLedger) CompleteSuccess(ctx context.Context, transactionID, receipt string, actualPhone *string) (Transition, error) {
	if transactionID == "" {
		return Transition{}, domain.ErrInvalidInput
	}
	out := repository.PaymentOutcome{
		Status: model.PaymentStatusCompleted,
		At:     time.Now().UTC(),
	}
	// status queries confirm success without a receipt
	if receipt = strings.TrimSpace(receipt); receipt != "" {
		out.Receipt = &receipt
	}
	if actualPhone != nil && *actualPhone != "" {
		out.Phone = actualPhone
	}
	return l.finish(ctx, transactionID, out)
}

func (l *paymentLedger) CompleteFailure(ctx context.Context, transactionID, reason string) (Transition, error) {
	if transactionID == "" {
		return Transition{}, domain.ErrInvalidInput
	}
	return l.finish(ctx, transactionID, repository.PaymentOutcome{
		Status:        model.PaymentStatusFailed,
		FailureReason: reason,
		At:            time.Now().UTC(),
	})
}

// finish runs the guarded update; a miss means the row is either finished or absent.
func (l *paymentLedger) finish(ctx context.Context, transactionID string, out repository.PaymentOutcome) (Transition, error) {
	p, applied, err := l.payments.FinishIfPending(ctx, repository.NoTX, transactionID, out)
	if err != nil {
		return Transition{}, fmt.Errorf("finish payment %s: %w", transactionID, err)
	}
	if applied {
		l.log.Info().
			Str("transaction_id", transactionID).
			Str("status", string(p.Status)).
			Msg("payment transitioned")
		return Transition{Payment: p, Applied: true}, nil
	}

	existing, err := l.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return Transition{}, err
	}
	l.log.Debug().
		Str("transaction_id", transactionID).
		Str("status", string(existing.Status)).
		Msg("payment already finished; transition skipped")
	return Transition{Payment: existing, Applied: false}, nil
}

func (l *paymentLedger) FindByTransaction(ctx context.Context, transactionID string) (*model.Payment, error) {
	return l.payments.FindByTransactionID(ctx, repository.NoTX, transactionID)
}

func (l *paymentLedger) FindByTransactionAndPhone(ctx context.Context, transactionID, phone string) (*model.Payment, error) {
	return l.payments.FindByTransactionAndPhone(ctx, repository.NoTX, transactionID, phone)
}

func (l *paymentLedger) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	return l.payments.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
}

func (l *paymentLedger) Hold(ctx context.Context, transactionID, reason string) (bool, error) {
	if transactionID == "" || reason == "" {
		return false, domain.ErrInvalidInput
	}
	held, err := l.payments.Hold(ctx, repository.NoTX, transactionID, reason)
	if err != nil {
		return false, fmt.Errorf("hold payment %s: %w", transactionID, err)
	}
	if held {
		l.log.Warn().Str("transaction_id", transactionID).Str("reason", reason).Msg("payment held for operator")
	}
	return held, nil
}
