package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, phone, amount, package_id, reference, transaction_id, mpesa_receipt,
  status, is_finished, is_successful, failure_reason, hold_reason, created_at, completed_at`

func scanPayment(row interface{ Scan(dest ...interface{}) error }) (*model.Payment, error) {
	p := &model.Payment{}
	var status string
	if err := row.Scan(&p.ID, &p.AccountID, &p.Phone, &p.Amount, &p.PackageID, &p.Reference, &p.TransactionID, &p.Receipt,
		&status, &p.IsFinished, &p.IsSuccessful, &p.FailureReason, &p.HoldReason, &p.CreatedAt, &p.CompletedAt); err != nil {
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	return p, nil
}

func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15);`
	_, err := execSQL(ctx, r.pool, tx, q, p.ID, p.AccountID, p.Phone, p.Amount, p.PackageID, p.Reference, p.TransactionID, p.Receipt,
		string(p.Status), p.IsFinished, p.IsSuccessful, p.FailureReason, p.HoldReason, p.CreatedAt, p.CompletedAt)
	if err != nil {
		if c, ok := uniqueViolation(err); ok && c == "payments_transaction_id_key" {
			return domain.ErrDuplicateTransaction
		}
		return mapErr(err)
	}
	return nil
}

func (r *paymentRepo) findOne(ctx context.Context, tx repository.Tx, where string, args ...interface{}) (*model.Payment, error) {
	q := forUpdate(`SELECT `+paymentColumns+` FROM payments WHERE `+where, tx)
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, scanErr(err)
	}
	return p, nil
}

func (r *paymentRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *paymentRepo) FindByTransactionID(ctx context.Context, tx repository.Tx, transactionID string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `transaction_id=$1`, transactionID)
}

func (r *paymentRepo) FindByTransactionAndPhone(ctx context.Context, tx repository.Tx, transactionID, phone string) (*model.Payment, error) {
	return r.findOne(ctx, tx, `transaction_id=$1 AND phone=$2`, transactionID, phone)
}

// FinishIfPending is the single terminal write. The is_finished predicate makes
// concurrent callers race on the row lock; only the first sees a returned row.
func (r *paymentRepo) FinishIfPending(ctx context.Context, tx repository.Tx, transactionID string, out repository.PaymentOutcome) (*model.Payment, bool, error) {
	const q = `
UPDATE payments
   SET status = $2,
       is_finished = TRUE,
       is_successful = ($2 = 'completed'),
       mpesa_receipt = $3,
       phone = COALESCE($4, phone),
       failure_reason = $5,
       completed_at = $6
 WHERE transaction_id = $1
   AND is_finished = FALSE
RETURNING ` + paymentColumns + `;`

	row, err := pickRow(ctx, r.pool, tx, q, transactionID, string(out.Status), out.Receipt, out.Phone, out.FailureReason, out.At)
	if err != nil {
		return nil, false, err
	}
	p, err := scanPayment(row)
	switch {
	case err == nil:
		return p, true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return nil, false, nil
	}
	if c, ok := uniqueViolation(err); ok && c == "payments_mpesa_receipt_key" {
		return nil, false, domain.ErrDuplicateReceipt
	}
	return nil, false, mapErr(err)
}

func (r *paymentRepo) Hold(ctx context.Context, tx repository.Tx, transactionID, reason string) (bool, error) {
	const q = `
UPDATE payments SET hold_reason = $2
 WHERE transaction_id = $1 AND is_finished = FALSE AND hold_reason = '';`
	tag, err := execSQL(ctx, r.pool, tx, q, transactionID, reason)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payments
 WHERE is_finished = FALSE AND hold_reason = '' AND created_at < $1
 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, scanErr(err)
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}
