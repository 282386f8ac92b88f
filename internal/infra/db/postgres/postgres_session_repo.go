package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, account_id, phone, package_id, payment_id, voucher_code, created_at, expires_at,
  duration_minutes, is_active, status, disconnected_at`

func scanSession(row interface{ Scan(dest ...interface{}) error }) (*model.Session, error) {
	s := &model.Session{}
	var status string
	if err := row.Scan(&s.ID, &s.AccountID, &s.Phone, &s.PackageID, &s.PaymentID, &s.VoucherCode, &s.CreatedAt, &s.ExpiresAt,
		&s.DurationMinutes, &s.IsActive, &status, &s.DisconnectedAt); err != nil {
		return nil, scanErr(err)
	}
	s.Status = model.SessionStatus(status)
	return s, nil
}

// Create relies on sessions_payment_id_key; a payment that already has a
// session makes the insert a no-op, reported as ErrAlreadyExists.
func (r *sessionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (payment_id) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, s.ID, s.AccountID, s.Phone, s.PackageID, s.PaymentID, s.VoucherCode, s.CreatedAt, s.ExpiresAt,
		s.DurationMinutes, s.IsActive, string(s.Status), s.DisconnectedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyExists
		}
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *sessionRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Session, error) {
	q := forUpdate(`SELECT `+sessionColumns+` FROM sessions WHERE `+where, tx)
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *sessionRepo) FindByPaymentID(ctx context.Context, tx repository.Tx, paymentID string) (*model.Session, error) {
	return r.findOne(ctx, tx, `payment_id=$1`, paymentID)
}

func (r *sessionRepo) FindActiveByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions
 WHERE phone=$1 AND is_active
 ORDER BY expires_at DESC LIMIT 1`
	row, err := pickRow(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, err
	}
	return scanSession(row)
}

func (r *sessionRepo) list(ctx context.Context, tx repository.Tx, q string, args ...interface{}) ([]*model.Session, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, mapErr(rows.Err())
}

func (r *sessionRepo) ListByPhone(ctx context.Context, tx repository.Tx, phone string, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE phone=$1 ORDER BY created_at DESC LIMIT $2;`
	return r.list(ctx, tx, q, phone, limit)
}

func (r *sessionRepo) ListActive(ctx context.Context, tx repository.Tx, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE is_active ORDER BY expires_at ASC LIMIT $1;`
	return r.list(ctx, tx, q, limit)
}

func (r *sessionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]*model.Session, error) {
	const q = `
UPDATE sessions
   SET is_active = FALSE, status = 'expired'
 WHERE is_active AND expires_at <= $1
RETURNING ` + sessionColumns + `;`
	return r.list(ctx, tx, q, now)
}

func (r *sessionRepo) Expire(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `UPDATE sessions SET is_active = FALSE, status = 'expired' WHERE id=$1 AND is_active AND expires_at <= $2;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *sessionRepo) Disconnect(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `UPDATE sessions SET is_active = FALSE, status = 'disconnected', disconnected_at = $2 WHERE id=$1 AND is_active;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
