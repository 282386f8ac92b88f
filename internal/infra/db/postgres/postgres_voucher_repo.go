package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

var _ repository.VoucherRepository = (*voucherRepo)(nil)

type voucherRepo struct{ pool *pgxpool.Pool }

func NewVoucherRepo(pool *pgxpool.Pool) *voucherRepo {
	return &voucherRepo{pool: pool}
}

func (r *voucherRepo) Save(ctx context.Context, tx repository.Tx, v *model.Voucher) error {
	const q = `
INSERT INTO vouchers (code, package_id, payment_id, is_used, used_at, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`
	_, err := execSQL(ctx, r.pool, tx, q, v.Code, v.PackageID, v.PaymentID, v.IsUsed, v.UsedAt, v.ExpiresAt, v.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyExists
		}
		return mapErr(err)
	}
	return nil
}

func (r *voucherRepo) SaveIfAbsent(ctx context.Context, tx repository.Tx, v *model.Voucher) (bool, error) {
	const q = `
INSERT INTO vouchers (code, package_id, payment_id, is_used, used_at, expires_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (code) DO NOTHING;`
	tag, err := execSQL(ctx, r.pool, tx, q, v.Code, v.PackageID, v.PaymentID, v.IsUsed, v.UsedAt, v.ExpiresAt, v.CreatedAt)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *voucherRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Voucher, error) {
	q := forUpdate(`SELECT code, package_id, payment_id, is_used, used_at, expires_at, created_at FROM vouchers WHERE code=$1`, tx)
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	v := &model.Voucher{}
	if err := row.Scan(&v.Code, &v.PackageID, &v.PaymentID, &v.IsUsed, &v.UsedAt, &v.ExpiresAt, &v.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return v, nil
}

func (r *voucherRepo) MarkUsed(ctx context.Context, tx repository.Tx, code string, at time.Time) (bool, error) {
	const q = `UPDATE vouchers SET is_used = TRUE, used_at = $2 WHERE code=$1 AND is_used = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, code, at)
	if err != nil {
		return false, mapErr(err)
	}
	return tag.RowsAffected() == 1, nil
}
