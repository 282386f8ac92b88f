package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct{ pool *pgxpool.Pool }

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

// Upsert relies on the unique phone index so concurrent first payments for the
// same number converge on one row.
func (r *accountRepo) Upsert(ctx context.Context, tx repository.Tx, phone string, packageID *string) (*model.Account, error) {
	const q = `
INSERT INTO accounts (id, phone, package_id, created_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (phone) DO UPDATE SET
  package_id = COALESCE(EXCLUDED.package_id, accounts.package_id)
RETURNING id, phone, package_id, created_at;`
	row, err := pickRow(ctx, r.pool, tx, q, uuid.NewString(), phone, packageID)
	if err != nil {
		return nil, err
	}
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Phone, &a.PackageID, &a.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

func (r *accountRepo) FindByPhone(ctx context.Context, tx repository.Tx, phone string) (*model.Account, error) {
	const q = `SELECT id, phone, package_id, created_at FROM accounts WHERE phone=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, phone)
	if err != nil {
		return nil, err
	}
	a := &model.Account{}
	if err := row.Scan(&a.ID, &a.Phone, &a.PackageID, &a.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	return a, nil
}
