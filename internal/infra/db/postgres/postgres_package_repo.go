package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

var _ repository.PackageRepository = (*packageRepo)(nil)

type packageRepo struct{ pool *pgxpool.Pool }

func NewPackageRepo(pool *pgxpool.Pool) *packageRepo {
	return &packageRepo{pool: pool}
}

const packageColumns = `id, code, name, price, duration_value, duration_unit, speed, popular, created_at`

func scanPackage(row interface{ Scan(dest ...interface{}) error }) (*model.Package, error) {
	p := &model.Package{}
	var unit string
	if err := row.Scan(&p.ID, &p.Code, &p.Name, &p.Price, &p.DurationValue, &unit, &p.Speed, &p.Popular, &p.CreatedAt); err != nil {
		return nil, scanErr(err)
	}
	p.DurationUnit = model.DurationUnit(unit)
	return p, nil
}

func (r *packageRepo) Save(ctx context.Context, tx repository.Tx, p *model.Package) error {
	const q = `
INSERT INTO packages (` + packageColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (code) DO UPDATE SET
  name=EXCLUDED.name, price=EXCLUDED.price, duration_value=EXCLUDED.duration_value,
  duration_unit=EXCLUDED.duration_unit, speed=EXCLUDED.speed, popular=EXCLUDED.popular
RETURNING id;`
	row, err := pickRow(ctx, r.pool, tx, q, p.ID, p.Code, p.Name, p.Price, p.DurationValue, string(p.DurationUnit), p.Speed, p.Popular, p.CreatedAt)
	if err != nil {
		return err
	}
	// an existing code keeps its id
	if err := row.Scan(&p.ID); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *packageRepo) findOne(ctx context.Context, tx repository.Tx, where string, arg interface{}) (*model.Package, error) {
	q := `SELECT ` + packageColumns + ` FROM packages WHERE ` + where
	row, err := pickRow(ctx, r.pool, tx, q, arg)
	if err != nil {
		return nil, err
	}
	return scanPackage(row)
}

func (r *packageRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Package, error) {
	return r.findOne(ctx, tx, `id=$1`, id)
}

func (r *packageRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.Package, error) {
	return r.findOne(ctx, tx, `code=$1`, code)
}

func (r *packageRepo) FindByPrice(ctx context.Context, tx repository.Tx, amount decimal.Decimal) (*model.Package, error) {
	return r.findOne(ctx, tx, `price=$1 ORDER BY popular DESC, created_at ASC LIMIT 1`, amount)
}

func (r *packageRepo) ListAll(ctx context.Context, tx repository.Tx) ([]*model.Package, error) {
	const q = `SELECT ` + packageColumns + ` FROM packages ORDER BY price ASC, code ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}
