package repository

import (
	"context"
	"time"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// VoucherRepository is the port for managing vouchers.
type VoucherRepository interface {
	// Save creates a voucher. A duplicate code yields domain.ErrAlreadyExists.
	Save(ctx context.Context, tx Tx, v *model.Voucher) error
	// SaveIfAbsent inserts v unless its code exists; false means nothing was written.
	SaveIfAbsent(ctx context.Context, tx Tx, v *model.Voucher) (bool, error)
	FindByCode(ctx context.Context, tx Tx, code string) (*model.Voucher, error)
	// MarkUsed flips is_used false->true; false means someone else got there first.
	MarkUsed(ctx context.Context, tx Tx, code string, at time.Time) (bool, error)
}
