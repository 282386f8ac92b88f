package repository

import (
	"context"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// -----------------------------
// Accounts
// -----------------------------

type AccountRepository interface {
	// Upsert creates the account for phone if missing, otherwise updates its
	// package when packageID is non-nil. Atomic under concurrent callers.
	Upsert(ctx context.Context, tx Tx, phone string, packageID *string) (*model.Account, error)
	FindByPhone(ctx context.Context, tx Tx, phone string) (*model.Account, error)
}
