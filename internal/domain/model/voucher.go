package model

import "time"

// Voucher is a single-use access code redeemable for a package.
type Voucher struct {
	Code      string
	PackageID *string
	PaymentID *string
	IsUsed    bool
	UsedAt    *time.Time // Pointer to allow for NULL
	ExpiresAt *time.Time // Pointer to allow for NULL
	CreatedAt time.Time
}

func (v *Voucher) IsExpired(now time.Time) bool {
	return v.ExpiresAt != nil && now.After(*v.ExpiresAt)
}
