package model

import "time"

// Account is the hotspot customer, keyed by canonical phone number.
type Account struct {
	ID        string // UUID
	Phone     string // canonical, e.g. 254712345678
	PackageID *string
	CreatedAt time.Time
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }
