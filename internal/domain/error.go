package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidInput       = errors.New("invalid input")
	ErrOperationFailed    = errors.New("database operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")

	// Package / account
	ErrPackageNotFound = errors.New("package not found")
	ErrRateLimited     = errors.New("too many requests")

	// Payment gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrGatewayError       = errors.New("payment gateway rejected request")

	// Ledger / reconciliation
	ErrDuplicateTransaction = errors.New("duplicate transaction id")
	ErrDuplicateReceipt     = errors.New("duplicate payment receipt")
	ErrMalformedCallback    = errors.New("malformed payment callback")
	ErrUnknownTransaction   = errors.New("unknown transaction")
	ErrPaymentNotCompleted  = errors.New("payment is not completed")
	ErrMissingPackage       = errors.New("completed payment has no package")

	// Sessions / vouchers
	ErrSessionNotActive     = errors.New("session is not active")
	ErrVoucherUsed          = errors.New("voucher already used")
	ErrVoucherExpired       = errors.New("voucher has expired")
	ErrVoucherPhoneMismatch = errors.New("voucher not associated with this phone number")

	// Admin auth
	ErrUnauthorized = errors.New("unauthorized")
)
