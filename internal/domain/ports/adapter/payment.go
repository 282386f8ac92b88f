package adapter

import (
	"context"

	"github.com/shopspring/decimal"
)

// PushRequest asks the provider to prompt the customer's handset for payment.
type PushRequest struct {
	Phone       string // canonical MSISDN
	Amount      decimal.Decimal
	Reference   string // account reference shown to the customer
	Description string
}

// PushResult is returned once the provider accepted the push.
type PushResult struct {
	CheckoutRequestID string
	MerchantRequestID string
	CustomerMessage   string
}

// StatusResult is the provider's view of a previously pushed payment.
// Pending is true while the customer has not acted yet; ResultCode is only
// meaningful when Pending is false.
type StatusResult struct {
	Pending    bool
	ResultCode int
	ResultDesc string
	Receipt    string
	Phone      string
}

func (r StatusResult) Succeeded() bool { return !r.Pending && r.ResultCode == 0 }

// PaymentGateway is the hex port for the push-payment provider.
//
// Implementations return domain.ErrGatewayUnavailable for timeouts and transport
// failures and domain.ErrGatewayError when the provider rejects the request.
type PaymentGateway interface {
	Name() string

	Push(ctx context.Context, req PushRequest) (PushResult, error)
	QueryStatus(ctx context.Context, checkoutRequestID string) (StatusResult, error)
}
