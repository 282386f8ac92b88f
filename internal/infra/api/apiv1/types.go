package apiv1

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

type InitiateRequest struct {
	Phone     string          `json:"phone"`
	Amount    decimal.Decimal `json:"amount"`
	PackageID string          `json:"package_id,omitempty"`
}

type InitiateResponse struct {
	Success           bool   `json:"success"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
	Message           string `json:"message,omitempty"`
}

type VerifyRequest struct {
	TransactionID string `json:"transaction_id"`
	Phone         string `json:"phone"`
}

type VerifyResponse struct {
	Success   bool       `json:"success"`
	Status    string     `json:"status"`
	SessionID string     `json:"session_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

type RedeemRequest struct {
	Code      string `json:"code"`
	Phone     string `json:"phone"`
	PackageID string `json:"package_id,omitempty"`
}

type RedeemResponse struct {
	Success bool        `json:"success"`
	Session SessionView `json:"session"`
}

// CallbackAck is the body Daraja expects for an accepted callback.
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

type SessionView struct {
	ID                   string     `json:"id"`
	Phone                string     `json:"phone"`
	PackageID            string     `json:"package_id"`
	VoucherCode          string     `json:"voucher_code,omitempty"`
	Status               string     `json:"status"`
	IsActive             bool       `json:"is_active"`
	CreatedAt            time.Time  `json:"created_at"`
	ExpiresAt            time.Time  `json:"expires_at"`
	DisconnectedAt       *time.Time `json:"disconnected_at,omitempty"`
	DurationMinutes      int        `json:"duration_minutes"`
	TimeRemainingSeconds int64      `json:"time_remaining_seconds"`
}

func NewSessionView(s *model.Session, now time.Time) SessionView {
	return SessionView{
		ID:                   s.ID,
		Phone:                s.Phone,
		PackageID:            s.PackageID,
		VoucherCode:          s.VoucherCode,
		Status:               string(s.Status),
		IsActive:             s.IsActive,
		CreatedAt:            s.CreatedAt,
		ExpiresAt:            s.ExpiresAt,
		DisconnectedAt:       s.DisconnectedAt,
		DurationMinutes:      s.DurationMinutes,
		TimeRemainingSeconds: int64(s.TimeRemaining(now).Seconds()),
	}
}

func NewSessionViews(in []*model.Session, now time.Time) []SessionView {
	out := make([]SessionView, 0, len(in))
	for _, s := range in {
		out = append(out, NewSessionView(s, now))
	}
	return out
}

type PhoneSessionsResponse struct {
	Success bool          `json:"success"`
	Active  *SessionView  `json:"active"`
	Recent  []SessionView `json:"recent"`
}

type PackageView struct {
	ID              string          `json:"package_id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	DurationValue   int             `json:"duration_value"`
	DurationUnit    string          `json:"duration_unit"`
	DurationMinutes int             `json:"duration_minutes"`
	Speed           string          `json:"speed,omitempty"`
	Popular         bool            `json:"popular"`
}

type PackageList struct {
	Items []PackageView `json:"items"`
}

func newPackageView(p *model.Package, currency string) PackageView {
	return PackageView{
		ID:              p.Code,
		Name:            p.Name,
		Price:           p.Price,
		Currency:        currency,
		DurationValue:   p.DurationValue,
		DurationUnit:    string(p.DurationUnit),
		DurationMinutes: p.DurationMinutes(),
		Speed:           p.Speed,
		Popular:         p.Popular,
	}
}
