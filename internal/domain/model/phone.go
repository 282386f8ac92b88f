package model

import (
	"strings"

	"github.com/kileldylan/afrinet-project/internal/domain"
)

const DefaultCountryCode = "254"

// NormalizePhone turns a free-form MSISDN into country-code-prefixed digits.
// It reformats only; length checks belong to the API boundary.
func NormalizePhone(raw, countryCode string) (string, error) {
	phone := strings.TrimSpace(raw)
	if phone == "" {
		return "", domain.ErrInvalidInput
	}
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	switch {
	case strings.HasPrefix(phone, "0"):
		return countryCode + phone[1:], nil
	case strings.HasPrefix(phone, "+"):
		return phone[1:], nil
	case strings.HasPrefix(phone, countryCode):
		return phone, nil
	default:
		return countryCode + phone, nil
	}
}

// ValidMSISDN reports whether phone is all digits and 10 to 15 long.
func ValidMSISDN(phone string) bool {
	if len(phone) < 10 || len(phone) > 15 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
