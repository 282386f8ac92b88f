package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kileldylan/afrinet-project/internal/domain"
)

// StatusFor maps domain errors to HTTP status codes. Anything unrecognised is
// an internal error.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidArgument),
		errors.Is(err, domain.ErrMalformedCallback):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrVoucherPhoneMismatch):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPackageNotFound),
		errors.Is(err, domain.ErrUnknownTransaction),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateTransaction),
		errors.Is(err, domain.ErrDuplicateReceipt),
		errors.Is(err, domain.ErrAlreadyExists),
		errors.Is(err, domain.ErrVoucherUsed),
		errors.Is(err, domain.ErrPaymentNotCompleted),
		errors.Is(err, domain.ErrMissingPackage),
		errors.Is(err, domain.ErrSessionNotActive):
		return http.StatusConflict
	case errors.Is(err, domain.ErrVoucherExpired):
		return http.StatusGone
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrGatewayError):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientErrors are safe to echo back verbatim.
var clientErrors = []error{
	domain.ErrInvalidInput,
	domain.ErrInvalidArgument,
	domain.ErrMalformedCallback,
	domain.ErrUnauthorized,
	domain.ErrVoucherPhoneMismatch,
	domain.ErrPackageNotFound,
	domain.ErrUnknownTransaction,
	domain.ErrNotFound,
	domain.ErrDuplicateTransaction,
	domain.ErrDuplicateReceipt,
	domain.ErrAlreadyExists,
	domain.ErrVoucherUsed,
	domain.ErrPaymentNotCompleted,
	domain.ErrMissingPackage,
	domain.ErrSessionNotActive,
	domain.ErrVoucherExpired,
}

// publicMessage keeps internal error text out of responses.
func publicMessage(err error) string {
	switch StatusFor(err) {
	case http.StatusBadGateway:
		return "payment provider rejected the request"
	case http.StatusServiceUnavailable:
		return "payment provider unavailable, try again"
	case http.StatusTooManyRequests:
		return "too many payment requests, wait a minute and try again"
	}
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes {success:false, message} with the mapped status.
func WriteError(w http.ResponseWriter, err error) {
	WriteJSON(w, StatusFor(err), ErrorResponse{Success: false, Message: publicMessage(err)})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Message: msg})
}
