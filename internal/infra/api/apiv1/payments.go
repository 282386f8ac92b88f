package apiv1

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/infra/logging"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
)

var callbackAccepted = CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	var req InitiateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	phone, ok := s.canonicalPhone(req.Phone)
	if !ok {
		writeBadRequest(w, "invalid phone number")
		return
	}
	if !req.Amount.IsPositive() {
		writeBadRequest(w, "amount must be greater than zero")
		return
	}

	ctx := r.Context()
	l := logging.With(ctx, s.log)
	res, err := s.reconcile.Initiate(ctx, phone, req.Amount, strings.TrimSpace(req.PackageID))
	if err != nil {
		switch code := StatusFor(err); {
		case code == http.StatusTooManyRequests:
			metrics.IncRateLimitTriggered()
		case code >= http.StatusInternalServerError:
			l.Error().Err(err).Str("phone", s.redact(phone)).Msg("initiate payment")
		default:
			l.Warn().Err(err).Str("phone", s.redact(phone)).Msg("initiate payment rejected")
		}
		WriteError(w, err)
		return
	}

	metrics.IncPayment(string(model.PaymentStatusPending), "initiate")
	l.Info().
		Str("transaction_id", res.Payment.TransactionID).
		Str("phone", s.redact(phone)).
		Str("amount", res.Payment.Amount.String()).
		Msg("stk push sent")
	WriteJSON(w, http.StatusOK, InitiateResponse{
		Success:           true,
		CheckoutRequestID: res.Payment.TransactionID,
		CustomerMessage:   res.CustomerMessage,
		Message:           "Payment request sent. Check your phone to enter your M-Pesa PIN.",
	})
}

// handleCallback acknowledges with 200 whenever a retry could not change the
// outcome, and answers 500 when it could so that the provider tries again.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		metrics.IncCallback("malformed")
		writeBadRequest(w, "unreadable body")
		return
	}
	ctx := r.Context()
	l := logging.With(ctx, s.log)

	out, err := s.reconcile.HandleCallback(ctx, raw)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMalformedCallback):
			metrics.IncCallback("malformed")
			l.Warn().Err(err).Msg("malformed callback")
		case errors.Is(err, domain.ErrUnknownTransaction):
			metrics.IncCallback("unknown")
		case errors.Is(err, domain.ErrDuplicateReceipt):
			metrics.IncCallback("duplicate_receipt")
		default:
			metrics.IncCallback("error")
			l.Error().Err(err).Msg("callback processing failed")
		}
		WriteError(w, err)
		return
	}

	l = logging.With(logging.WithTransactionID(ctx, out.Payment.TransactionID), s.log)
	if out.Held {
		// the operator has the payment now; redelivery would hit the same collision
		metrics.IncCallback("held")
		l.Warn().Str("reason", out.Payment.HoldReason).Msg("callback accepted; payment held")
		WriteJSON(w, http.StatusOK, callbackAccepted)
		return
	}
	if out.Applied {
		metrics.IncCallback("applied")
		s.recordTransition(out.Payment, "callback")
		if out.Session != nil {
			metrics.IncSessionGranted("payment")
		}
	} else {
		metrics.IncCallback("duplicate")
	}

	if out.ProvisionErr != nil {
		if errors.Is(out.ProvisionErr, domain.ErrMissingPackage) {
			// an operator has been alerted; a retry cannot supply the package
			metrics.IncCallback("missing_package")
			WriteJSON(w, http.StatusOK, callbackAccepted)
			return
		}
		metrics.IncCallback("provision_error")
		l.Error().Err(out.ProvisionErr).Msg("session grant failed; asking provider to retry")
		WriteError(w, out.ProvisionErr)
		return
	}

	ev := l.Info().Str("status", string(out.Payment.Status)).Bool("applied", out.Applied)
	if out.Session != nil {
		ev = ev.Str("session_id", out.Session.ID)
	}
	ev.Msg("callback processed")
	WriteJSON(w, http.StatusOK, callbackAccepted)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	txID := strings.TrimSpace(req.TransactionID)
	if txID == "" {
		writeBadRequest(w, "transaction_id is required")
		return
	}
	phone, ok := s.canonicalPhone(req.Phone)
	if !ok {
		writeBadRequest(w, "invalid phone number")
		return
	}

	ctx := logging.WithTransactionID(r.Context(), txID)
	l := logging.With(ctx, s.log)
	res, err := s.reconcile.Verify(ctx, txID, phone)
	if res != nil && res.Applied {
		s.recordTransition(res.Payment, "verify")
		if res.Session != nil {
			metrics.IncSessionGranted("payment")
		}
	}
	if err != nil {
		if errors.Is(err, domain.ErrMissingPackage) {
			WriteJSON(w, http.StatusOK, VerifyResponse{
				Success: false,
				Status:  string(model.PaymentStatusCompleted),
				Message: "Payment received. Access is being set up, contact support if it does not start shortly.",
			})
			return
		}
		if StatusFor(err) >= http.StatusInternalServerError {
			l.Error().Err(err).Msg("verify payment")
		}
		WriteError(w, err)
		return
	}

	p := res.Payment
	if res.Session != nil {
		exp := res.Session.ExpiresAt
		WriteJSON(w, http.StatusOK, VerifyResponse{
			Success:   true,
			Status:    string(p.Status),
			SessionID: res.Session.ID,
			ExpiresAt: &exp,
			Message:   "Payment confirmed. You are connected.",
		})
		return
	}
	resp := VerifyResponse{Success: false, Status: string(p.Status)}
	switch p.Status {
	case model.PaymentStatusPending:
		resp.Message = "Payment is still being processed."
	case model.PaymentStatusFailed:
		resp.Message = p.FailureReason
	}
	WriteJSON(w, http.StatusOK, resp)
}

// recordTransition counts a ledger transition applied by source.
func (s *Server) recordTransition(p *model.Payment, source string) {
	if p == nil {
		return
	}
	metrics.IncPayment(string(p.Status), source)
	if p.Status == model.PaymentStatusCompleted {
		metrics.AddPaymentRevenue(s.currency, p.Amount)
	}
}

func recordVoucherGrant() { metrics.IncSessionGranted("voucher") }

func (s *Server) redact(phone string) string { return logging.Redact(phone, s.dev) }
