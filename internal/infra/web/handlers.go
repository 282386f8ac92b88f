package web

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/infra/api/apiv1"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

func decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return domain.ErrInvalidInput
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// sessionsListHandler lists active sessions, most recent first.
func sessionsListHandler(sessions usecase.SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}
		list, err := sessions.ListActive(r.Context(), limit)
		metrics.IncAdminRequest("list_sessions", status(err))
		if err != nil {
			apiv1.WriteError(w, err)
			return
		}
		apiv1.WriteJSON(w, http.StatusOK, struct {
			Items []apiv1.SessionView `json:"items"`
		}{Items: apiv1.NewSessionViews(list, time.Now())})
	}
}

func sessionDisconnectHandler(sessions usecase.SessionUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		s, err := sessions.Disconnect(r.Context(), id)
		metrics.IncAdminRequest("disconnect_session", status(err))
		if err != nil {
			apiv1.WriteError(w, err)
			return
		}
		log.Info().Str("session_id", s.ID).Msg("session disconnected by operator")
		apiv1.WriteJSON(w, http.StatusOK, apiv1.NewSessionView(s, time.Now()))
	}
}

type voucherCreateRequest struct {
	Code      string     `json:"code,omitempty"`
	PackageID string     `json:"package_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type voucherResponse struct {
	Code      string     `json:"code"`
	PackageID *string    `json:"package_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// voucherCreateHandler creates a voucher. An empty code is generated.
func voucherCreateHandler(vouchers usecase.VoucherUseCase, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req voucherCreateRequest
		if err := decode(r, &req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.ExpiresAt != nil && !req.ExpiresAt.After(time.Now()) {
			http.Error(w, "expires_at must be in the future", http.StatusBadRequest)
			return
		}
		v, err := vouchers.Create(r.Context(), req.Code, req.PackageID, req.ExpiresAt)
		metrics.IncAdminRequest("create_voucher", status(err))
		if err != nil {
			apiv1.WriteError(w, err)
			return
		}
		log.Info().Str("voucher", v.Code).Msg("voucher created by operator")
		apiv1.WriteJSON(w, http.StatusCreated, voucherResponse{
			Code:      v.Code,
			PackageID: v.PackageID,
			ExpiresAt: v.ExpiresAt,
			CreatedAt: v.CreatedAt,
		})
	}
}

func sweepHandler(sweeper Sweeper, log *zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sweeper == nil {
			http.Error(w, "sweeper not configured", http.StatusServiceUnavailable)
			return
		}
		n, err := sweeper.RunOnce(r.Context())
		metrics.IncAdminRequest("sweep", status(err))
		if err != nil {
			log.Error().Err(err).Msg("manual expiry sweep")
			apiv1.WriteError(w, err)
			return
		}
		apiv1.WriteJSON(w, http.StatusOK, struct {
			Expired int `json:"expired"`
		}{Expired: n})
	}
}
