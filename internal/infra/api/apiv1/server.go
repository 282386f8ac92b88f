package apiv1

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

const maxBodyBytes = 64 << 10

type Deps struct {
	Reconcile   usecase.ReconciliationUseCase
	Sessions    usecase.SessionUseCase
	Vouchers    usecase.VoucherUseCase
	Packages    usecase.PackageUseCase
	CountryCode string
	Currency    string
	Dev         bool
	Log         *zerolog.Logger
}

// Server serves the captive portal API and the provider callback.
type Server struct {
	reconcile   usecase.ReconciliationUseCase
	sessions    usecase.SessionUseCase
	vouchers    usecase.VoucherUseCase
	packages    usecase.PackageUseCase
	countryCode string
	currency    string
	dev         bool
	log         *zerolog.Logger
	now         func() time.Time
}

func NewServer(d Deps) *Server {
	if d.CountryCode == "" {
		d.CountryCode = model.DefaultCountryCode
	}
	if d.Currency == "" {
		d.Currency = "KES"
	}
	l := d.Log.With().Str("component", "apiv1").Logger()
	return &Server{
		reconcile:   d.Reconcile,
		sessions:    d.Sessions,
		vouchers:    d.Vouchers,
		packages:    d.Packages,
		countryCode: d.CountryCode,
		currency:    d.Currency,
		dev:         d.Dev,
		log:         &l,
		now:         time.Now,
	}
}

// RegisterAPIV1 mounts the public routes on r using absolute paths.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/initiate", s.handleInitiate)
		r.Post("/payments/callback", s.handleCallback)
		r.Post("/payments/verify", s.handleVerify)
		r.Post("/vouchers/redeem", s.handleRedeem)
		r.Get("/sessions/{phone}", s.handlePhoneSessions)
		r.Get("/packages", s.handlePackages)
	})
}

// canonicalPhone normalizes and validates a phone number at the boundary.
func (s *Server) canonicalPhone(raw string) (string, bool) {
	canon, err := model.NormalizePhone(raw, s.countryCode)
	if err != nil || !model.ValidMSISDN(canon) {
		return "", false
	}
	return canon, true
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.packages.List(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list packages")
		WriteError(w, err)
		return
	}
	out := PackageList{Items: make([]PackageView, 0, len(pkgs))}
	for _, p := range pkgs {
		out.Items = append(out.Items, newPackageView(p, s.currency))
	}
	WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	var req RedeemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeBadRequest(w, "voucher code is required")
		return
	}
	phone, ok := s.canonicalPhone(req.Phone)
	if !ok {
		writeBadRequest(w, "invalid phone number")
		return
	}

	sess, err := s.vouchers.Redeem(r.Context(), code, phone, req.PackageID)
	if err != nil {
		if StatusFor(err) >= http.StatusInternalServerError {
			s.log.Error().Err(err).Str("voucher", code).Msg("redeem voucher")
		}
		WriteError(w, err)
		return
	}
	recordVoucherGrant()
	WriteJSON(w, http.StatusOK, RedeemResponse{Success: true, Session: NewSessionView(sess, s.now())})
}

func (s *Server) handlePhoneSessions(w http.ResponseWriter, r *http.Request) {
	phone, ok := s.canonicalPhone(chi.URLParam(r, "phone"))
	if !ok {
		writeBadRequest(w, "invalid phone number")
		return
	}
	ctx := r.Context()
	now := s.now()

	resp := PhoneSessionsResponse{Success: true}
	active, err := s.sessions.ActiveByPhone(ctx, phone)
	switch {
	case err == nil:
		v := NewSessionView(active, now)
		resp.Active = &v
	case StatusFor(err) != http.StatusNotFound:
		s.log.Error().Err(err).Str("phone", s.redact(phone)).Msg("active session lookup")
		WriteError(w, err)
		return
	}

	recent, err := s.sessions.ListByPhone(ctx, phone, 10)
	if err != nil {
		s.log.Error().Err(err).Str("phone", s.redact(phone)).Msg("list sessions")
		WriteError(w, err)
		return
	}
	resp.Recent = NewSessionViews(recent, now)
	WriteJSON(w, http.StatusOK, resp)
}
