package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

type SessionUseCase interface {
	// GrantFor provisions the single session a completed payment is entitled to.
	// Repeated calls return the same session.
	GrantFor(ctx context.Context, p *model.Payment) (*model.Session, error)
	// ActiveByPhone returns the phone's current session, expiring stale ones on the way.
	ActiveByPhone(ctx context.Context, phone string) (*model.Session, error)
	ListByPhone(ctx context.Context, phone string, limit int) ([]*model.Session, error)
	ListActive(ctx context.Context, limit int) ([]*model.Session, error)
	Disconnect(ctx context.Context, id string) (*model.Session, error)
	ExpireDue(ctx context.Context) ([]*model.Session, error)
}

type sessionUC struct {
	sessions repository.SessionRepository
	packages repository.PackageRepository
	log      *zerolog.Logger
}

func NewSessionUseCase(sessions repository.SessionRepository, packages repository.PackageRepository, logger *zerolog.Logger) *sessionUC {
	l := logger.With().Str("component", "sessions").Logger()
	return &sessionUC{sessions: sessions, packages: packages, log: &l}
}

func (u *sessionUC) GrantFor(ctx context.Context, p *model.Payment) (*model.Session, error) {
	if p == nil || p.Status != model.PaymentStatusCompleted {
		return nil, domain.ErrPaymentNotCompleted
	}
	if p.PackageID == nil || *p.PackageID == "" {
		return nil, domain.ErrMissingPackage
	}

	existing, err := u.sessions.FindByPaymentID(ctx, repository.NoTX, p.ID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	pkg, err := u.packages.FindByID(ctx, repository.NoTX, *p.PackageID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrMissingPackage
	}
	if err != nil {
		return nil, err
	}

	voucher := p.TransactionID
	if p.Receipt != nil && *p.Receipt != "" {
		voucher = *p.Receipt
	}
	var accountID *string
	if p.AccountID != "" {
		id := p.AccountID
		accountID = &id
	}
	paymentID := p.ID
	s, err := model.NewSession(accountID, p.Phone, pkg, &paymentID, voucher, time.Now())
	if err != nil {
		return nil, err
	}

	err = u.sessions.Create(ctx, repository.NoTX, s)
	if errors.Is(err, domain.ErrAlreadyExists) {
		// lost the race against a concurrent grant for the same payment
		winner, ferr := u.sessions.FindByPaymentID(ctx, repository.NoTX, p.ID)
		if ferr != nil {
			return nil, ferr
		}
		u.log.Debug().Str("payment_id", p.ID).Str("session_id", winner.ID).Msg("session already granted concurrently")
		return winner, nil
	}
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Str("payment_id", p.ID).
		Str("session_id", s.ID).
		Time("expires_at", s.ExpiresAt).
		Msg("session granted")
	return s, nil
}

// maxLazyExpiries bounds how many stale sessions one read may retire.
const maxLazyExpiries = 5

func (u *sessionUC) ActiveByPhone(ctx context.Context, phone string) (*model.Session, error) {
	for i := 0; i < maxLazyExpiries; i++ {
		s, err := u.sessions.FindActiveByPhone(ctx, repository.NoTX, phone)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		if !s.IsExpired(now) {
			return s, nil
		}
		if _, err := u.sessions.Expire(ctx, repository.NoTX, s.ID, now); err != nil {
			return nil, err
		}
		u.log.Info().Str("session_id", s.ID).Msg("session expired on read")
	}
	return nil, domain.ErrNotFound
}

func (u *sessionUC) ListByPhone(ctx context.Context, phone string, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 20
	}
	return u.sessions.ListByPhone(ctx, repository.NoTX, phone, limit)
}

func (u *sessionUC) ListActive(ctx context.Context, limit int) ([]*model.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	return u.sessions.ListActive(ctx, repository.NoTX, limit)
}

func (u *sessionUC) Disconnect(ctx context.Context, id string) (*model.Session, error) {
	now := time.Now().UTC()
	ok, err := u.sessions.Disconnect(ctx, repository.NoTX, id, now)
	if err != nil {
		return nil, err
	}
	s, err := u.sessions.FindByID(ctx, repository.NoTX, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s, domain.ErrSessionNotActive
	}
	u.log.Info().Str("session_id", id).Msg("session disconnected")
	return s, nil
}

func (u *sessionUC) ExpireDue(ctx context.Context) ([]*model.Session, error) {
	expired, err := u.sessions.ExpireDue(ctx, repository.NoTX, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if len(expired) > 0 {
		u.log.Info().Int("count", len(expired)).Msg("expired sessions")
	}
	return expired, nil
}
