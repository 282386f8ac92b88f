package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// Compile-time check
var (
	_ VoucherUseCase = (*voucherUC)(nil)
	_ VoucherIssuer  = (*voucherUC)(nil)
)

type VoucherUseCase interface {
	// Redeem consumes a voucher and starts a session for phone. The voucher's own
	// package wins over packageCode when both are present.
	Redeem(ctx context.Context, code, phone, packageCode string) (*model.Session, error)
	// Create issues a voucher; an empty code is generated.
	Create(ctx context.Context, code, packageCode string, expiresAt *time.Time) (*model.Voucher, error)
}

// VoucherIssuer hands out the receipt voucher of a completed payment.
type VoucherIssuer interface {
	IssueForPayment(ctx context.Context, p *model.Payment) (*model.Voucher, error)
}

type VoucherConfig struct {
	CountryCode string
	Validity    time.Duration
}

type voucherUC struct {
	cfg      VoucherConfig
	vouchers repository.VoucherRepository
	payments repository.PaymentRepository
	packages repository.PackageRepository
	sessions repository.SessionRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewVoucherUseCase(
	cfg VoucherConfig,
	vouchers repository.VoucherRepository,
	payments repository.PaymentRepository,
	packages repository.PackageRepository,
	sessions repository.SessionRepository,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *voucherUC {
	if cfg.CountryCode == "" {
		cfg.CountryCode = model.DefaultCountryCode
	}
	if cfg.Validity <= 0 {
		cfg.Validity = 30 * 24 * time.Hour
	}
	l := logger.With().Str("component", "vouchers").Logger()
	return &voucherUC{cfg: cfg, vouchers: vouchers, payments: payments, packages: packages, sessions: sessions, tm: tm, log: &l}
}

func (u *voucherUC) Redeem(ctx context.Context, code, phone, packageCode string) (*model.Session, error) {
	code = canonicalVoucherCode(code)
	if code == "" {
		return nil, domain.ErrInvalidInput
	}
	phone, err := model.NormalizePhone(phone, u.cfg.CountryCode)
	if err != nil {
		return nil, err
	}

	v, err := u.vouchers.FindByCode(ctx, repository.NoTX, code)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if v.IsUsed {
		return nil, domain.ErrVoucherUsed
	}
	if v.IsExpired(now) {
		return nil, domain.ErrVoucherExpired
	}
	if v.PaymentID != nil {
		p, err := u.payments.FindByID(ctx, repository.NoTX, *v.PaymentID)
		if err != nil {
			return nil, err
		}
		if p.Phone != phone {
			return nil, domain.ErrVoucherPhoneMismatch
		}
		return u.redeemPaid(ctx, v, p, now)
	}

	pkg, err := u.resolvePackage(ctx, v, packageCode)
	if err != nil {
		return nil, err
	}
	s, err := model.NewSession(nil, phone, pkg, nil, code, now)
	if err != nil {
		return nil, err
	}

	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.vouchers.MarkUsed(ctx, tx, code, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrVoucherUsed
		}
		return u.sessions.Create(ctx, tx, s)
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().Str("voucher", code).Str("session_id", s.ID).Msg("voucher redeemed")
	return s, nil
}

// redeemPaid consumes a receipt voucher. A payment never backs more than one
// session, so the voucher returns the payment's session when it already has one.
func (u *voucherUC) redeemPaid(ctx context.Context, v *model.Voucher, p *model.Payment, now time.Time) (*model.Session, error) {
	if p.Status != model.PaymentStatusCompleted {
		return nil, domain.ErrPaymentNotCompleted
	}
	if v.PackageID == nil {
		return nil, domain.ErrMissingPackage
	}
	var out *model.Session
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		ok, err := u.vouchers.MarkUsed(ctx, tx, v.Code, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrVoucherUsed
		}

		existing, err := u.sessions.FindByPaymentID(ctx, tx, p.ID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		pkg, err := u.resolvePackage(ctx, v, "")
		if err != nil {
			return err
		}
		var accountID *string
		if p.AccountID != "" {
			id := p.AccountID
			accountID = &id
		}
		paymentID := p.ID
		s, err := model.NewSession(accountID, p.Phone, pkg, &paymentID, v.Code, now)
		if err != nil {
			return err
		}
		if err := u.sessions.Create(ctx, tx, s); err != nil {
			return err
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("voucher", v.Code).Str("payment_id", p.ID).Str("session_id", out.ID).Msg("receipt voucher redeemed")
	return out, nil
}

func (u *voucherUC) resolvePackage(ctx context.Context, v *model.Voucher, packageCode string) (*model.Package, error) {
	var (
		pkg *model.Package
		err error
	)
	switch {
	case v.PackageID != nil:
		pkg, err = u.packages.FindByID(ctx, repository.NoTX, *v.PackageID)
	case packageCode != "":
		pkg, err = u.packages.FindByCode(ctx, repository.NoTX, packageCode)
	default:
		return nil, domain.ErrPackageNotFound
	}
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrPackageNotFound
	}
	return pkg, err
}

func (u *voucherUC) Create(ctx context.Context, code, packageCode string, expiresAt *time.Time) (*model.Voucher, error) {
	code = canonicalVoucherCode(code)
	if code == "" {
		generated, err := generateVoucherCode()
		if err != nil {
			return nil, err
		}
		code = generated
	}

	v := &model.Voucher{Code: code, ExpiresAt: expiresAt, CreatedAt: time.Now().UTC()}
	if packageCode != "" {
		pkg, err := u.packages.FindByCode(ctx, repository.NoTX, packageCode)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrPackageNotFound
		}
		if err != nil {
			return nil, err
		}
		v.PackageID = &pkg.ID
	}
	if err := u.vouchers.Save(ctx, repository.NoTX, v); err != nil {
		return nil, err
	}
	u.log.Info().Str("voucher", code).Msg("voucher created")
	return v, nil
}

// IssueForPayment stores the receipt voucher of a completed payment. Repeated
// calls return the stored voucher, so every delivery of a result may call it.
func (u *voucherUC) IssueForPayment(ctx context.Context, p *model.Payment) (*model.Voucher, error) {
	if p == nil || p.Status != model.PaymentStatusCompleted {
		return nil, domain.ErrPaymentNotCompleted
	}
	if p.Receipt == nil || canonicalVoucherCode(*p.Receipt) == "" {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	exp := now.Add(u.cfg.Validity)
	paymentID := p.ID
	v := &model.Voucher{
		Code:      canonicalVoucherCode(*p.Receipt),
		PackageID: p.PackageID,
		PaymentID: &paymentID,
		ExpiresAt: &exp,
		CreatedAt: now,
	}

	created, err := u.vouchers.SaveIfAbsent(ctx, repository.NoTX, v)
	if err != nil {
		return nil, err
	}
	if created {
		u.log.Info().Str("voucher", v.Code).Str("payment_id", p.ID).Msg("receipt voucher issued")
		return v, nil
	}

	existing, err := u.vouchers.FindByCode(ctx, repository.NoTX, v.Code)
	if err != nil {
		return nil, err
	}
	if existing.PaymentID == nil || *existing.PaymentID != p.ID {
		u.log.Warn().Str("voucher", v.Code).Str("payment_id", p.ID).Msg("receipt collides with an existing voucher code")
		return nil, domain.ErrAlreadyExists
	}
	return existing, nil
}
