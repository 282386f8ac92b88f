package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/repository"
)

// Compile-time check
var _ ReconciliationUseCase = (*reconcileUC)(nil)

// RateLimiter is satisfied by the redis fixed-window limiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type ReconcileConfig struct {
	CountryCode      string
	GatewayTimeout   time.Duration
	VerifyGrace      time.Duration
	InitiateLimit    int
	InitiateWindow   time.Duration
	AccountReference string
	Description      string
}

func (c ReconcileConfig) withDefaults() ReconcileConfig {
	if c.CountryCode == "" {
		c.CountryCode = model.DefaultCountryCode
	}
	if c.GatewayTimeout <= 0 {
		c.GatewayTimeout = 15 * time.Second
	}
	if c.VerifyGrace <= 0 {
		c.VerifyGrace = 30 * time.Second
	}
	if c.InitiateWindow <= 0 {
		c.InitiateWindow = time.Minute
	}
	if c.AccountReference == "" {
		c.AccountReference = "Hotspot"
	}
	if c.Description == "" {
		c.Description = "Internet access"
	}
	return c
}

type InitiateResult struct {
	Payment         *model.Payment
	CustomerMessage string
}

// CallbackOutcome reports what a callback did. ProvisionErr is set when the
// payment completed but the session grant failed; the payment stays completed.
// Held is set when the result could not be applied and the payment now waits
// for an operator.
type CallbackOutcome struct {
	Callback     *CallbackResult
	Payment      *model.Payment
	Session      *model.Session
	Applied      bool
	Held         bool
	ProvisionErr error
}

// VerifyResult carries the payment as seen after verification and, once it
// is completed, its session.
type VerifyResult struct {
	Payment *model.Payment
	Session *model.Session
	Applied bool
}

type ReconciliationUseCase interface {
	// Initiate pushes a payment prompt to phone and records the pending payment.
	// No payment is recorded when the gateway does not accept the push.
	Initiate(ctx context.Context, phone string, amount decimal.Decimal, packageCode string) (*InitiateResult, error)
	// HandleCallback applies an asynchronous provider result.
	HandleCallback(ctx context.Context, raw []byte) (*CallbackOutcome, error)
	// Verify is the polling fallback for clients whose callback is late or lost.
	Verify(ctx context.Context, transactionID, phone string) (*VerifyResult, error)
	// Reconcile runs the verify path for a payment found by other means, such as
	// the background sweep over stale pending payments.
	Reconcile(ctx context.Context, p *model.Payment) (*VerifyResult, error)
	StalePending(ctx context.Context, limit int) ([]*model.Payment, error)
}

type reconcileUC struct {
	cfg      ReconcileConfig
	packages PackageUseCase
	accounts repository.AccountRepository
	ledger   PaymentLedger
	sessions SessionUseCase
	vouchers VoucherIssuer
	gateway  adapter.PaymentGateway
	alerter  adapter.OperatorAlerter
	limiter  RateLimiter
	log      *zerolog.Logger
}

func NewReconciliationUseCase(
	cfg ReconcileConfig,
	packages PackageUseCase,
	accounts repository.AccountRepository,
	ledger PaymentLedger,
	sessions SessionUseCase,
	vouchers VoucherIssuer,
	gateway adapter.PaymentGateway,
	alerter adapter.OperatorAlerter,
	limiter RateLimiter,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "reconcile").Logger()
	return &reconcileUC{
		cfg:      cfg.withDefaults(),
		packages: packages,
		accounts: accounts,
		ledger:   ledger,
		sessions: sessions,
		vouchers: vouchers,
		gateway:  gateway,
		alerter:  alerter,
		limiter:  limiter,
		log:      &l,
	}
}

func (u *reconcileUC) Initiate(ctx context.Context, phone string, amount decimal.Decimal, packageCode string) (*InitiateResult, error) {
	canon, err := model.NormalizePhone(phone, u.cfg.CountryCode)
	if err != nil {
		return nil, err
	}
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	pkg, err := u.packages.Resolve(ctx, packageCode, amount)
	if err != nil {
		return nil, err
	}
	if !pkg.Price.Equal(amount) {
		u.log.Warn().
			Str("package", pkg.Code).
			Str("requested", amount.String()).
			Str("price", pkg.Price.String()).
			Msg("requested amount differs from package price; charging package price")
	}

	if u.limiter != nil && u.cfg.InitiateLimit > 0 {
		ok, err := u.limiter.Allow(ctx, initiateRateKey(canon), u.cfg.InitiateLimit, u.cfg.InitiateWindow)
		switch {
		case err != nil:
			u.log.Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		case !ok:
			return nil, domain.ErrRateLimited
		}
	}

	acct, err := u.accounts.Upsert(ctx, repository.NoTX, canon, &pkg.ID)
	if err != nil {
		return nil, err
	}

	pctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	res, err := u.gateway.Push(pctx, adapter.PushRequest{
		Phone:       canon,
		Amount:      pkg.Price,
		Reference:   u.cfg.AccountReference,
		Description: u.cfg.Description,
	})
	cancel()
	if err != nil {
		err = gatewayErr(err)
		u.log.Warn().Err(err).Str("gateway", u.gateway.Name()).Msg("push rejected; no payment recorded")
		return nil, err
	}

	p, err := u.ledger.CreatePending(ctx, acct.ID, canon, pkg.Price, &pkg.ID, res.CheckoutRequestID)
	if err != nil {
		// the customer may still approve; the callback will then be unknown
		u.log.Error().Err(err).Str("transaction_id", res.CheckoutRequestID).Msg("push accepted but pending payment not recorded")
		return nil, err
	}
	return &InitiateResult{Payment: p, CustomerMessage: res.CustomerMessage}, nil
}

func (u *reconcileUC) HandleCallback(ctx context.Context, raw []byte) (*CallbackOutcome, error) {
	cb, err := ParseSTKCallback(raw)
	if err != nil {
		return nil, err
	}
	log := u.log.With().Str("transaction_id", cb.CheckoutRequestID).Int("result_code", cb.ResultCode).Logger()

	current, err := u.ledger.FindByTransaction(ctx, cb.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("callback for unknown transaction")
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTransaction, cb.CheckoutRequestID)
		}
		return nil, err
	}

	var tr Transition
	if cb.Succeeded() {
		tr, err = u.ledger.CompleteSuccess(ctx, cb.CheckoutRequestID, cb.Receipt, u.providerPhone(cb.Phone))
	} else {
		tr, err = u.ledger.CompleteFailure(ctx, cb.CheckoutRequestID, cb.ResultDesc)
	}
	if errors.Is(err, domain.ErrDuplicateReceipt) {
		// a redelivery cannot clear the collision, so the result is accepted and parked
		if herr := u.hold(ctx, current, cb.Receipt); herr != nil {
			return nil, herr
		}
		current.HoldReason = holdReason(cb.Receipt)
		return &CallbackOutcome{Callback: cb, Payment: current, Held: true}, nil
	}
	if err != nil {
		return nil, err
	}

	out := &CallbackOutcome{Callback: cb, Payment: tr.Payment, Applied: tr.Applied}
	if !tr.Applied {
		log.Info().Str("status", string(tr.Payment.Status)).Msg("duplicate callback absorbed")
	}
	if tr.Payment.Status == model.PaymentStatusCompleted {
		out.Session, out.ProvisionErr = u.grant(ctx, tr.Payment)
	}
	return out, nil
}

func (u *reconcileUC) Verify(ctx context.Context, transactionID, phone string) (*VerifyResult, error) {
	if transactionID == "" {
		return nil, domain.ErrInvalidInput
	}
	canon, err := model.NormalizePhone(phone, u.cfg.CountryCode)
	if err != nil {
		return nil, err
	}
	p, err := u.ledger.FindByTransactionAndPhone(ctx, transactionID, canon)
	if err != nil {
		return nil, err
	}
	return u.Reconcile(ctx, p)
}

func (u *reconcileUC) Reconcile(ctx context.Context, p *model.Payment) (*VerifyResult, error) {
	res := &VerifyResult{Payment: p}

	if p.Status == model.PaymentStatusPending && !p.IsHeld() && p.PendingFor(time.Now()) > u.cfg.VerifyGrace {
		tr, ok := u.queryAndApply(ctx, p)
		if ok {
			res.Payment, res.Applied = tr.Payment, tr.Applied
		}
	}

	if res.Payment.Status == model.PaymentStatusCompleted {
		s, err := u.grant(ctx, res.Payment)
		if err != nil {
			return res, err
		}
		res.Session = s
	}
	return res, nil
}

// queryAndApply asks the gateway for the payment's status. Only an affirmative
// provider answer moves the ledger; errors and "still processing" leave it pending.
func (u *reconcileUC) queryAndApply(ctx context.Context, p *model.Payment) (Transition, bool) {
	log := u.log.With().Str("transaction_id", p.TransactionID).Logger()

	qctx, cancel := context.WithTimeout(ctx, u.cfg.GatewayTimeout)
	st, err := u.gateway.QueryStatus(qctx, p.TransactionID)
	cancel()
	if err != nil {
		log.Warn().Err(gatewayErr(err)).Msg("status query failed; payment stays pending")
		return Transition{}, false
	}
	if st.Pending {
		log.Debug().Msg("provider still processing")
		return Transition{}, false
	}

	var tr Transition
	if st.Succeeded() {
		tr, err = u.ledger.CompleteSuccess(ctx, p.TransactionID, st.Receipt, u.providerPhone(st.Phone))
	} else {
		tr, err = u.ledger.CompleteFailure(ctx, p.TransactionID, st.ResultDesc)
	}
	if errors.Is(err, domain.ErrDuplicateReceipt) {
		if herr := u.hold(ctx, p, st.Receipt); herr != nil {
			log.Error().Err(herr).Msg("hold payment")
		}
		return Transition{}, false
	}
	if err != nil {
		log.Error().Err(err).Msg("apply status query result")
		return Transition{}, false
	}
	return tr, true
}

// providerPhone returns the provider-reported payer phone when it is a usable
// MSISDN, and nil otherwise so the stored phone is kept.
func (u *reconcileUC) providerPhone(raw string) *string {
	n, err := model.NormalizePhone(raw, u.cfg.CountryCode)
	if err != nil || !model.ValidMSISDN(n) {
		if raw != "" {
			u.log.Warn().Int("length", len(raw)).Msg("ignoring unusable provider phone")
		}
		return nil
	}
	return &n
}

// hold parks a payment whose receipt is already recorded elsewhere. The
// operator is alerted once, when the hold is placed.
func (u *reconcileUC) hold(ctx context.Context, p *model.Payment, receipt string) error {
	held, err := u.ledger.Hold(ctx, p.TransactionID, holdReason(receipt))
	if err != nil {
		return err
	}
	if held {
		u.alert(ctx, fmt.Sprintf("receipt %s already recorded on another payment; transaction %s held for review", receipt, p.TransactionID))
	}
	return nil
}

func holdReason(receipt string) string {
	return "duplicate receipt " + receipt
}

// grant provisions the session and escalates integrity problems to an operator.
// The receipt voucher is issued first so a failed grant can still be redeemed.
func (u *reconcileUC) grant(ctx context.Context, p *model.Payment) (*model.Session, error) {
	u.issueVoucher(ctx, p)
	s, err := u.sessions.GrantFor(ctx, p)
	if err == nil {
		return s, nil
	}
	ev := u.log.Error().Err(err).Str("payment_id", p.ID).Str("transaction_id", p.TransactionID)
	if errors.Is(err, domain.ErrMissingPackage) {
		ev.Msg("completed payment has no package; operator action required")
		u.alert(ctx, fmt.Sprintf("payment %s (transaction %s, phone %s) completed without a package; no session granted", p.ID, p.TransactionID, p.Phone))
	} else {
		ev.Msg("session grant failed")
	}
	return nil, err
}

func (u *reconcileUC) issueVoucher(ctx context.Context, p *model.Payment) {
	if u.vouchers == nil || p.Receipt == nil || *p.Receipt == "" {
		return
	}
	if _, err := u.vouchers.IssueForPayment(ctx, p); err != nil {
		u.log.Warn().Err(err).Str("payment_id", p.ID).Msg("receipt voucher not issued")
	}
}

func (u *reconcileUC) alert(ctx context.Context, text string) {
	if u.alerter == nil {
		return
	}
	if err := u.alerter.Alert(ctx, text); err != nil {
		u.log.Warn().Err(err).Msg("operator alert not delivered")
	}
}

func (u *reconcileUC) StalePending(ctx context.Context, limit int) ([]*model.Payment, error) {
	return u.ledger.ListStalePending(ctx, time.Now().Add(-u.cfg.VerifyGrace), limit)
}

// gatewayErr keeps provider rejections distinct and folds everything else,
// timeouts included, into ErrGatewayUnavailable.
func gatewayErr(err error) error {
	if errors.Is(err, domain.ErrGatewayError) || errors.Is(err, domain.ErrGatewayUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
}

func initiateRateKey(phone string) string {
	return "rate_limit:initiate:" + phone
}
