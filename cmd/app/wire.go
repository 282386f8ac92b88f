package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/config"
	"github.com/kileldylan/afrinet-project/internal/domain/ports/adapter"
	payAdapters "github.com/kileldylan/afrinet-project/internal/infra/adapters/payment"
	tele "github.com/kileldylan/afrinet-project/internal/infra/adapters/telegram"
	pg "github.com/kileldylan/afrinet-project/internal/infra/db/postgres"
	"github.com/kileldylan/afrinet-project/internal/infra/logging"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

// app is the dependency graph shared by the subcommands.
type app struct {
	cfg    *config.Config
	log    *zerolog.Logger
	pool   *pgxpool.Pool
	redis  *red.Client
	locker *red.RedisLocker

	packages  usecase.PackageUseCase
	sessions  usecase.SessionUseCase
	vouchers  usecase.VoucherUseCase
	reconcile usecase.ReconciliationUseCase
}

func loadConfig(flags *rootFlags) (*config.Config, *zerolog.Logger, error) {
	cfg, err := config.LoadConfig(flags.configPath, flags.dev)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, flags *rootFlags) (*app, error) {
	cfg, logger, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("redis: %w", err)
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	packageRepo := pg.NewPackageRepoCacheDecorator(pg.NewPackageRepo(pool), redisClient, cfg.Redis.TTL)
	accountRepo := pg.NewAccountRepo(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	sessionRepo := pg.NewSessionRepo(pool)
	voucherRepo := pg.NewVoucherRepo(pool)

	// ---- Adapters ----
	gateway, err := newGateway(cfg, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}
	alerter, err := newAlerter(cfg, logger)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, err
	}

	// ---- Use cases ----
	packageUC := usecase.NewPackageUseCase(packageRepo, logger)
	sessionUC := usecase.NewSessionUseCase(sessionRepo, packageRepo, logger)
	ledger := usecase.NewPaymentLedger(paymentRepo, logger)
	voucherUC := usecase.NewVoucherUseCase(
		usecase.VoucherConfig{CountryCode: cfg.Billing.CountryCode, Validity: cfg.Billing.VoucherValidity},
		voucherRepo, paymentRepo, packageRepo, sessionRepo, tm, logger,
	)
	reconcileUC := usecase.NewReconciliationUseCase(
		usecase.ReconcileConfig{
			CountryCode:      cfg.Billing.CountryCode,
			GatewayTimeout:   cfg.Mpesa.Timeout,
			VerifyGrace:      cfg.Billing.VerifyGrace,
			InitiateLimit:    cfg.Billing.InitiateLimit,
			InitiateWindow:   cfg.Billing.InitiateWindow,
			AccountReference: cfg.Mpesa.AccountReference,
			Description:      cfg.Mpesa.Description,
		},
		packageUC, accountRepo, ledger, sessionUC, voucherUC, gateway, alerter,
		red.NewRateLimiter(redisClient), logger,
	)

	return &app{
		cfg:       cfg,
		log:       logger,
		pool:      pool,
		redis:     redisClient,
		locker:    red.NewLocker(redisClient),
		packages:  packageUC,
		sessions:  sessionUC,
		vouchers:  voucherUC,
		reconcile: reconcileUC,
	}, nil
}

func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.Warn().Err(err).Msg("close redis")
	}
	a.pool.Close()
}

func newGateway(cfg *config.Config, logger *zerolog.Logger) (adapter.PaymentGateway, error) {
	m := cfg.Mpesa
	if m.Provider == "noop" {
		logger.Warn().Msg("payment provider is noop; no real STK pushes will be sent")
		return payAdapters.NewNoopPaymentGateway(), nil
	}
	g, err := payAdapters.NewDarajaGateway(payAdapters.DarajaConfig{
		BaseURL:         m.BaseURL,
		ConsumerKey:     m.ConsumerKey,
		ConsumerSecret:  m.ConsumerSecret,
		ShortCode:       m.ShortCode,
		Passkey:         m.Passkey,
		CallbackURL:     m.CallbackURL,
		TransactionType: m.TransactionType,
		Timeout:         m.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("daraja gateway: %w", err)
	}
	logger.Info().Str("environment", m.Environment).Str("shortcode", m.ShortCode).Msg("payment provider: daraja")
	return g, nil
}

func newAlerter(cfg *config.Config, logger *zerolog.Logger) (adapter.OperatorAlerter, error) {
	if cfg.Alert.TelegramToken == "" || cfg.Alert.ChatID == 0 {
		return tele.NewNoopAlerter(logger), nil
	}
	bot, err := tele.NewAlertBot(cfg.Alert.TelegramToken, cfg.Alert.ChatID, logger)
	if err != nil {
		return nil, fmt.Errorf("telegram alerts: %w", err)
	}
	return bot, nil
}
