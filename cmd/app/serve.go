package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kileldylan/afrinet-project/internal/infra/api"
	"github.com/kileldylan/afrinet-project/internal/infra/api/apiv1"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	"github.com/kileldylan/afrinet-project/internal/infra/sched"
	"github.com/kileldylan/afrinet-project/internal/infra/web"
	"github.com/kileldylan/afrinet-project/internal/infra/worker"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), flags)
		},
	}
}

func runServe(parent context.Context, flags *rootFlags) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, flags)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg, logger := a.cfg, a.log

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit, cfg.Mpesa.Provider)

	// ---- Background workers ----
	pool := worker.NewPool(cfg.Scheduler.Workers, logger)
	pool.Start(ctx)
	defer pool.Stop()

	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, a.sessions, a.locker, logger)
	go func() { _ = expiry.Run(ctx) }()

	reconciler := sched.NewPaymentReconciler(a.reconcile, pool, a.locker, cfg.Scheduler.ReconcileInterval, cfg.Scheduler.ReconcileBatch, logger)
	go reconciler.Start(ctx)

	go reportPoolStats(ctx, a)

	// ---- HTTP ----
	public := apiv1.NewServer(apiv1.Deps{
		Reconcile:   a.reconcile,
		Sessions:    a.sessions,
		Vouchers:    a.vouchers,
		Packages:    a.packages,
		CountryCode: cfg.Billing.CountryCode,
		Currency:    cfg.Billing.Currency,
		Dev:         cfg.Runtime.Dev,
		Log:         logger,
	})
	auth := web.NewAuthManager(cfg.Security.JWTSecret, cfg.Security.SecureCookie, "", cfg.Security.AdminTokenTTL)
	admin := web.NewServer(a.sessions, a.vouchers, expiry, cfg.Security.AdminKey, auth, logger)

	handler := api.NewRouter(api.RouterConfig{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		CORSOrigin:     cfg.HTTP.CORSOrigin,
		Checks: map[string]api.Pinger{
			"postgres": a.pool,
			"redis":    a.redis,
		},
	}, public, admin, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// ---- Graceful shutdown ----
	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server error")
		stop()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	return nil
}

func reportPoolStats(ctx context.Context, a *app) {
	t := time.NewTicker(15 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st := a.pool.Stat()
			metrics.SetDBPoolStats(metrics.LedgerPoolStats{
				Acquired:      st.AcquiredConns(),
				Idle:          st.IdleConns(),
				Max:           st.MaxConns(),
				EmptyAcquires: st.EmptyAcquireCount(),
			})
		}
	}
}
