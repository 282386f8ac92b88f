package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kileldylan/afrinet-project/internal/infra/sched"
	"github.com/kileldylan/afrinet-project/internal/infra/web"
	"github.com/kileldylan/afrinet-project/internal/infra/worker"
)

// One-shot runs of the background jobs, for cron or manual recovery.

func newSweepCommand(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire sessions whose access window has passed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmdContext(cmd)
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := sched.NewExpiryWorker(a.cfg.Scheduler.ExpiryInterval, a.sessions, a.locker, a.log).RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("expired %d session(s)\n", n)
			return nil
		},
	}
}

func newReconcileCommand(flags *rootFlags) *cobra.Command {
	var batch int
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Query the provider for pending payments whose callback never arrived",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmdContext(cmd)
			a, err := newApp(ctx, flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if batch <= 0 {
				batch = a.cfg.Scheduler.ReconcileBatch
			}
			pool := worker.NewPool(a.cfg.Scheduler.Workers, a.log)
			pool.Start(ctx)
			defer pool.Stop()

			r := sched.NewPaymentReconciler(a.reconcile, pool, a.locker, a.cfg.Scheduler.ReconcileInterval, batch, a.log)
			sum, err := r.RunOnce(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d completed=%d failed=%d errors=%d\n", sum.Scanned, sum.Completed, sum.Failed, sum.Errors)
			return nil
		},
	}
	cmd.Flags().IntVar(&batch, "batch", 0, "maximum payments to reconcile (default from config)")
	return cmd
}

func newAdminTokenCommand(flags *rootFlags) *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Print a signed admin JWT for the /api/v1/admin routes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := loadConfig(flags)
			if err != nil {
				return err
			}
			auth := web.NewAuthManager(cfg.Security.JWTSecret, cfg.Security.SecureCookie, "", cfg.Security.AdminTokenTTL)
			token, err := auth.Issue(subject)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "admin", "token subject, usually the operator's name")
	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
