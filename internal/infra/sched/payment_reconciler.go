package sched

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
	"github.com/kileldylan/afrinet-project/internal/infra/worker"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

const reconcileLockKey = "lock:sched:payment_reconcile"

// ReconcileSummary counts the outcome of one reconciliation pass.
type ReconcileSummary struct {
	Scanned   int
	Completed int
	Failed    int
	Errors    int
}

// PaymentReconciler periodically re-verifies pending payments whose callback
// never arrived, through the same path as a client-driven verify.
type PaymentReconciler struct {
	uc       usecase.ReconciliationUseCase
	pool     *worker.Pool
	locker   red.Locker
	interval time.Duration
	batch    int
	log      *zerolog.Logger
}

func NewPaymentReconciler(uc usecase.ReconciliationUseCase, pool *worker.Pool, locker red.Locker, interval time.Duration, batch int, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	if batch <= 0 {
		batch = 50
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{uc: uc, pool: pool, locker: locker, interval: interval, batch: batch, log: &l}
}

func (w *PaymentReconciler) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Int("batch", w.batch).Msg("Starting payment reconciler")
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping payment reconciler")
			return
		case <-t.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("reconcile pass failed")
			}
		}
	}
}

// RunOnce reconciles one batch of stale pending payments and waits for it to finish.
func (w *PaymentReconciler) RunOnce(ctx context.Context) (ReconcileSummary, error) {
	var sum ReconcileSummary
	release, ok, err := acquire(ctx, w.locker, reconcileLockKey, w.interval)
	if err != nil || !ok {
		return sum, err
	}
	defer release()

	pending, err := w.uc.StalePending(ctx, w.batch)
	if err != nil {
		return sum, err
	}
	sum.Scanned = len(pending)

	var completed, failed, errs int32
	// Buffered to the batch size so a task finishing after RunOnce has
	// returned never blocks.
	done := make(chan struct{}, len(pending))
	submitted := 0
	var submitErr error
	for _, p := range pending {
		p := p
		task := func(ctx context.Context) error {
			defer func() { done <- struct{}{} }()
			res, err := w.uc.Reconcile(ctx, p)
			if err != nil {
				atomic.AddInt32(&errs, 1)
				w.log.Warn().Err(err).Str("transaction_id", p.TransactionID).Msg("reconcile failed")
				return nil
			}
			if !res.Applied {
				return nil
			}
			metrics.IncPayment(string(res.Payment.Status), "reconciler")
			switch res.Payment.Status {
			case model.PaymentStatusCompleted:
				atomic.AddInt32(&completed, 1)
				if res.Session != nil {
					metrics.IncSessionGranted("payment")
				}
			case model.PaymentStatusFailed:
				atomic.AddInt32(&failed, 1)
			}
			w.log.Info().
				Str("transaction_id", p.TransactionID).
				Str("status", string(res.Payment.Status)).
				Msg("reconciled payment")
			return nil
		}
		if err := w.pool.SubmitWait(ctx, task); err != nil {
			submitErr = err
			break
		}
		submitted++
	}

	// Wait for the submitted tasks; on cancellation, tasks still queued in the
	// pool are abandoned.
	for n := 0; n < submitted; n++ {
		select {
		case <-done:
		case <-ctx.Done():
			return w.summary(sum, &completed, &failed, &errs), ctx.Err()
		}
	}
	return w.summary(sum, &completed, &failed, &errs), submitErr
}

func (w *PaymentReconciler) summary(sum ReconcileSummary, completed, failed, errs *int32) ReconcileSummary {
	sum.Completed = int(atomic.LoadInt32(completed))
	sum.Failed = int(atomic.LoadInt32(failed))
	sum.Errors = int(atomic.LoadInt32(errs))
	return sum
}
