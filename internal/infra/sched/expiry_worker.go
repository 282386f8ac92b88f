package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/kileldylan/afrinet-project/internal/infra/metrics"
	red "github.com/kileldylan/afrinet-project/internal/infra/redis"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

const expiryLockKey = "lock:sched:session_expiry"

// ExpiryWorker periodically expires sessions whose window has passed. With a
// locker, only one replica sweeps per tick.
type ExpiryWorker struct {
	interval time.Duration
	sessions usecase.SessionUseCase
	locker   red.Locker
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, sessions usecase.SessionUseCase, locker red.Locker, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		sessions: sessions,
		locker:   locker,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("expiry worker error")
			}
		}
	}
}

// RunOnce performs a single sweep and returns how many sessions it expired.
func (w *ExpiryWorker) RunOnce(ctx context.Context) (int, error) {
	release, ok, err := acquire(ctx, w.locker, expiryLockKey, w.interval)
	if err != nil || !ok {
		return 0, err
	}
	defer release()

	expired, err := w.sessions.ExpireDue(ctx)
	n := len(expired)
	if n > 0 {
		metrics.IncSessionsExpired(n)
		w.log.Info().Int("count", n).Msg("expired sessions")
	}
	return n, err
}

// acquire takes the named lock when a locker is configured. ok is false when
// another holder has it; that is not an error.
func acquire(ctx context.Context, locker red.Locker, key string, ttl time.Duration) (release func(), ok bool, err error) {
	if locker == nil {
		return func() {}, true, nil
	}
	token, err := locker.TryLock(ctx, key, ttl)
	if errors.Is(err, red.ErrLockHeld) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return func() {
		// a fresh context so cancellation does not leave the lock behind
		uctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = locker.Unlock(uctx, key, token)
	}, true, nil
}
