//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kileldylan/afrinet-project/internal/domain"
	"github.com/kileldylan/afrinet-project/internal/domain/model"
	"github.com/kileldylan/afrinet-project/internal/usecase"
)

func TestSessionUseCase_GrantFor(t *testing.T) {
	ctx := context.Background()
	pkg := &model.Package{ID: "pkg-1", Code: "P1", Price: decimal.NewFromInt(20), DurationValue: 30, DurationUnit: model.DurationMinutes}

	completed := func() *model.Payment {
		now := time.Now()
		return &model.Payment{
			ID: "pay-1", AccountID: "acct-1", Phone: "254712345678", PackageID: strPtr("pkg-1"),
			TransactionID: "ck-1", Receipt: strPtr("QAB123"), Status: model.PaymentStatusCompleted,
			IsFinished: true, IsSuccessful: true, CompletedAt: &now,
		}
	}

	t.Run("should grant a session with the receipt as voucher code", func(t *testing.T) {
		repo := NewMockSessionRepo()
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(pkg), newTestLogger())

		s, err := uc.GrantFor(ctx, completed())
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s.VoucherCode != "QAB123" || s.DurationMinutes != 30 || s.PaymentID == nil || *s.PaymentID != "pay-1" {
			t.Errorf("unexpected session: %+v", s)
		}
		if s.AccountID == nil || *s.AccountID != "acct-1" {
			t.Errorf("expected account acct-1, got %v", s.AccountID)
		}
	})

	t.Run("should return the existing session unchanged", func(t *testing.T) {
		repo := NewMockSessionRepo()
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(pkg), newTestLogger())
		first, _ := uc.GrantFor(ctx, completed())
		second, err := uc.GrantFor(ctx, completed())
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if first.ID != second.ID || !first.ExpiresAt.Equal(second.ExpiresAt) {
			t.Error("expected the same session on repeat grant")
		}
	})

	t.Run("should return the winner when the insert loses a race", func(t *testing.T) {
		repo := NewMockSessionRepo()
		winner := &model.Session{ID: "winner", PaymentID: strPtr("pay-1"), Phone: "254712345678", IsActive: true, Status: model.SessionStatusActive}
		calls := 0
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(pkg), newTestLogger())
		repo.BeforeCreate = func() {
			calls++
			repo.Put(winner)
		}

		s, err := uc.GrantFor(ctx, completed())
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s.ID != "winner" || calls != 1 {
			t.Errorf("expected winner's session, got %s", s.ID)
		}
	})

	t.Run("should reject payments that are not completed", func(t *testing.T) {
		uc := usecase.NewSessionUseCase(NewMockSessionRepo(), NewMockPackageRepo(pkg), newTestLogger())
		p := completed()
		p.Status = model.PaymentStatusPending
		if _, err := uc.GrantFor(ctx, p); !errors.Is(err, domain.ErrPaymentNotCompleted) {
			t.Errorf("expected ErrPaymentNotCompleted, got %v", err)
		}
	})

	t.Run("should report a missing or dangling package", func(t *testing.T) {
		uc := usecase.NewSessionUseCase(NewMockSessionRepo(), NewMockPackageRepo(), newTestLogger())
		p := completed()
		if _, err := uc.GrantFor(ctx, p); !errors.Is(err, domain.ErrMissingPackage) {
			t.Errorf("expected ErrMissingPackage for dangling package, got %v", err)
		}
		p.PackageID = nil
		if _, err := uc.GrantFor(ctx, p); !errors.Is(err, domain.ErrMissingPackage) {
			t.Errorf("expected ErrMissingPackage for nil package, got %v", err)
		}
	})
}

func TestSessionUseCase_Lifecycle(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	active := func(id string, created, expires time.Time) *model.Session {
		return &model.Session{ID: id, Phone: "254712345678", PackageID: "pkg-1", CreatedAt: created,
			ExpiresAt: expires, IsActive: true, Status: model.SessionStatusActive}
	}

	t.Run("ActiveByPhone expires stale sessions lazily", func(t *testing.T) {
		repo := NewMockSessionRepo()
		repo.Put(active("old", now.Add(-2*time.Hour), now.Add(-time.Hour)))
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(), newTestLogger())

		_, err := uc.ActiveByPhone(ctx, "254712345678")
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		s, _ := repo.FindByID(ctx, nil, "old")
		if s.Status != model.SessionStatusExpired || s.IsActive {
			t.Errorf("expected session to be expired, got %s", s.Status)
		}
	})

	t.Run("ActiveByPhone returns the live session", func(t *testing.T) {
		repo := NewMockSessionRepo()
		repo.Put(active("live", now, now.Add(time.Hour)))
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(), newTestLogger())

		s, err := uc.ActiveByPhone(ctx, "254712345678")
		if err != nil || s.ID != "live" {
			t.Errorf("expected live session, got %v err=%v", s, err)
		}
	})

	t.Run("ExpireDue flips only due sessions", func(t *testing.T) {
		repo := NewMockSessionRepo()
		repo.Put(active("due", now.Add(-2*time.Hour), now.Add(-time.Minute)))
		repo.Put(active("live", now, now.Add(time.Hour)))
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(), newTestLogger())

		expired, err := uc.ExpireDue(ctx)
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if len(expired) != 1 || expired[0].ID != "due" {
			t.Errorf("expected only 'due' to expire, got %+v", expired)
		}
	})

	t.Run("Disconnect happens exactly once", func(t *testing.T) {
		repo := NewMockSessionRepo()
		repo.Put(active("s1", now, now.Add(time.Hour)))
		uc := usecase.NewSessionUseCase(repo, NewMockPackageRepo(), newTestLogger())

		s, err := uc.Disconnect(ctx, "s1")
		if err != nil {
			t.Fatalf("expected no error, but got: %v", err)
		}
		if s.Status != model.SessionStatusDisconnected || s.DisconnectedAt == nil {
			t.Errorf("unexpected session after disconnect: %+v", s)
		}
		if _, err := uc.Disconnect(ctx, "s1"); !errors.Is(err, domain.ErrSessionNotActive) {
			t.Errorf("expected ErrSessionNotActive on second disconnect, got %v", err)
		}
		if _, err := uc.Disconnect(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}
