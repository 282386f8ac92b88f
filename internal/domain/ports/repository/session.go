package repository

import (
	"context"
	"time"

	"github.com/kileldylan/afrinet-project/internal/domain/model"
)

// SessionRepository is the port for access session persistence.
type SessionRepository interface {
	// Create inserts s. When another session already references the same
	// payment it returns domain.ErrAlreadyExists and inserts nothing.
	Create(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Session, error)
	FindByPaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Session, error)
	// FindActiveByPhone returns the latest session still flagged active for phone.
	FindActiveByPhone(ctx context.Context, tx Tx, phone string) (*model.Session, error)
	ListByPhone(ctx context.Context, tx Tx, phone string, limit int) ([]*model.Session, error)
	ListActive(ctx context.Context, tx Tx, limit int) ([]*model.Session, error)

	// ExpireDue flips every active session whose expiry is at or before now
	// to expired and returns the affected sessions.
	ExpireDue(ctx context.Context, tx Tx, now time.Time) ([]*model.Session, error)
	// Expire and Disconnect only touch a session that is still active; the
	// bool reports whether this call changed it.
	Expire(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	Disconnect(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
}
