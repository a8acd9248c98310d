package repository

import (
	"context"
	"time"

	"github.com/guibarbosadev/focus-badge/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	// UpsertByProvider inserts candidate, or when a user with the same
	// (Provider, ProviderID) exists, refreshes its email, name, avatar and
	// last login. ID and CreatedAt of an existing user are kept. The stored
	// user is returned.
	UpsertByProvider(ctx context.Context, candidate *domain.User) (*domain.User, error)
}

// SessionRepository persists focus sessions.
type SessionRepository interface {
	// Create inserts a session. A duplicate id returns an AlreadyExists error.
	Create(ctx context.Context, session *domain.Session) error

	// GetByID returns ErrNotFound when no session has the id.
	GetByID(ctx context.Context, id string) (*domain.Session, error)

	// Touch sets lastCheckedAt of a session owned by ownerID and returns the
	// stored session. No other field is written. ErrNotFound when no session
	// matches both id and owner.
	Touch(ctx context.Context, id, ownerID string, at time.Time) (*domain.Session, error)

	// SetStatus writes status and endDate of a session owned by ownerID and
	// returns the stored session. lastCheckedAt is left as stored.
	SetStatus(ctx context.Context, id, ownerID string, status domain.SessionStatus, endDate *time.Time) (*domain.Session, error)

	// LatestByOwner returns the most recently created session of ownerID.
	LatestByOwner(ctx context.Context, ownerID string) (*domain.Session, error)
}
