package memory

import (
	"context"
	"sync"
	"time"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
)

// SessionRepository keeps sessions in a map keyed by id. Stored values are
// copied in and out so callers never share state with the store.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*domain.Session)}
}

func (r *SessionRepository) Create(_ context.Context, s *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[s.ID]; ok {
		return apperrors.AlreadyExists("Session already exists")
	}
	r.sessions[s.ID] = cloneSession(s)
	return nil
}

func (r *SessionRepository) GetByID(_ context.Context, id string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *SessionRepository) Touch(_ context.Context, id, ownerID string, at time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.owned(id, ownerID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	stored.Touch(at)
	return cloneSession(stored), nil
}

func (r *SessionRepository) SetStatus(_ context.Context, id, ownerID string, status domain.SessionStatus, endDate *time.Time) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.owned(id, ownerID)
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	stored.Status = status
	stored.EndDate = clonePtr(endDate)
	return cloneSession(stored), nil
}

// owned must be called with mu held.
func (r *SessionRepository) owned(id, ownerID string) (*domain.Session, bool) {
	s, ok := r.sessions[id]
	if !ok || s.OwnerID != ownerID {
		return nil, false
	}
	return s, true
}

func (r *SessionRepository) LatestByOwner(_ context.Context, ownerID string) (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest *domain.Session
	for _, s := range r.sessions {
		if s.OwnerID != ownerID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	if latest == nil {
		return nil, apperrors.ErrNotFound
	}
	return cloneSession(latest), nil
}
