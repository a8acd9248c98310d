package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/internal/event"
	"github.com/guibarbosadev/focus-badge/internal/repository"
	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
)

const sessionNotFound = "Session not found"

// SessionService implements focus session registration, heartbeats, status
// changes and badge lookups.
type SessionService struct {
	sessions repository.SessionRepository
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionService(sessions repository.SessionRepository, producer *event.Producer, logger *slog.Logger) *SessionService {
	return &SessionService{
		sessions: sessions,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateSessionInput holds an already validated session registration.
type CreateSessionInput struct {
	ID            string
	BlockedSites  []string
	StartDate     time.Time
	LastCheckedAt *time.Time
	EndDate       *time.Time
	Status        domain.SessionStatus
	Device        domain.Device
	ExistsLocally bool
}

// Create registers a session owned by ownerID.
func (s *SessionService) Create(ctx context.Context, ownerID string, input CreateSessionInput) (*domain.Session, error) {
	if !input.Status.IsValid() {
		return nil, apperrors.InvalidInput("Invalid status")
	}

	blocked := input.BlockedSites
	if blocked == nil {
		blocked = []string{}
	}

	session := &domain.Session{
		ID:            input.ID,
		OwnerID:       ownerID,
		BlockedSites:  blocked,
		StartDate:     input.StartDate.UTC(),
		LastCheckedAt: input.LastCheckedAt,
		EndDate:       input.EndDate,
		Status:        input.Status,
		Device:        input.Device,
		ExistsLocally: input.ExistsLocally,
		CreatedAt:     s.now().UTC(),
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create session: %w", err)
	}

	if err := s.producer.PublishSessionCreated(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.created event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "session created",
		slog.String("session_id", session.ID),
		slog.String("owner_id", ownerID),
		slog.String("status", string(session.Status)),
	)

	return session, nil
}

// Ping records a heartbeat on a session owned by ownerID. Only
// lastCheckedAt is written.
func (s *SessionService) Ping(ctx context.Context, ownerID, sessionID string) (*domain.Session, error) {
	if _, err := s.owned(ctx, ownerID, sessionID); err != nil {
		return nil, err
	}

	session, err := s.sessions.Touch(ctx, sessionID, ownerID, s.now().UTC())
	if err != nil {
		return nil, s.writeError(err, "touch session")
	}
	return session, nil
}

// SetStatus moves a session owned by ownerID to status. The status is
// checked before the session is loaded.
func (s *SessionService) SetStatus(ctx context.Context, ownerID, sessionID, status string) (*domain.Session, error) {
	if status == "" {
		return nil, apperrors.InvalidInput("Missing status")
	}
	next := domain.SessionStatus(status)
	if !next.IsValid() {
		return nil, apperrors.InvalidInput("Invalid status")
	}

	session, err := s.owned(ctx, ownerID, sessionID)
	if err != nil {
		return nil, err
	}

	previous := session.Status
	if err := session.Transition(next, s.now()); err != nil {
		return nil, apperrors.InvalidInput("Invalid status")
	}
	session, err = s.sessions.SetStatus(ctx, sessionID, ownerID, session.Status, session.EndDate)
	if err != nil {
		return nil, s.writeError(err, "set session status")
	}

	if err := s.producer.PublishSessionStatusChanged(ctx, session, previous); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish session.status_changed event",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "session status changed",
		slog.String("session_id", session.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(next)),
	)

	return session, nil
}

// GetBadge returns the public badge of any session. No ownership applies.
func (s *SessionService) GetBadge(ctx context.Context, sessionID string) (*domain.Badge, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	badge := session.Badge()
	return &badge, nil
}

// CurrentBadge returns the badge of ownerID's most recently created session.
func (s *SessionService) CurrentBadge(ctx context.Context, ownerID string) (*domain.Badge, error) {
	session, err := s.sessions.LatestByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound(sessionNotFound)
		}
		return nil, fmt.Errorf("get latest session: %w", err)
	}
	badge := session.Badge()
	return &badge, nil
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound(sessionNotFound)
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// owned loads a session and checks that ownerID owns it. A missing session
// is reported before a foreign one.
func (s *SessionService) owned(ctx context.Context, ownerID, sessionID string) (*domain.Session, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOwnedBy(ownerID) {
		return nil, apperrors.Forbidden("Forbidden")
	}
	return session, nil
}

// writeError maps a write that matched no row to 404.
func (s *SessionService) writeError(err error, op string) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return apperrors.NotFound(sessionNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
