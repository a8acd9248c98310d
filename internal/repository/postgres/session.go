package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/pkg/database"
	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
)

// SessionRepository implements repository.SessionRepository using PostgreSQL.
// The device is stored as JSONB.
type SessionRepository struct {
	db database.DBTX
}

func NewSessionRepository(db database.DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, owner_id, blocked_sites, start_date, last_checked_at, end_date, status, device, exists_locally, created_at`

func (r *SessionRepository) Create(ctx context.Context, s *domain.Session) error {
	device, err := json.Marshal(s.Device)
	if err != nil {
		return fmt.Errorf("marshal device: %w", err)
	}

	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err = r.db.Exec(ctx, query,
		s.ID,
		s.OwnerID,
		s.BlockedSites,
		s.StartDate,
		s.LastCheckedAt,
		s.EndDate,
		string(s.Status),
		device,
		s.ExistsLocally,
		s.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("Session already exists")
		}
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanSession(ctx, query, id)
}

func (r *SessionRepository) LatestByOwner(ctx context.Context, ownerID string) (*domain.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.scanSession(ctx, query, ownerID)
}

func (r *SessionRepository) Touch(ctx context.Context, id, ownerID string, at time.Time) (*domain.Session, error) {
	query := `
		UPDATE sessions
		SET last_checked_at = $1
		WHERE id = $2 AND owner_id = $3
		RETURNING ` + sessionColumns

	s, err := r.scanSession(ctx, query, at, id, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("touch session: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) SetStatus(ctx context.Context, id, ownerID string, status domain.SessionStatus, endDate *time.Time) (*domain.Session, error) {
	query := `
		UPDATE sessions
		SET status = $1, end_date = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING ` + sessionColumns

	s, err := r.scanSession(ctx, query, string(status), endDate, id, ownerID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("set session status: %w", err)
	}
	return s, nil
}

func (r *SessionRepository) scanSession(ctx context.Context, query string, args ...any) (*domain.Session, error) {
	var (
		s      domain.Session
		status string
		device []byte
	)
	err := r.db.QueryRow(ctx, query, args...).Scan(
		&s.ID,
		&s.OwnerID,
		&s.BlockedSites,
		&s.StartDate,
		&s.LastCheckedAt,
		&s.EndDate,
		&status,
		&device,
		&s.ExistsLocally,
		&s.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	s.Status = domain.SessionStatus(status)
	if len(device) > 0 {
		if err := json.Unmarshal(device, &s.Device); err != nil {
			return nil, fmt.Errorf("decode session device: %w", err)
		}
	}
	if s.BlockedSites == nil {
		s.BlockedSites = []string{}
	}
	return &s, nil
}
