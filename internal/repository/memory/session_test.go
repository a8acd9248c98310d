package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
)

func newSession(id, owner string, createdAt time.Time) *domain.Session {
	return &domain.Session{
		ID:           id,
		OwnerID:      owner,
		BlockedSites: []string{"news.example"},
		StartDate:    createdAt,
		Status:       domain.StatusActive,
		Device:       domain.Device{DeviceID: "dev-1"},
		CreatedAt:    createdAt,
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession("s-1", "u-1", time.Now().UTC())

	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, s, got)
}

func TestSessionRepository_CreateDuplicate(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession("s-1", "u-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, s))

	err := repo.Create(ctx, newSession("s-1", "u-2", time.Now().UTC()))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", got.OwnerID)
}

func TestSessionRepository_GetMissing(t *testing.T) {
	_, err := NewSessionRepository().GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSessionRepository_StoredValuesAreIsolated(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	s := newSession("s-1", "u-1", time.Now().UTC())
	require.NoError(t, repo.Create(ctx, s))

	s.BlockedSites[0] = "changed.example"
	s.Status = domain.StatusRemoved

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"news.example"}, got.BlockedSites)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestSessionRepository_TouchWritesOnlyLastCheckedAt(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newSession("s-1", "u-1", now)))

	end := now.Add(time.Minute)
	_, err := repo.SetStatus(ctx, "s-1", "u-1", domain.StatusRemoved, &end)
	require.NoError(t, err)

	got, err := repo.Touch(ctx, "s-1", "u-1", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, now.Add(2*time.Minute), *got.LastCheckedAt)
	assert.Equal(t, domain.StatusRemoved, got.Status)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, end, *got.EndDate)
	assert.Equal(t, []string{"news.example"}, got.BlockedSites)
}

func TestSessionRepository_SetStatusKeepsLastCheckedAt(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, newSession("s-1", "u-1", now)))

	_, err := repo.Touch(ctx, "s-1", "u-1", now.Add(time.Minute))
	require.NoError(t, err)

	got, err := repo.SetStatus(ctx, "s-1", "u-1", domain.StatusStained, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusStained, got.Status)
	assert.Nil(t, got.EndDate)
	require.NotNil(t, got.LastCheckedAt)
	assert.Equal(t, now.Add(time.Minute), *got.LastCheckedAt)

	stored, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestSessionRepository_WritesRequireOwner(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newSession("s-1", "u-1", time.Now().UTC())))

	_, err := repo.Touch(ctx, "s-1", "u-2", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.SetStatus(ctx, "s-1", "u-2", domain.StatusRemoved, nil)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	_, err = repo.Touch(ctx, "ghost", "u-1", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	got, err := repo.GetByID(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)
	assert.Nil(t, got.LastCheckedAt)
}

func TestSessionRepository_LatestByOwner(t *testing.T) {
	repo := NewSessionRepository()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newSession("old", "u-1", base)))
	require.NoError(t, repo.Create(ctx, newSession("new", "u-1", base.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, newSession("other", "u-2", base.Add(2*time.Hour))))

	got, err := repo.LatestByOwner(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.ID)

	_, err = repo.LatestByOwner(ctx, "u-3")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
