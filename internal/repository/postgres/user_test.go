package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guibarbosadev/focus-badge/internal/domain"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewUserRepository(mock), mock
}

func candidateUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:          "u-new",
		Email:       "ada@example.com",
		Name:        "Ada",
		AvatarURL:   "https://example.com/ada.png",
		Provider:    domain.ProviderGoogle,
		ProviderID:  "google-sub-1",
		CreatedAt:   now,
		LastLoginAt: &now,
	}
}

func userColumns() []string {
	return []string{
		"id", "email", "name", "avatar_url", "provider",
		"provider_id", "created_at", "last_login_at",
	}
}

func userRow(u *domain.User) *pgxmock.Rows {
	return pgxmock.NewRows(userColumns()).AddRow(
		u.ID, u.Email, u.Name, u.AvatarURL, u.Provider,
		u.ProviderID, u.CreatedAt, u.LastLoginAt,
	)
}

func expectUpsert(mock pgxmock.PgxPoolIface, c *domain.User) *pgxmock.ExpectedQuery {
	return mock.ExpectQuery("INSERT INTO users .+ ON CONFLICT \\(provider, provider_id\\) DO UPDATE").
		WithArgs(
			c.ID, c.Email, c.Name, c.AvatarURL, c.Provider,
			c.ProviderID, c.CreatedAt, c.LastLoginAt,
		)
}

func TestUserRepository_UpsertByProvider_Insert(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	c := candidateUser()
	expectUpsert(mock, c).WillReturnRows(userRow(c))

	got, err := repo.UpsertByProvider(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, c, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpsertByProvider_ExistingKeepsIdentity(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	c := candidateUser()
	stored := *c
	stored.ID = "u-original"
	stored.CreatedAt = c.CreatedAt.Add(-72 * time.Hour)
	expectUpsert(mock, c).WillReturnRows(userRow(&stored))

	got, err := repo.UpsertByProvider(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "u-original", got.ID)
	assert.Equal(t, stored.CreatedAt, got.CreatedAt)
	assert.Equal(t, c.Email, got.Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpsertByProvider_DBError(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	defer mock.Close()

	c := candidateUser()
	dbErr := errors.New("connection reset")
	expectUpsert(mock, c).WillReturnError(dbErr)

	got, err := repo.UpsertByProvider(context.Background(), c)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "upsert user")
	assert.NoError(t, mock.ExpectationsWereMet())
}
