package postgres

import (
	"context"
	"fmt"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/pkg/database"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const upsertUserQuery = `
	INSERT INTO users (id, email, name, avatar_url, provider, provider_id, created_at, last_login_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (provider, provider_id) DO UPDATE
	SET email = EXCLUDED.email,
	    name = EXCLUDED.name,
	    avatar_url = EXCLUDED.avatar_url,
	    last_login_at = EXCLUDED.last_login_at
	RETURNING id, email, name, avatar_url, provider, provider_id, created_at, last_login_at`

// UpsertByProvider runs a single INSERT ... ON CONFLICT so concurrent first
// logins of the same account resolve to one row.
func (r *UserRepository) UpsertByProvider(ctx context.Context, c *domain.User) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRow(ctx, upsertUserQuery,
		c.ID,
		c.Email,
		c.Name,
		c.AvatarURL,
		c.Provider,
		c.ProviderID,
		c.CreatedAt,
		c.LastLoginAt,
	).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Provider,
		&u.ProviderID,
		&u.CreatedAt,
		&u.LastLoginAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &u, nil
}
