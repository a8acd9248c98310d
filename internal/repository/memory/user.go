package memory

import (
	"context"
	"sync"

	"github.com/guibarbosadev/focus-badge/internal/domain"
)

type providerKey struct {
	provider string
	subject  string
}

// UserRepository keeps users in a map keyed by (provider, provider id).
type UserRepository struct {
	mu    sync.Mutex
	users map[providerKey]*domain.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[providerKey]*domain.User)}
}

func (r *UserRepository) UpsertByProvider(_ context.Context, c *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := providerKey{provider: c.Provider, subject: c.ProviderID}
	existing, ok := r.users[key]
	if !ok {
		r.users[key] = cloneUser(c)
		return cloneUser(c), nil
	}

	existing.Email = c.Email
	existing.Name = c.Name
	existing.AvatarURL = c.AvatarURL
	existing.LastLoginAt = clonePtr(c.LastLoginAt)
	return cloneUser(existing), nil
}

// Len returns the number of stored users.
func (r *UserRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}
