package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRevocationTTL is used when the caller gives no horizon.
const DefaultRevocationTTL = 7 * 24 * time.Hour

// RevocationStore records tokens invalidated before their natural expiry.
type RevocationStore interface {
	// Revoke marks token invalid for ttl, or DefaultRevocationTTL when ttl <= 0.
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	// IsRevoked reports whether token is revoked and its horizon has not passed.
	IsRevoked(ctx context.Context, token string) (bool, error)
}

// MemoryRevocationStore keeps revocations in process memory. Entries are
// not shared between instances and are lost on restart.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

func (s *MemoryRevocationStore) Revoke(_ context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultRevocationTTL
	}
	s.mu.Lock()
	s.entries[token] = s.now().Add(ttl)
	s.mu.Unlock()
	return nil
}

// IsRevoked evicts the entry when its horizon has passed.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	horizon, ok := s.entries[token]
	if !ok {
		return false, nil
	}
	if s.now().After(horizon) {
		delete(s.entries, token)
		return false, nil
	}
	return true, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryRevocationStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for token, horizon := range s.entries {
		if now.After(horizon) {
			delete(s.entries, token)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (s *MemoryRevocationStore) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *MemoryRevocationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

const revokedKeyPrefix = "focusbadge:revoked:"

// RedisRevocationStore shares revocations between instances. Keys hold a
// SHA-256 digest of the token and expire with the horizon.
type RedisRevocationStore struct {
	client redis.Cmdable
}

func NewRedisRevocationStore(client redis.Cmdable) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func revokedKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return revokedKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *RedisRevocationStore) Revoke(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultRevocationTTL
	}
	if err := s.client.Set(ctx, revokedKey(token), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
