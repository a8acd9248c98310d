// Package memory implements the repositories in process memory. Data does not
// survive a restart.
package memory

import "github.com/guibarbosadev/focus-badge/internal/domain"

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneSession(s *domain.Session) *domain.Session {
	c := *s
	c.BlockedSites = append([]string{}, s.BlockedSites...)
	c.LastCheckedAt = clonePtr(s.LastCheckedAt)
	c.EndDate = clonePtr(s.EndDate)
	return &c
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.LastLoginAt = clonePtr(u.LastLoginAt)
	return &c
}
