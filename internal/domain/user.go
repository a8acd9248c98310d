package domain

import "time"

// ProviderGoogle is the only identity provider.
const ProviderGoogle = "google"

// User is an account created on first sign-in and refreshed on every
// subsequent one. ID and CreatedAt never change after the first insert.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	AvatarURL   string     `json:"avatarUrl,omitempty"`
	Provider    string     `json:"provider"`
	ProviderID  string     `json:"providerId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
}

// ExternalIdentity is a verified identity assertion from a provider.
type ExternalIdentity struct {
	Provider   string
	Subject    string
	Email      string
	Name       string
	PictureURL string
}

// LoginResult is returned by a successful sign-in.
type LoginResult struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
