package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/guibarbosadev/focus-badge/pkg/middleware"
)

const (
	tokenIssuer = "focusbadge"

	// DefaultTokenExpiry applies when no expiry is configured.
	DefaultTokenExpiry = 7 * 24 * time.Hour
)

// ErrInvalidToken covers bad signatures, malformed tokens and expiry alike.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer token claims.
type Claims struct {
	UserID   string `json:"userId"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// TokenService issues and validates HS256 bearer tokens. It keeps no
// per-token state.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenService(secret string, expiry time.Duration) *TokenService {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

// Issue signs a token for userID.
func (s *TokenService) Issue(userID, provider string) (string, error) {
	now := s.now().UTC()
	claims := &Claims{
		UserID:   userID,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate checks signature and expiry. Every failure wraps ErrInvalidToken.
func (s *TokenService) Validate(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identity adapts Validate to the auth middleware.
func (s *TokenService) Identity(token string) (*middleware.Identity, error) {
	claims, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	return &middleware.Identity{UserID: claims.UserID, Provider: claims.Provider}, nil
}

// RemainingLifetime returns how long a token stays valid, or zero when it
// cannot be parsed or has already expired. The signature is not checked.
func (s *TokenService) RemainingLifetime(token string) time.Duration {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil || claims.ExpiresAt == nil {
		return 0
	}
	if left := claims.ExpiresAt.Sub(s.now()); left > 0 {
		return left
	}
	return 0
}
