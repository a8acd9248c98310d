package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/guibarbosadev/focus-badge/internal/auth"
	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/internal/event"
	"github.com/guibarbosadev/focus-badge/internal/repository"
	apperrors "github.com/guibarbosadev/focus-badge/pkg/errors"
	"github.com/guibarbosadev/focus-badge/pkg/tracing"
)

var tracer = tracing.Tracer("github.com/guibarbosadev/focus-badge/internal/service")

// IdentityVerifier checks a third-party identity assertion.
// *auth.GoogleVerifier satisfies it.
type IdentityVerifier interface {
	Verify(ctx context.Context, idToken string) (*domain.ExternalIdentity, error)
}

// AuthService signs users in with Google and revokes bearer tokens.
type AuthService struct {
	users    repository.UserRepository
	verifier IdentityVerifier
	tokens   *auth.TokenService
	revoked  auth.RevocationStore
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	verifier IdentityVerifier,
	tokens *auth.TokenService,
	revoked auth.RevocationStore,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		verifier: verifier,
		tokens:   tokens,
		revoked:  revoked,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// LoginWithGoogle verifies idToken, creates or refreshes the matching user
// and returns a bearer token for it.
func (s *AuthService) LoginWithGoogle(ctx context.Context, idToken string) (*domain.LoginResult, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, apperrors.InvalidInput("Missing idToken")
	}

	identity, err := s.verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	candidate := &domain.User{
		ID:          uuid.NewString(),
		Email:       identity.Email,
		Name:        identity.Name,
		AvatarURL:   identity.PictureURL,
		Provider:    identity.Provider,
		ProviderID:  identity.Subject,
		CreatedAt:   now,
		LastLoginAt: &now,
	}

	user, err := s.users.UpsertByProvider(ctx, candidate)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Provider)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.producer.PublishUserLoggedIn(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("provider", user.Provider),
	)

	return &domain.LoginResult{Token: token, User: user}, nil
}

func (s *AuthService) verify(ctx context.Context, idToken string) (*domain.ExternalIdentity, error) {
	ctx, span := tracer.Start(ctx, "auth.verify_google_token")
	defer span.End()

	identity, err := s.verifier.Verify(ctx, idToken)
	if err == nil {
		span.SetAttributes(attribute.String("auth.provider", identity.Provider))
		return identity, nil
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, "verification failed")
	if errors.Is(err, auth.ErrVerifierUnavailable) {
		return nil, apperrors.ServiceUnavailable(err)
	}

	s.logger.InfoContext(ctx, "google token rejected", slog.String("reason", err.Error()))
	return nil, apperrors.Unauthorized("Invalid Google token")
}

// Logout revokes token until it would have expired on its own.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return apperrors.Unauthorized("Missing Authorization header")
	}

	ttl := s.tokens.RemainingLifetime(token)
	if ttl <= 0 {
		ttl = auth.DefaultRevocationTTL
	}

	if err := s.revoked.Revoke(ctx, token, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out", slog.Duration("revoked_for", ttl))
	return nil
}

// IsRevoked reports whether token was logged out.
func (s *AuthService) IsRevoked(ctx context.Context, token string) (bool, error) {
	return s.revoked.IsRevoked(ctx, token)
}
