package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/idtoken"
	"google.golang.org/api/option"

	"github.com/guibarbosadev/focus-badge/internal/domain"
	"github.com/guibarbosadev/focus-badge/pkg/httpclient"
)

const DefaultGoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}

var (
	// ErrInvalidAssertion means the identity token was rejected.
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	// ErrVerifierUnavailable means signing keys could not be obtained.
	ErrVerifierUnavailable = errors.New("identity verifier unavailable")
)

// Doer sends a request. *httpclient.CircuitBreakerClient satisfies it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// NewGoogleKeysClient returns the client used to fetch Google signing keys.
// Each fetch is a single attempt; repeated failures open the breaker.
func NewGoogleKeysClient(logger *slog.Logger) *httpclient.CircuitBreakerClient {
	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	return httpclient.NewCircuitBreakerClient(
		httpclient.New(cfg),
		httpclient.DefaultCircuitBreakerConfig("google-jwks"),
		logger,
	)
}

// GoogleVerifier validates Google ID tokens with idtoken. Signature, audience
// and expiry checks plus key caching (per the max-age Google advertises) are
// done by idtoken; the issuer and subject are checked here.
type GoogleVerifier struct {
	validator *idtoken.Validator
	audience  string
	logger    *slog.Logger
}

// NewGoogleVerifier builds a verifier whose key fetches go to certsURL
// through client. An empty audience skips the aud check.
func NewGoogleVerifier(ctx context.Context, client Doer, certsURL, audience string, logger *slog.Logger) (*GoogleVerifier, error) {
	if certsURL == "" {
		certsURL = DefaultGoogleCertsURL
	}
	httpClient := &http.Client{Transport: &certsTransport{client: client, certsURL: certsURL}}

	validator, err := idtoken.NewValidator(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create id token validator: %w", err)
	}
	return &GoogleVerifier{
		validator: validator,
		audience:  audience,
		logger:    logger,
	}, nil
}

// Verify checks idToken and returns the identity it asserts. Failures to
// obtain signing keys wrap ErrVerifierUnavailable, everything else wraps
// ErrInvalidAssertion.
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (*domain.ExternalIdentity, error) {
	failure := &fetchFailure{}
	payload, err := v.validator.Validate(context.WithValue(ctx, fetchFailureKey{}, failure), idToken, v.audience)
	if err != nil {
		if failure.err != nil || errors.Is(err, ErrVerifierUnavailable) {
			v.logger.WarnContext(ctx, "google signing keys unavailable", slog.String("error", err.Error()))
			if failure.err != nil {
				err = failure.err
			}
			return nil, fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidAssertion, err)
	}

	if !validIssuer(payload.Issuer) {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidAssertion, payload.Issuer)
	}
	if payload.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidAssertion)
	}

	return &domain.ExternalIdentity{
		Provider:   domain.ProviderGoogle,
		Subject:    payload.Subject,
		Email:      stringClaim(payload.Claims, "email"),
		Name:       stringClaim(payload.Claims, "name"),
		PictureURL: stringClaim(payload.Claims, "picture"),
	}, nil
}

func validIssuer(iss string) bool {
	for _, want := range googleIssuers {
		if iss == want {
			return true
		}
	}
	return false
}

func stringClaim(claims map[string]any, name string) string {
	s, _ := claims[name].(string)
	return s
}

type fetchFailureKey struct{}

// fetchFailure records why a key fetch made during one Verify call failed.
type fetchFailure struct {
	err error
}

// certsTransport answers the validator's key lookups from certsURL through
// client. Transport errors and non-2xx responses are failures.
type certsTransport struct {
	client   Doer
	certsURL string
}

func (t *certsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	out, err := http.NewRequestWithContext(ctx, http.MethodGet, t.certsURL, http.NoBody)
	if err != nil {
		return nil, recordFailure(ctx, fmt.Errorf("create certs request: %w", err))
	}
	resp, err := t.client.Do(ctx, out)
	if err != nil {
		return nil, recordFailure(ctx, fmt.Errorf("fetch certs: %w", err))
	}
	if err := httpclient.CheckResponse(resp); err != nil {
		return nil, recordFailure(ctx, err)
	}
	return resp, nil
}

func recordFailure(ctx context.Context, err error) error {
	if f, ok := ctx.Value(fetchFailureKey{}).(*fetchFailure); ok {
		f.err = err
	}
	return fmt.Errorf("%w: %w", ErrVerifierUnavailable, err)
}
