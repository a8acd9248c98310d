package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guibarbosadev/focus-badge/internal/auth"
	"github.com/guibarbosadev/focus-badge/internal/service"
	"github.com/guibarbosadev/focus-badge/pkg/health"
	"github.com/guibarbosadev/focus-badge/pkg/httputil"
	"github.com/guibarbosadev/focus-badge/pkg/middleware"
)

// RouterConfig carries everything NewRouter wires into the route tree.
type RouterConfig struct {
	ServiceName    string
	AuthService    *service.AuthService
	SessionService *service.SessionService
	Tokens         *auth.TokenService
	Health         *health.Handler
	Logger         *slog.Logger

	CORS          middleware.CORSConfig
	AuthRateLimit middleware.RateLimitConfig

	// Gatherer backs /metrics. Defaults to the global registry.
	Gatherer prometheus.Gatherer

	PprofEnabled      bool
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all FocusBadge routes registered.
// Background goroutines started by the router stop when ctx is cancelled.
func NewRouter(ctx context.Context, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.CORS(cfg.CORS))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "FocusBadge API is running"})
	})

	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	if cfg.PprofEnabled {
		middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)
	}

	requireAuth := middleware.Auth(cfg.Tokens.Identity, cfg.AuthService.IsRevoked, logger)

	authHandler := NewAuthHandler(cfg.AuthService, logger)
	r.Route("/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.RateLimit(ctx, cfg.AuthRateLimit, logger))

		r.Post("/google", authHandler.GoogleLogin)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
	})

	sessionHandler := NewSessionHandler(cfg.SessionService, logger)
	r.Route("/sessions", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(requireAuth)

		r.Post("/", sessionHandler.Create)
		r.Get("/current-badge", sessionHandler.CurrentBadge)
		r.Post("/{id}/ping", sessionHandler.Ping)
		r.Patch("/{id}/status", sessionHandler.UpdateStatus)
	})

	r.With(middleware.CacheControl(0)).Get("/badge/{sessionId}", sessionHandler.Badge)

	return r
}
