package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/guibarbosadev/focus-badge/internal/auth"
	"github.com/guibarbosadev/focus-badge/internal/config"
	"github.com/guibarbosadev/focus-badge/internal/event"
	handler "github.com/guibarbosadev/focus-badge/internal/handler/http"
	"github.com/guibarbosadev/focus-badge/internal/repository"
	"github.com/guibarbosadev/focus-badge/internal/repository/memory"
	"github.com/guibarbosadev/focus-badge/internal/repository/postgres"
	"github.com/guibarbosadev/focus-badge/internal/service"
	"github.com/guibarbosadev/focus-badge/migrations"
	"github.com/guibarbosadev/focus-badge/pkg/database"
	"github.com/guibarbosadev/focus-badge/pkg/health"
	pkgkafka "github.com/guibarbosadev/focus-badge/pkg/kafka"
	"github.com/guibarbosadev/focus-badge/pkg/tracing"
)

// ServiceName labels logs, metrics and traces.
const ServiceName = "focusbadge"

const revocationSweepInterval = time.Minute

// App wires together all dependencies and runs the FocusBadge API.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	pool     *pgxpool.Pool
	redis    *redis.Client
	producer *pkgkafka.Producer
	sweeper  *auth.MemoryRevocationStore

	handler        http.Handler
	httpServer     *http.Server
	tracerShutdown func(context.Context) error

	// background stops goroutines owned by the router and the sweeper.
	background context.Context
	stop       context.CancelFunc
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources opened before a failure are released.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	a.background, a.stop = context.WithCancel(context.Background())

	if err := a.build(ctx); err != nil {
		a.release()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg, logger := a.cfg, a.logger

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, cfg.Tracing(ServiceName))
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	a.tracerShutdown = tracerShutdown

	healthHandler := health.NewHandler()

	users, sessions, err := a.buildRepositories(ctx, healthHandler)
	if err != nil {
		return err
	}

	revocations, err := a.buildRevocationStore(ctx, healthHandler)
	if err != nil {
		return err
	}

	// A nil Publisher keeps event publishing off.
	var publisher event.Publisher
	if cfg.KafkaEnabled {
		a.producer = pkgkafka.NewProducer(pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers), logger)
		publisher = a.producer
		healthHandler.RegisterNonCritical("kafka", a.producer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(publisher, logger)

	// Google keys are fetched once per attempt behind a breaker.
	verifier, err := auth.NewGoogleVerifier(ctx, auth.NewGoogleKeysClient(logger), cfg.GoogleCertsURL, cfg.GoogleClientID, logger)
	if err != nil {
		return fmt.Errorf("init google verifier: %w", err)
	}
	if cfg.GoogleClientID == "" {
		logger.Warn("GOOGLE_CLIENT_ID is empty; id token audience is not checked")
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(users, verifier, tokens, revocations, eventProducer, logger)
	sessionService := service.NewSessionService(sessions, eventProducer, logger)

	a.handler = handler.NewRouter(a.background, handler.RouterConfig{
		ServiceName:       ServiceName,
		AuthService:       authService,
		SessionService:    sessionService,
		Tokens:            tokens,
		Health:            healthHandler,
		Logger:            logger,
		CORS:              cfg.CORS(),
		AuthRateLimit:     cfg.AuthRateLimit(),
		PprofEnabled:      cfg.PprofEnabled,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

func (a *App) buildRepositories(ctx context.Context, h *health.Handler) (repository.UserRepository, repository.SessionRepository, error) {
	if a.cfg.StoreDriver != config.DriverPostgres {
		a.logger.Warn("using in-memory storage; data is lost on restart")
		return memory.NewUserRepository(), memory.NewSessionRepository(), nil
	}

	pgCfg := a.cfg.Postgres()
	pool, err := database.NewPostgresPool(ctx, &pgCfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	a.pool = pool
	a.logger.Info("connected to PostgreSQL",
		slog.String("host", pgCfg.Host),
		slog.Int("port", pgCfg.Port),
		slog.String("database", pgCfg.DBName),
	)

	if err := database.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool, ServiceName); err != nil {
		a.logger.Warn("pool metrics not registered", slog.String("error", err.Error()))
	}

	if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	a.logger.Info("database migrations completed")

	h.RegisterCritical("postgres", pool.Ping)
	return postgres.NewUserRepository(pool), postgres.NewSessionRepository(pool), nil
}

func (a *App) buildRevocationStore(ctx context.Context, h *health.Handler) (auth.RevocationStore, error) {
	if a.cfg.RevocationDriver != config.DriverRedis {
		a.sweeper = auth.NewMemoryRevocationStore()
		return a.sweeper, nil
	}

	client, err := database.NewRedisClient(ctx, a.cfg.Redis())
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.redis = client
	a.logger.Info("connected to Redis", slog.String("addr", client.Options().Addr))

	h.RegisterCritical("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return auth.NewRedisRevocationStore(client), nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	if a.sweeper != nil {
		go a.sweeper.Run(a.background, revocationSweepInterval)
	}

	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		_ = a.Shutdown()
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", ln.Addr().String()),
		)
		if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		_ = a.Shutdown()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Background goroutines
// 3. Tracer (flush pending spans from drained requests)
// 4. Kafka producer, Redis, PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	// 1. Drain in-flight HTTP requests.
	if a.httpServer != nil {
		httpCtx, httpCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer httpCancel()
		if err := a.httpServer.Shutdown(httpCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	errs = append(errs, a.release()...)

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}

// release stops everything except the HTTP server. Safe to call on a
// partially built App.
func (a *App) release() []error {
	var errs []error

	a.stop()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.tracerShutdown = nil
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.producer = nil
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
		a.redis = nil
	}

	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return errs
}
