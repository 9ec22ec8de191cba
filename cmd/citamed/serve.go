package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/citamed/citamed/internal/config"
	"github.com/citamed/citamed/internal/domain/clinical"
	"github.com/citamed/citamed/internal/domain/dashboard"
	"github.com/citamed/citamed/internal/domain/identity"
	"github.com/citamed/citamed/internal/domain/scheduling"
	"github.com/citamed/citamed/internal/platform/auth"
	"github.com/citamed/citamed/internal/platform/db"
	"github.com/citamed/citamed/internal/platform/metrics"
	"github.com/citamed/citamed/internal/platform/middleware"
	"github.com/citamed/citamed/internal/platform/notify"
)

const requestTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CitaMed API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg != nil && cfg.IsDev() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := newLogger(cfg)

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Redis (optional: doctor directory cache and shared sign-out revocations)
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		rdb = redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, doctor cache falls through to postgres")
		} else {
			logger.Info().Msg("connected to redis")
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	var revocations auth.Revocations = auth.NewMemoryRevocations()
	if rdb != nil {
		revocations = auth.NewRedisRevocations(rdb)
	}

	e := newServer(cfg, logger, reg, m, sessionLookup(cfg, revocations))
	e.GET("/health/db", db.HealthHandler(pool))
	apiV1 := e.Group("/api/v1")
	auth.RegisterSessionRoutes(apiV1, revocations, cfg.SessionCookie)
	registerDomains(e, apiV1, pool, rdb, cfg, m, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("session_mode", cfg.SessionMode()).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer builds the echo instance with the global middleware chain and the
// operational endpoints. The session lookup runs once per request, before
// anything that reads the session.
func newServer(cfg *config.Config, logger zerolog.Logger, reg *prometheus.Registry, m *metrics.Metrics, lookup auth.SessionLookup) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestTimeout(requestTimeout))
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Metrics(m))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
	}))
	e.Use(auth.SessionMiddleware(lookup))
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	return e
}

// sessionLookup picks how sessions are verified for the configured mode.
func sessionLookup(cfg *config.Config, revocations auth.Revocations) auth.SessionLookup {
	if cfg.SessionMode() == "development" {
		return auth.DevLookup{}
	}
	return auth.NewTokenLookup(auth.JWTConfig{
		Issuer:      cfg.AuthIssuer,
		Audience:    cfg.AuthAudience,
		JWKSURL:     cfg.AuthJWKSURL,
		SigningKey:  []byte(cfg.AuthSigningKey),
		CookieName:  cfg.SessionCookie,
		Revocations: revocations,
	})
}

// emailSender returns the SendGrid sender, or a logging stub when email is
// not configured.
func emailSender(cfg *config.Config, logger zerolog.Logger) notify.EmailSender {
	if cfg.EmailEnabled() {
		return notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.MailFrom,
			FromName:  cfg.MailFromName,
		}, logger)
	}
	logger.Warn().Msg("SENDGRID_API_KEY not set, confirmation emails are only logged")
	return notify.NewStubEmailSender(logger)
}

func registerDomains(e *echo.Echo, apiV1 *echo.Group, pool *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) {
	// Identity
	var doctors identity.DoctorRepository = identity.NewDoctorRepoPG(pool)
	if rdb != nil {
		doctors = identity.NewCachedDoctorRepository(doctors, rdb, cfg.DoctorCacheTTL, m, logger)
	}
	identitySvc := identity.NewService(pool, identity.NewPatientRepoPG(pool), doctors)

	// Scheduling
	mailer := notify.NewAppointmentMailer(emailSender(cfg, logger), m, logger).In(identitySvc.Location())
	schedulingSvc := scheduling.NewService(
		scheduling.NewAppointmentRepoPG(pool),
		identitySvc,
		scheduling.NewMailNotifier(mailer, identitySvc),
		m,
		logger,
	)

	// Clinical
	clinicalSvc := clinical.NewService(pool, clinical.NewRepoPG(pool), schedulingSvc, m)

	identity.NewHandler(identitySvc).RegisterRoutes(apiV1)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)
	clinical.NewHandler(clinicalSvc, identitySvc).RegisterRoutes(apiV1)

	dashboard.NewHandler(identitySvc, schedulingSvc, clinicalSvc).RegisterRoutes(e)
}
