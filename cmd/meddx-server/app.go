package main

import (
	"context"
	crypto_rand "crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/meddx/meddx/internal/config"
	"github.com/meddx/meddx/internal/domain/account"
	"github.com/meddx/meddx/internal/domain/diagnosis"
	"github.com/meddx/meddx/internal/platform/auth"
	"github.com/meddx/meddx/internal/platform/db"
	"github.com/meddx/meddx/internal/platform/middleware"
	"github.com/meddx/meddx/internal/platform/modelregistry"
	"github.com/meddx/meddx/internal/platform/openapi"
	"github.com/meddx/meddx/internal/platform/telemetry"
)

const maxRequestBody = "64K"

// app holds the wired services behind the server and CLI commands.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool   *pgxpool.Pool
	sqlite *account.SQLiteRepo
	checks map[string]db.Check

	tokens    *auth.TokenIssuer
	revoked   *auth.RevocationStore
	accounts  *account.Service
	registry  *modelregistry.FileRegistry
	diagnosis *diagnosis.Service
	metrics   *telemetry.Provider
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, checks: map[string]db.Check{}}

	key, generated, err := resolveSigningKey(cfg.SessionSigningKey)
	if err != nil {
		return nil, err
	}
	if generated {
		logger.Warn().Msg("SESSION_SIGNING_KEY not set; using a random key, sessions will not survive a restart")
	}
	a.tokens, err = auth.NewTokenIssuer(key, cfg.SessionIssuer, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	a.revoked = auth.NewRevocationStore(5 * time.Minute)
	a.tokens.SetRevocations(a.revoked)

	repo, err := a.openAccountRepo(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.accounts = account.NewService(repo, a.tokens, logger.With().Str("component", "account").Logger())

	if cfg.BootstrapAdminUsername != "" {
		created, err := a.accounts.EnsureAdmin(ctx, cfg.BootstrapAdminUsername, cfg.BootstrapAdminPassword)
		if err != nil {
			a.Close()
			return nil, err
		}
		if created {
			logger.Info().Str("username", cfg.BootstrapAdminUsername).Msg("bootstrap admin created")
		}
	}

	a.registry, a.diagnosis, err = newDiagnosis(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.metrics = telemetry.NewProvider(telemetry.Config{
		ServiceName:    "meddx",
		ServiceVersion: version,
		Environment:    cfg.Env,
	})
	a.diagnosis.SetObserver(a.metrics)
	a.metrics.RegisterGauge("meddx_models_loaded", "Number of disease models currently loaded.", func() float64 {
		loaded := 0
		for _, s := range a.registry.Statuses() {
			if s.Loaded {
				loaded++
			}
		}
		return float64(loaded)
	})
	a.metrics.RegisterGauge("meddx_revoked_sessions", "Logged-out sessions not yet expired.", func() float64 {
		return float64(a.revoked.Count())
	})
	if a.pool != nil {
		pool := a.pool
		a.metrics.RegisterGauge("db_pool_acquired_connections", "Connections in use.", func() float64 {
			return float64(pool.Stat().AcquiredConns())
		})
		a.metrics.RegisterGauge("db_pool_idle_connections", "Idle connections.", func() float64 {
			return float64(pool.Stat().IdleConns())
		})
	}
	return a, nil
}

// newDiagnosis builds the model registry and pipeline. It needs no
// credential store, so the offline CLI commands use it directly.
func newDiagnosis(cfg *config.Config, logger zerolog.Logger) (*modelregistry.FileRegistry, *diagnosis.Service, error) {
	manifest, err := modelregistry.LoadManifest(cfg.ModelManifest)
	if err != nil {
		return nil, nil, err
	}

	catalog := diagnosis.DefaultCatalog()
	counts := make(map[string]int)
	for _, s := range catalog.Schemas() {
		counts[s.Key()] = s.FeatureCount()
	}
	for _, d := range manifest.Diseases() {
		if _, ok := counts[d]; !ok {
			logger.Warn().Str("disease", d).Msg("manifest declares a model for an unknown disease")
		}
	}

	registry := modelregistry.NewFileRegistry(manifest, modelregistry.Options{
		RuntimeLib:    cfg.ONNXRuntimeLib,
		FeatureCounts: counts,
		Logger:        logger.With().Str("component", "models").Logger(),
	})
	svc := diagnosis.NewService(catalog, registry, cfg.ModelTimeout,
		logger.With().Str("component", "diagnosis").Logger())
	return registry, svc, nil
}

func (a *app) openAccountRepo(ctx context.Context) (account.Repository, error) {
	switch a.cfg.CredentialStore {
	case config.StorePostgres:
		pool, err := db.NewPool(ctx, a.cfg.DatabaseURL, db.PoolOptions{
			MaxConns: a.cfg.DBMaxConns,
			MinConns: a.cfg.DBMinConns,
			AppName:  "meddx",
		})
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.checks["credential_store"] = db.PoolCheck(pool)
		a.logger.Info().Msg("connected to postgres credential store")
		return account.NewPostgresRepo(pool), nil

	case config.StoreSQLite:
		repo, err := account.OpenSQLite(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.sqlite = repo
		a.checks["credential_store"] = repo.Ping
		a.logger.Info().Str("path", a.cfg.SQLitePath).Msg("opened sqlite credential store")
		return repo, nil
	}

	a.logger.Warn().Msg("using in-memory credential store; accounts are lost on restart")
	return account.NewMemoryRepo(), nil
}

func (a *app) echo() *echo.Echo {
	cfg := a.cfg
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(a.metrics.MetricsMiddleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.BodyLimit(maxRequestBody))

	if cfg.IsDev() {
		e.Use(auth.DevSessionMiddleware(a.tokens))
	} else {
		e.Use(auth.SessionMiddleware(a.tokens))
	}
	e.Use(middleware.Audit(a.logger, nil))

	e.GET("/health", db.HealthHandler(a.checks, a.pool))
	e.GET("/metrics", a.metrics.PrometheusHandler())

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           middleware.DefaultRateLimitConfig().IdleTTL,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1 := e.Group("/api/v1", middleware.RequestTimeout(cfg.RequestTimeout), middleware.RateLimit(rateLimitCfg))

	diagnosis.NewHandler(a.diagnosis).RegisterRoutes(apiV1)
	account.NewHandler(a.accounts).RegisterRoutes(apiV1)
	openapi.NewGenerator(a.diagnosis.Catalog(), version, "/").RegisterRoutes(apiV1)

	admin := apiV1.Group("/admin", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/models", modelregistry.StatusHandler(a.registry))
	admin.POST("/models/warm", modelregistry.WarmHandler(a.registry))

	return e
}

func (a *app) Close() {
	if a.revoked != nil {
		a.revoked.Close()
	}
	if a.registry != nil {
		if err := a.registry.Close(); err != nil {
			a.logger.Error().Err(err).Msg("close models")
		}
	}
	if a.sqlite != nil {
		a.sqlite.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}

// resolveSigningKey returns the configured key, or a random 32-byte key when
// none is set. Config validation refuses an empty key outside development.
func resolveSigningKey(value string) ([]byte, bool, error) {
	if value != "" {
		return []byte(value), false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("generate session signing key: %w", err)
	}
	return key, true, nil
}
