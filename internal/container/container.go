package container

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/inphantil-api/app/db"
	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/config"
	"github.com/FACorreiaa/inphantil-api/internal/api/auth"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *slog.Logger
	Pool        *pgxpool.Pool
	Store       auth.CredentialStore
	AuthService auth.AuthService
	AuthHandler *auth.HandlerImpl
	// Authenticate guards the protected routes.
	Authenticate func(http.Handler) http.Handler
}

// NewContainer initializes the credential store selected by
// repositories.driver and everything that depends on it.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.AppMetrics) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	var store auth.CredentialStore
	switch cfg.Repositories.Driver {
	case config.DriverPostgres:
		pool, err := initPostgres(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		store = auth.NewPostgresAuthRepo(pool, logger, m)
	case config.DriverMemory:
		logger.Warn("Using in-memory credential store; users are lost on restart")
		store = auth.NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown repositories.driver %q", cfg.Repositories.Driver)
	}
	if cfg.Auth.UserCacheTTL > 0 {
		store = auth.NewCachedStore(store, cfg.Auth.UserCacheTTL)
	}
	c.Store = store

	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost, cfg.Auth.MaxConcurrentHashes)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	secret := []byte(cfg.Auth.SecretKey)
	codec := auth.NewTokenCodec()
	authService := auth.NewAuthService(store, hasher, codec, auth.ServiceConfig{
		Secret:            secret,
		TokenTTL:          cfg.Auth.TokenTTL,
		StoreTimeout:      cfg.Repositories.StoreTimeout,
		MinPasswordLength: cfg.Auth.MinPasswordLength,
	}, logger, m)

	c.AuthService = authService
	c.AuthHandler = auth.NewAuthHandlerImpl(authService, logger)
	c.Authenticate = auth.Authenticate(logger, secret, codec, m)
	return c, nil
}

func initPostgres(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}

	if !database.WaitForDB(ctx, pool, logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready")
	}

	if err = database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		pool.Close()
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		return nil, err
	}
	return pool, nil
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}
