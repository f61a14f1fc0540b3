package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	appLogger "github.com/FACorreiaa/inphantil-api/app/logger"
	appMiddleware "github.com/FACorreiaa/inphantil-api/app/middleware"
	"github.com/FACorreiaa/inphantil-api/app/observability/metrics"
	"github.com/FACorreiaa/inphantil-api/app/tracer"
	"github.com/FACorreiaa/inphantil-api/config"
	"github.com/FACorreiaa/inphantil-api/internal/container"
	"github.com/FACorreiaa/inphantil-api/internal/router"
)

const serviceName = "inphantil-api"

// @title                      API Inphantil
// @version                    1.0.0
// @description                Authentication core of the Inphantil catalogue API.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the token.
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(cfg.Mode, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	telemetry, err := tracer.InitTracingAndMetrics(serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	if err = metrics.InitAppMetrics(); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	c, err := container.NewContainer(ctx, &cfg, logger, metrics.Get())
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	defer c.Close()

	mux := chi.NewMux()
	appMiddleware.Use(mux, logger, appMiddleware.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Timeout:        cfg.Server.Timeout,
	})
	mux.Mount("/", router.SetupRouter(&router.Config{
		AuthHandler:            c.AuthHandler,
		AuthenticateMiddleware: c.Authenticate,
		Production:             cfg.IsProduction(),
	}))

	servers := []*http.Server{newServer(cfg.Server.HTTPPort, mux, logger)}
	if cfg.Handlers.Prometheus.Enabled {
		metricsMux := chi.NewMux()
		metricsMux.Handle("/metrics", telemetry.MetricsHandler)
		servers = append(servers, newServer(cfg.Handlers.Prometheus.Port, metricsMux, logger))
	}

	g, gCtx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		g.Go(func() error {
			logger.Info("Starting HTTP server", slog.String("address", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("shutdown %s: %w", srv.Addr, err))
			}
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func newServer(port string, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}
