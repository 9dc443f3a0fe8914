package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shortwave/internal/auth"
	"shortwave/internal/config"
	httpHandler "shortwave/internal/handler/http"
	"shortwave/internal/ratelimit"
	"shortwave/internal/service"
	"shortwave/internal/shortid"
	"shortwave/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg.App.LogLevel, cfg.App.LogFormat)
	appLogger.Info("Starting shortwave",
		"environment", cfg.App.Environment,
		"port", cfg.Server.Port,
		"store", cfg.Store.Driver,
	)

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, appLogger *logger.Logger) error {
	ctx := context.Background()

	stores, err := openStores(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer stores.Close()

	// Dependency graph: store → services → handler → router.
	generator := shortid.New(cfg.App.ShortIDLength, cfg.App.ShortIDMaxAttempts)
	clickRecorder := service.NewClickRecorder(stores.links, appLogger.Logger)
	resolver := service.NewResolver(stores.links, clickRecorder, appLogger.Logger)
	linkService := service.NewLinkService(stores.links, generator, appLogger.Logger)

	verifier := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, appLogger.Logger)

	var limiter httpHandler.RateLimiter
	if cfg.App.RateLimitEnabled {
		client, err := stores.redisClient(cfg)
		if err != nil {
			appLogger.Warn("Rate limiting disabled, Redis unavailable", "error", err)
		} else {
			limiter = ratelimit.New(client, cfg.App.RateLimitPerMinute, time.Minute)
			appLogger.Info("Rate limiting enabled", "per_minute", cfg.App.RateLimitPerMinute)
		}
	}

	handler := httpHandler.NewHandler(linkService, resolver, stores.links, appLogger.Logger, cfg.App.BaseURL)
	router := httpHandler.NewRouter(handler, httpHandler.RouterConfig{
		Logger:         appLogger.Logger,
		Auth:           verifier.Middleware,
		RateLimiter:    limiter,
		EnableMetrics:  cfg.App.EnableMetrics,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		appLogger.Info("Server starting", "address", server.Addr, "base_url", cfg.App.BaseURL)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		appLogger.Info("Shutting down server", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	appLogger.Info("Server exited gracefully")
	return nil
}
