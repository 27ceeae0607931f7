// Package main is the entrypoint for the token-issuing auth service.
package main

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/silentcry/silentcry/internal/config"
	"github.com/silentcry/silentcry/internal/handler"
	"github.com/silentcry/silentcry/internal/logging"
	"github.com/silentcry/silentcry/internal/middleware"
	"github.com/silentcry/silentcry/internal/server"
	"github.com/silentcry/silentcry/internal/token"
)

// maxLoginBody bounds the ignored login payload.
const maxLoginBody = 64 << 10

func main() {
	cfg, err := config.LoadAuth()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "auth")

	issuer, err := token.NewIssuer(cfg.JWTSecret)
	if err != nil {
		logger.Error("failed to create token issuer", "error", err)
		os.Exit(1)
	}

	authHandler := handler.NewAuthHandler(issuer, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, middleware.RecoveryConfig{IsDevelopment: cfg.IsDevelopment()}))

	r.With(middleware.MaxBodySize(maxLoginBody)).Post("/login", authHandler.Login)
	r.Get("/validate", authHandler.Validate)
	r.Get("/health", authHandler.Health)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	logger.Info("starting auth service",
		"port", cfg.AppPort,
		"token_ttl", token.TTL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
