// Package main is the entrypoint for the Silent Cry API gateway.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/silentcry/silentcry/internal/alerts"
	"github.com/silentcry/silentcry/internal/config"
	"github.com/silentcry/silentcry/internal/handler"
	"github.com/silentcry/silentcry/internal/logging"
	"github.com/silentcry/silentcry/internal/metrics"
	"github.com/silentcry/silentcry/internal/middleware"
	"github.com/silentcry/silentcry/internal/redisclient"
	"github.com/silentcry/silentcry/internal/repository"
	"github.com/silentcry/silentcry/internal/server"
	"github.com/silentcry/silentcry/internal/service"
	"github.com/silentcry/silentcry/internal/upstream"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadGateway()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "gateway")

	checks := map[string]handler.HealthChecker{
		"database": nil,
		"redis":    nil,
	}

	// Database is optional; it is only reported by /readyz.
	var repo *repository.Repository
	if cfg.DatabaseURL != "" {
		repo, err = repository.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database",
				slog.String("error", logging.SanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", logging.RedactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		checks["database"] = repo
		logger.Info("connected to database")
	}

	// Redis carries alerts from the AI service. Without it the feed only
	// sees alerts published in this process.
	var bus alerts.Bus
	var redisClient *redisclient.Client
	if cfg.RedisURL != "" {
		redisClient, err = redisclient.Connect(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to Redis",
				slog.String("error", logging.SanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", logging.RedactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		bus = alerts.NewRedisBus(redisClient.Redis(), logger)
		checks["redis"] = redisClient
		logger.Info("connected to Redis")
	} else {
		bus = alerts.NewMemoryBus()
		logger.Warn("REDIS_URL not set, alert feed is process-local")
	}

	metricsRecorder := metrics.NewInMemory()

	httpClient := upstream.NewHTTPClient(cfg.UpstreamTimeout)
	authClient := upstream.NewAuthClient(cfg.AuthServiceURL, httpClient)
	aiClient := upstream.NewAIClient(cfg.AIServiceURL, httpClient)
	gatewayService := service.NewGatewayService(authClient, authClient, aiClient, metricsRecorder)

	hub := alerts.NewHub(logger, metricsRecorder)
	feedCtx, stopFeed := context.WithCancel(ctx)
	go hub.Run(feedCtx)
	go func() {
		if err := hub.Pump(feedCtx, bus); err != nil {
			logger.Error("alert feed stopped", "error", err)
		}
	}()

	r := setupRouter(cfg, gatewayService, hub, checks, metricsRecorder, logger)

	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	if redisClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if repo != nil {
		srv.OnShutdown("database", func(ctx context.Context) error {
			repo.Close()
			return nil
		})
	}
	srv.OnShutdown("alert feed", func(ctx context.Context) error {
		stopFeed()
		return bus.Close()
	})

	logger.Info("starting gateway",
		"port", cfg.AppPort,
		"auth_service", cfg.AuthServiceURL,
		"ai_service", cfg.AIServiceURL,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	cfg *config.Gateway,
	svc *service.GatewayService,
	hub *alerts.Hub,
	checks map[string]handler.HealthChecker,
	snapshotter metrics.Snapshotter,
	logger *slog.Logger,
) *chi.Mux {
	h := handler.New(cfg.AuthServiceURL, cfg.AIServiceURL)
	healthHandler := handler.NewHealthHandler(checks)
	metricsHandler := handler.NewMetricsHandler(snapshotter)
	gatewayHandler := handler.NewGatewayHandler(svc, cfg.AuthServiceURL, cfg.AIServiceURL, cfg.MaxRequestBodySize, logger)
	feedHandler := handler.NewFeedHandler(svc, hub, cfg.GetCORSAllowedOrigins(), logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, middleware.RecoveryConfig{
		IsDevelopment: cfg.IsDevelopment(),
		WriteError:    handler.WritePanic,
	}))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	// Probes and metadata
	r.Get("/", h.Info)
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)
	r.Get("/api/status", gatewayHandler.Status)

	// Proxied routes. Body limits are enforced by the handler.
	r.Post("/login", gatewayHandler.Login)
	r.Post("/analyze", gatewayHandler.Analyze)

	// Alert feed
	r.Get("/ws", feedHandler.ServeWS)

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
