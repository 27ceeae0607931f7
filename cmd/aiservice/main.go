// Package main is the entrypoint for the AI analysis service.
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
	"github.com/silentcry/silentcry/internal/server"
	"github.com/silentcry/silentcry/internal/service"
	"github.com/silentcry/silentcry/internal/upstream"
)

// formOverhead leaves room for multipart boundaries and headers on top of
// the two files.
const formOverhead = 1 << 20

func main() {
	ctx := context.Background()

	cfg, err := config.LoadAI()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat).With("service", "ai")

	var publisher alerts.Publisher
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
		publisher = alerts.NewRedisBus(redisClient.Redis(), logger)
		logger.Info("connected to Redis")
	} else {
		logger.Warn("REDIS_URL not set, alerts will not be published")
	}

	analysisService := service.NewAnalysisService(service.AnalysisConfig{
		MinAudioScore: cfg.MinAudioScore,
		MinVideoScore: cfg.MinVideoScore,
		MaxFileSize:   cfg.MaxFileSize,
	}, publisher, logger, metrics.NewNoop())

	// Per-call deadlines come from AUTH_TIMEOUT in the handler.
	validator := upstream.NewAuthClient(cfg.AuthServiceURL, upstream.NewHTTPClient(0))
	analysisHandler := handler.NewAnalysisHandler(analysisService, validator, cfg.AuthServiceURL, cfg.AuthTimeout, logger)

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger, middleware.RecoveryConfig{IsDevelopment: cfg.IsDevelopment()}))
	r.Use(middleware.CORS(corsCfg))

	r.With(middleware.MaxBodySize(2*cfg.MaxFileSize+formOverhead)).Post("/analyze", analysisHandler.Analyze)
	r.Get("/health", analysisHandler.Health)

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

	if redisClient != nil {
		srv.OnShutdown("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}

	logger.Info("starting AI service",
		"port", cfg.AppPort,
		"auth_service", cfg.AuthServiceURL,
		"min_audio_score", cfg.MinAudioScore,
		"min_video_score", cfg.MinVideoScore,
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
