package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/generator"
	"github.com/stemsi/speaking-backend/internal/handler"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/router"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/telemetry"
	"github.com/stemsi/speaking-backend/internal/validator"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting speaking backend")

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if cfg.OpenAIEndpoint == "" || cfg.OpenAIAPIKey == "" {
		log.Warn().Msg("Azure OpenAI endpoint or key not set; generation calls will fail")
	}

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Tracing ───────────────────────────────────────────────────────
	shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTelEnabled,
		ServiceName:   cfg.ServiceName,
		CollectorAddr: cfg.OTelCollector,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Tracing disabled")
	}

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	var questionCache service.QuestionPageCache
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, question pages will not be cached")
	} else {
		defer rdb.Close()
		questionCache = repository.NewQuestionCache(rdb, cfg.QuestionCacheTTL)
	}

	m := metrics.New("speaking")

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	speakingRepo := repository.NewSpeakingTestRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	gen := generator.NewAzureClient(generator.Config{
		Endpoint:   cfg.OpenAIEndpoint,
		APIKey:     cfg.OpenAIAPIKey,
		APIVersion: cfg.OpenAIAPIVersion,
		Deployment: cfg.OpenAIDeployment,
		Timeout:    cfg.GenerationTimeout,
	}, m, log)

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	authService := service.NewAuthService(userRepo, service.NewPasswordHasher(cfg.BcryptCost), tokens, log)
	userService := service.NewUserService(userRepo)
	questionService := service.NewQuestionService(questionRepo, questionCache, gen, cfg.GenerationConcurrency, m, log)
	speakingService := service.NewSpeakingTestService(speakingRepo)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:     handler.NewAuthHandler(authService, log),
		User:     handler.NewUserHandler(userService, log),
		Question: handler.NewQuestionHandler(questionService, log),
		Speaking: handler.NewSpeakingTestHandler(speakingService, log),
		WS:       handler.NewWSHandler(questionService, log, cfg.AllowedOrigins),
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokens, handlers, cfg, m, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// Batches can hold a request open for a full generation timeout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.GenerationTimeout+5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tracer shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
