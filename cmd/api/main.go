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
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-agent/cmd/mainconfig"
	"github.com/wolfman30/appointment-agent/internal/api/router"
	"github.com/wolfman30/appointment-agent/internal/app/bootstrap"
	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/archive"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/internal/http/handlers"
	"github.com/wolfman30/appointment-agent/internal/observability/metrics"
	"github.com/wolfman30/appointment-agent/internal/webchat"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

func main() {
	// Local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting appointment-agent API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"llm_provider", cfg.LLMProvider,
	)

	ctx := context.Background()
	metricsHandler, dialogueMetrics := setupMetrics()

	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer redisClient.Close()
	}

	store, err := bootstrap.BuildAppointmentStore(ctx, cfg, pool, logger)
	if err != nil {
		logger.Error("failed to initialize appointment store", "error", err)
		os.Exit(1)
	}
	sessions, history := bootstrap.BuildSessionStores(cfg, redisClient, pool, logger)

	bedrock, err := mainconfig.BedrockClient(ctx, cfg)
	if err != nil {
		logger.Error("failed to load aws config", "error", err)
		os.Exit(1)
	}
	var converser bootstrap.BedrockConverser
	if bedrock != nil {
		converser = bedrock
	}
	llmOracle, closeOracle, err := bootstrap.BuildOracle(ctx, cfg, converser, logger)
	if err != nil {
		logger.Error("failed to initialize llm oracle", "error", err)
		os.Exit(1)
	}
	defer closeOracle()

	archiver, err := setupArchiver(ctx, cfg, history, logger)
	if err != nil {
		logger.Error("failed to initialize transcript archive", "error", err)
		os.Exit(1)
	}

	agent := dialogue.NewAgent(dialogue.Deps{
		Oracle:   llmOracle,
		Resolver: appointments.NewResolver(store, logger),
		Engine:   appointments.NewEngine(store, logger, appointments.WithBookingObserver(dialogueMetrics)),
		Sessions: sessions,
		Turns:    history,
		Archiver: archiver,
		Metrics:  dialogueMetrics,
		Logger:   logger,
	})

	r := router.New(&router.Config{
		Logger:             logger,
		Chat:               handlers.NewChatHandler(agent, sessions, history, logger),
		Appointments:       handlers.NewAppointmentsHandler(store, logger),
		WebChat:            webchat.NewHandler(agent, history, logger),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TurnRateLimit:      cfg.TurnRateLimit,
		TurnBurst:          cfg.TurnRateBurst,
		HealthChecks:       healthChecks(pool, redisClient),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics builds a private registry so /metrics only exposes what this
// process registers.
func setupMetrics() (http.Handler, *metrics.DialogueMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	dm := metrics.NewDialogueMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), dm
}

// connectPostgresPool returns nil when no database is configured or reachable;
// callers fall back to in-memory stores.
func connectPostgresPool(ctx context.Context, databaseURL string, logger *logging.Logger) *pgxpool.Pool {
	if databaseURL == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		logger.Warn("postgres pool unavailable; using in-memory stores", "error", err)
		return nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		logger.Warn("postgres ping failed; using in-memory stores", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

func setupArchiver(ctx context.Context, cfg *appconfig.Config, history archive.TranscriptReader, logger *logging.Logger) (dialogue.Archiver, error) {
	client, err := mainconfig.S3Client(ctx, cfg)
	if err != nil || client == nil {
		return nil, err
	}
	return bootstrap.BuildArchiver(cfg, client, history, logger), nil
}

func healthChecks(pool *pgxpool.Pool, redisClient *redis.Client) map[string]router.HealthCheck {
	checks := map[string]router.HealthCheck{}
	if pool != nil {
		checks["postgres"] = pool.Ping
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}
