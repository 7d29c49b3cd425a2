package bootstrap

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/internal/session"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || !cfg.UseRedis() {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; falling back to in-memory sessions", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildAppointmentStore picks the Postgres store when a pool is available and
// seeds whichever store is chosen from the CSV at cfg.SeedCSVPath.
func BuildAppointmentStore(ctx context.Context, cfg *appconfig.Config, pool *pgxpool.Pool, logger *logging.Logger) (appointments.Store, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var store appointments.Store
	if pool != nil {
		store = appointments.NewPostgresStore(pool)
		logger.Info("appointment store: postgres")
	} else {
		store = appointments.NewMemoryStore()
		logger.Info("appointment store: memory")
	}
	if err := SeedAppointments(ctx, store, cfg.SeedCSVPath, logger); err != nil {
		return nil, err
	}
	return store, nil
}

// SeedAppointments loads the seed CSV into an empty store. A store that
// already holds rows, or a missing seed file, is left alone.
func SeedAppointments(ctx context.Context, store appointments.Store, path string, logger *logging.Logger) error {
	if logger == nil {
		logger = logging.Default()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	count, err := store.Count(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap: count appointments: %w", err)
	}
	if count > 0 {
		logger.Info("appointment store already seeded", "rows", count)
		return nil
	}

	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("seed file not found; starting with an empty schedule", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap: open seed file: %w", err)
	}
	defer f.Close()

	slots, err := appointments.LoadCSV(f)
	if err != nil {
		return fmt.Errorf("bootstrap: parse seed file: %w", err)
	}
	if err := store.Seed(ctx, slots); err != nil {
		return fmt.Errorf("bootstrap: seed appointments: %w", err)
	}
	logger.Info("appointment store seeded", "path", path, "rows", len(slots))
	return nil
}

// BuildSessionStores wires session state and the chat log. Redis holds session
// state when configured; the chat log prefers Postgres, then Redis, then memory.
func BuildSessionStores(cfg *appconfig.Config, redisClient *redis.Client, pool *pgxpool.Pool, logger *logging.Logger) (dialogue.SessionStore, session.History) {
	if logger == nil {
		logger = logging.Default()
	}
	ttl := session.DefaultTTL
	var maxMessages int64
	if cfg != nil {
		if cfg.SessionTTL > 0 {
			ttl = cfg.SessionTTL
		}
		maxMessages = cfg.TranscriptMax
	}

	var sessions dialogue.SessionStore
	if redisClient != nil {
		sessions = session.NewRedisStore(redisClient, ttl)
	} else {
		sessions = session.NewMemoryStore()
	}

	var history session.History
	switch {
	case pool != nil:
		history = session.NewPostgresTurnLog(pool)
	case redisClient != nil:
		history = session.NewRedisTurnLog(redisClient, ttl, maxMessages)
	default:
		history = session.NewMemoryTurnLog()
	}
	logger.Info("session stores configured",
		"sessions", fmt.Sprintf("%T", sessions),
		"history", fmt.Sprintf("%T", history),
	)
	return sessions, history
}
