package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/appointment-agent/internal/dialogue"
)

const (
	sessionKeyPrefix    = "session:"
	transcriptKeyPrefix = "transcript:"
)

// RedisStore persists sessions as JSON blobs with a sliding TTL.
type RedisStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  client,
		tracer: otel.Tracer("appointments.internal.session.store"),
		ttl:    ttl,
	}
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*dialogue.Session, error) {
	ctx, span := s.tracer.Start(ctx, "session.load")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dialogue.NewSession(sessionID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to load session: %w", err)
	}

	var sess dialogue.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: failed to decode session: %w", err)
	}
	sess.ID = sessionID
	return &sess, nil
}

func (s *RedisStore) Save(ctx context.Context, sess *dialogue.Session) error {
	ctx, span := s.tracer.Start(ctx, "session.save")
	defer span.End()

	data, err := json.Marshal(sess)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sess.ID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: failed to persist session: %w", err)
	}
	return nil
}

// RedisTurnLog keeps a capped transcript per session in a Redis list.
type RedisTurnLog struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

func NewRedisTurnLog(client *redis.Client, ttl time.Duration, maxMessages int64) *RedisTurnLog {
	if client == nil {
		panic("session: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisTurnLog{
		redis:       client,
		tracer:      otel.Tracer("appointments.internal.session.transcript"),
		ttl:         ttl,
		maxMessages: maxMessages,
	}
}

func (l *RedisTurnLog) Append(ctx context.Context, sessionID string, turn dialogue.Turn) error {
	if sessionID == "" {
		return errors.New("session: transcript sessionID required")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("session: marshal turn: %w", err)
	}

	ctx, span := l.tracer.Start(ctx, "session.transcript.append")
	defer span.End()

	key := transcriptKey(sessionID)
	pipe := l.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, l.ttl)
	if l.maxMessages > 0 {
		pipe.LTrim(ctx, key, -l.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: append turn: %w", err)
	}
	return nil
}

// List returns the last limit turns in order; limit <= 0 returns all.
func (l *RedisTurnLog) List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error) {
	if sessionID == "" {
		return nil, errors.New("session: transcript sessionID required")
	}
	ctx, span := l.tracer.Start(ctx, "session.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := l.redis.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("session: list transcript: %w", err)
	}

	out := make([]dialogue.Turn, 0, len(raw))
	for _, item := range raw {
		var turn dialogue.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func transcriptKey(id string) string {
	return transcriptKeyPrefix + id
}
