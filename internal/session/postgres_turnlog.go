package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/appointment-agent/internal/dialogue"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresTurnLog stores the chat history durably in the chat_history table.
type PostgresTurnLog struct {
	pool pgxQuerier
}

func NewPostgresTurnLog(pool *pgxpool.Pool) *PostgresTurnLog {
	if pool == nil {
		panic("session: pgx pool required")
	}
	return &PostgresTurnLog{pool: pool}
}

func newPostgresTurnLogWithQuerier(q pgxQuerier) *PostgresTurnLog {
	if q == nil {
		panic("session: querier required")
	}
	return &PostgresTurnLog{pool: q}
}

func (l *PostgresTurnLog) Append(ctx context.Context, sessionID string, turn dialogue.Turn) error {
	if sessionID == "" {
		return errors.New("session: transcript sessionID required")
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	query := `INSERT INTO chat_history (turn_id, session_id, role, body, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := l.pool.Exec(ctx, query, turn.ID, sessionID, string(turn.Role), turn.Text, turn.Timestamp); err != nil {
		return fmt.Errorf("session: insert chat turn: %w", err)
	}
	return nil
}

// List returns the last limit turns in insertion order; limit <= 0 returns all.
func (l *PostgresTurnLog) List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error) {
	query := `SELECT turn_id, role, body, created_at FROM (
		SELECT id, turn_id, role, body, created_at FROM chat_history
		WHERE session_id = $1
		ORDER BY id DESC
		LIMIT NULLIF($2, 0)
	) recent ORDER BY id ASC`
	if limit < 0 {
		limit = 0
	}
	rows, err := l.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("session: list chat history: %w", err)
	}
	defer rows.Close()

	var turns []dialogue.Turn
	for rows.Next() {
		var (
			id, role, body pgtype.Text
			createdAt      pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &role, &body, &createdAt); err != nil {
			return nil, fmt.Errorf("session: scan chat turn: %w", err)
		}
		turns = append(turns, dialogue.Turn{
			ID:        id.String,
			Role:      dialogue.Role(role.String),
			Text:      body.String,
			Timestamp: createdAt.Time,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session: iterate chat history: %w", err)
	}
	return turns, nil
}
