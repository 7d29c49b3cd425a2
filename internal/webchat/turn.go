package webchat

import (
	"strings"
	"time"

	"github.com/wolfman30/appointment-agent/internal/http/validation"
)

const (
	// MaxTurnChars bounds the text of one turn; keep it in step with the
	// max rule on TurnRequest.Text.
	MaxTurnChars = 2000

	// MaxTurnBytes bounds one encoded turn. JSON may spell a character as a
	// \u escaped surrogate pair, 12 bytes, and the envelope needs some room.
	MaxTurnBytes = 12*MaxTurnChars + 1<<10
)

// TurnRequest is the text of one chat turn, on HTTP and over the websocket.
type TurnRequest struct {
	Text string `json:"text" validate:"required,max=2000"`
}

// Normalize trims the text and validates it.
func (r *TurnRequest) Normalize() error {
	r.Text = strings.TrimSpace(r.Text)
	return validation.Struct(r)
}

// TurnLimiter decides whether a client may run another turn and, if not,
// how long it should wait.
type TurnLimiter interface {
	Allow(key string) (bool, time.Duration)
}
