package webchat

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	httpmiddleware "github.com/wolfman30/appointment-agent/internal/http/middleware"
	"github.com/wolfman30/appointment-agent/internal/http/validation"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const historyReplayLimit = 50

// Turner runs one dialogue turn.
type Turner interface {
	HandleTurn(ctx context.Context, sessionID, text string) (dialogue.Reply, error)
}

// TranscriptReader reads chat history.
type TranscriptReader interface {
	List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error)
}

// Handler serves the chat over a WebSocket: one dialogue turn per inbound frame.
type Handler struct {
	agent      Turner
	transcript TranscriptReader
	limiter    TurnLimiter
	logger     *logging.Logger
}

// InboundMessage is what the chat client sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the chat client.
type OutboundMessage struct {
	Type      string               `json:"type"` // "session", "history", "typing", "message", "error", "pong"
	Text      string               `json:"text,omitempty"`
	Role      string               `json:"role,omitempty"`
	SessionID string               `json:"session_id,omitempty"`
	Mode      dialogue.Mode        `json:"mode,omitempty"`
	Stage     dialogue.Stage       `json:"stage,omitempty"`
	Result    *appointments.Result `json:"result,omitempty"`
	Timestamp string               `json:"timestamp,omitempty"`
	Messages  []HistoryMessage     `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history replay.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a websocket chat handler. transcript may be nil.
func NewHandler(agent Turner, transcript TranscriptReader, logger *logging.Logger) *Handler {
	if agent == nil {
		panic("webchat: agent cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{agent: agent, transcript: transcript, logger: logger}
}

// WithTurnLimiter returns a copy of h that checks every inbound message
// against limiter before running a turn.
func (h *Handler) WithTurnLimiter(limiter TurnLimiter) *Handler {
	c := *h
	c.limiter = limiter
	return &c
}

// HandleWebSocket upgrades to WebSocket and runs the chat loop.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	conn.MaxPayloadBytes = MaxTurnBytes
	clientKey := httpmiddleware.ClientKey(r)
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	resumed := sessionID != ""
	if !resumed {
		sessionID = uuid.NewString()
	}
	logger := h.logger.ForSession(sessionID)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	if resumed {
		h.replayHistory(ctx, conn, sessionID)
	}
	logger.Info("webchat: connection opened", "resumed", resumed)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				// The next Receive drains the rest of the oversized frame.
				sendError(conn, fmt.Sprintf("text must be at most %d characters", MaxTurnChars))
				continue
			}
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" {
			continue
		}

		turn := TurnRequest{Text: msg.Text}
		if err := turn.Normalize(); err != nil {
			sendError(conn, validation.Message(err))
			continue
		}
		if h.limiter != nil {
			if ok, wait := h.limiter.Allow(clientKey); !ok {
				logger.Info("webchat: turn rate limited", "client", clientKey)
				sendError(conn, fmt.Sprintf("You're sending messages too quickly. Please wait %d seconds and try again.",
					int(math.Ceil(wait.Seconds()))))
				continue
			}
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		reply, err := h.agent.HandleTurn(ctx, sessionID, turn.Text)
		if err != nil {
			logger.Error("webchat: turn failed", "error", err)
			sendError(conn, "Sorry, something went wrong. Please try again.")
			continue
		}
		if err := websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      string(dialogue.RoleAgent),
			Text:      reply.Text,
			SessionID: reply.SessionID,
			Mode:      reply.Mode,
			Stage:     reply.Stage,
			Result:    reply.Result,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			logger.Debug("webchat: send failed", "error", err)
			return
		}
	}
}

func sendError(conn *websocket.Conn, text string) {
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: text})
}

func (h *Handler) replayHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if h.transcript == nil {
		return
	}
	turns, err := h.transcript.List(ctx, sessionID, historyReplayLimit)
	if err != nil {
		h.logger.Warn("webchat: history unavailable", "session_id", sessionID, "error", err)
		return
	}
	if len(turns) == 0 {
		return
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: ToHistory(turns)})
}

// ToHistory converts stored turns into the wire format.
func ToHistory(turns []dialogue.Turn) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}
