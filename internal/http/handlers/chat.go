package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/internal/http/validation"
	"github.com/wolfman30/appointment-agent/internal/webchat"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const defaultHistoryLimit = 100

// SessionReader exposes read-only session state.
type SessionReader interface {
	Load(ctx context.Context, sessionID string) (*dialogue.Session, error)
}

// ChatHandler serves the request/response chat API.
type ChatHandler struct {
	agent      webchat.Turner
	sessions   SessionReader
	transcript webchat.TranscriptReader
	logger     *logging.Logger
}

// NewChatHandler creates the chat API handler. transcript may be nil.
func NewChatHandler(agent webchat.Turner, sessions SessionReader, transcript webchat.TranscriptReader, logger *logging.Logger) *ChatHandler {
	if agent == nil || sessions == nil {
		panic("handlers: chat agent and session reader are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatHandler{agent: agent, sessions: sessions, transcript: transcript, logger: logger}
}

type sessionResponse struct {
	SessionID      string          `json:"session_id"`
	Mode           dialogue.Mode   `json:"mode"`
	PendingBooking *dialogue.Draft `json:"pending_booking,omitempty"`
	CurrentDoctor  string          `json:"current_doctor,omitempty"`
	CandidateSlots int             `json:"candidate_slots"`
}

// CreateSession issues a new session id. Sessions are materialised lazily on
// the first turn.
func (h *ChatHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID: uuid.NewString(),
		Mode:      dialogue.ModeIdle,
	})
}

// PostMessage runs one dialogue turn.
func (h *ChatHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req webchat.TurnRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, webchat.MaxTurnBytes)).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Normalize(); err != nil {
		jsonError(w, validation.Message(err), http.StatusBadRequest)
		return
	}

	reply, err := h.agent.HandleTurn(r.Context(), sessionID, req.Text)
	if err != nil {
		h.logger.Error("chat turn failed", "session_id", sessionID, "error", err)
		jsonError(w, "failed to process message", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

// GetSession reports the session's mode and pending draft.
func (h *ChatHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	sess, err := h.sessions.Load(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("load session failed", "session_id", sessionID, "error", err)
		jsonError(w, "failed to load session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:      sess.ID,
		Mode:           sess.Mode,
		PendingBooking: sess.PendingBooking,
		CurrentDoctor:  sess.CurrentDoctor,
		CandidateSlots: len(sess.CandidateSlots),
	})
}

// GetHistory returns the session's chat turns, oldest first.
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	limit := int64(defaultHistoryLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n <= 0 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	messages := []webchat.HistoryMessage{}
	if h.transcript != nil {
		turns, err := h.transcript.List(r.Context(), sessionID, limit)
		if err != nil {
			h.logger.Error("load history failed", "session_id", sessionID, "error", err)
			jsonError(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		messages = webchat.ToHistory(turns)
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": sessionID, "messages": messages})
}
