package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/internal/http/handlers"
	"github.com/wolfman30/appointment-agent/internal/oracle"
	"github.com/wolfman30/appointment-agent/internal/session"
	"github.com/wolfman30/appointment-agent/internal/webchat"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// keywordOracle is a deterministic stand-in for the LLM-backed oracle.
type keywordOracle struct{}

func (keywordOracle) Classify(_ context.Context, text, _ string) (oracle.Intent, error) {
	if strings.HasPrefix(strings.ToLower(text), "book") {
		return oracle.IntentBookAppointment, nil
	}
	return oracle.IntentCheckAvailability, nil
}

func (keywordOracle) ExtractQuery(_ context.Context, text string) (appointments.Query, error) {
	if strings.Contains(text, "Jane Doe") {
		return appointments.Query{Doctor: "Jane Doe", Date: "08-08-2024", Time: "20:00"}, nil
	}
	return appointments.Query{}, nil
}

func (keywordOracle) ExtractPatient(_ context.Context, text string) (oracle.PatientInfo, error) {
	return oracle.PatientInfo{Name: "John Smith", Age: 35, Phone: "555-1234"}, nil
}

func (keywordOracle) WantsToBook(_ context.Context, text string) (bool, error) {
	return strings.HasPrefix(strings.ToLower(text), "book"), nil
}

type testEnv struct {
	handler http.Handler
	store   *appointments.MemoryStore
}

func newTestRouter(t *testing.T, mutate func(*Config)) testEnv {
	t.Helper()
	logger := logging.New("error")
	store := appointments.NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), []appointments.Slot{
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "08-08-2024 20:00", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "08-08-2024 20:30", IsAvailable: true},
		{DoctorName: "john doe", Specialization: "orthodontist", DateSlot: "05-08-2024 08:00", IsAvailable: false},
	}))
	sessions := session.NewMemoryStore()
	turns := session.NewMemoryTurnLog()
	agent := dialogue.NewAgent(dialogue.Deps{
		Oracle:   keywordOracle{},
		Resolver: appointments.NewResolver(store, logger),
		Engine:   appointments.NewEngine(store, logger),
		Sessions: sessions,
		Turns:    turns,
		Logger:   logger,
	})

	cfg := &Config{
		Logger:       logger,
		Chat:         handlers.NewChatHandler(agent, sessions, turns, logger),
		Appointments: handlers.NewAppointmentsHandler(store, logger),
		WebChat:      webchat.NewHandler(agent, turns, logger),
	}
	if mutate != nil {
		mutate(cfg)
	}
	return testEnv{handler: New(cfg), store: store}
}

func (e testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	return out
}

func TestRouterHealthEndpoint(t *testing.T) {
	env := newTestRouter(t, nil)

	rr := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rr)["status"])
}

func TestRouterHealthDegraded(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.HealthChecks = map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}
	})

	rr := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body := decode[map[string]string](t, rr)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "connection refused", body["redis"])
}

func TestRouterBookingConversation(t *testing.T) {
	env := newTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/chat/sessions", "")
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decode[map[string]string](t, rr)["session_id"]
	require.NotEmpty(t, id)
	base := "/chat/sessions/" + id

	rr = env.do(t, http.MethodPost, base+"/messages", `{"text":"Book Dr. Jane Doe on 08-08-2024 at 20:00"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	reply := decode[dialogue.Reply](t, rr)
	assert.Equal(t, id, reply.SessionID)
	assert.Equal(t, dialogue.ModeAwaitingPatientInfo, reply.Mode)

	rr = env.do(t, http.MethodPost, base+"/messages", `{"text":"John Smith, age 35, phone 555-1234"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, dialogue.ModeAwaitingApproval, decode[dialogue.Reply](t, rr).Mode)

	rr = env.do(t, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, rr.Code)
	state := decode[map[string]any](t, rr)
	assert.Equal(t, "awaiting_approval", state["mode"])
	assert.NotNil(t, state["pending_booking"])

	rr = env.do(t, http.MethodPost, base+"/messages", `{"text":"yes"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	reply = decode[dialogue.Reply](t, rr)
	require.NotNil(t, reply.Result)
	assert.Equal(t, appointments.StatusBooked, reply.Result.Status)
	assert.Regexp(t, `^APPT-\d{14}$`, reply.Result.ConfirmationNumber)

	rr = env.do(t, http.MethodGet, base+"/history?limit=2", "")
	require.Equal(t, http.StatusOK, rr.Code)
	history := decode[struct {
		Messages []webchat.HistoryMessage `json:"messages"`
	}](t, rr)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "user", history.Messages[0].Role)
	assert.Equal(t, "yes", history.Messages[0].Text)

	rr = env.do(t, http.MethodGet, "/appointments?doctor=Dr.%20Jane%20Doe&available=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	listing := decode[map[string]any](t, rr)
	assert.EqualValues(t, 1, listing["count"])
}

func TestRouterRejectsBadMessages(t *testing.T) {
	env := newTestRouter(t, nil)

	rr := env.do(t, http.MethodPost, "/chat/sessions/abc/messages", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodPost, "/chat/sessions/abc/messages", `not json`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(t, http.MethodGet, "/chat/sessions/abc/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouterRateLimitsTurns(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.TurnRateLimit = 0.001
		cfg.TurnBurst = 1
	})

	rr := env.do(t, http.MethodPost, "/chat/sessions/abc/messages", `{"text":"Is Dr. Jane Doe free?"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = env.do(t, http.MethodPost, "/chat/sessions/abc/messages", `{"text":"Is Dr. Jane Doe free?"}`)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = env.do(t, http.MethodGet, "/chat/sessions/abc/history", "")
	assert.Equal(t, http.StatusOK, rr.Code, "reads are not limited")
}

func TestRouterMetricsEndpoint(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.MetricsHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		})
	})

	rr := env.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "# metrics", rr.Body.String())
}

func dialChat(t *testing.T, env testEnv) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/ws", "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	var hello webchat.OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &hello))
	require.Equal(t, "session", hello.Type)
	return conn
}

func TestRouterRateLimitsWebSocketFrames(t *testing.T) {
	env := newTestRouter(t, func(cfg *Config) {
		cfg.TurnRateLimit = 0.001
		cfg.TurnBurst = 1
	})
	conn := dialChat(t, env)

	for i := 0; i < 4; i++ {
		require.NoError(t, websocket.JSON.Send(conn, webchat.InboundMessage{Type: "message", Text: "Is Dr. Jane Doe free?"}))
	}

	var turns, limited int
	for turns+limited < 4 {
		var msg webchat.OutboundMessage
		require.NoError(t, websocket.JSON.Receive(conn, &msg))
		switch msg.Type {
		case "message":
			turns++
		case "error":
			assert.Contains(t, msg.Text, "too quickly")
			limited++
		}
	}
	assert.Equal(t, 1, turns, "only the burst runs a turn")
	assert.Equal(t, 3, limited)
}

func TestRouterRejectsOversizeWebSocketText(t *testing.T) {
	env := newTestRouter(t, nil)
	conn := dialChat(t, env)

	require.NoError(t, websocket.JSON.Send(conn, webchat.InboundMessage{Type: "message", Text: strings.Repeat("a", 5000)}))
	var msg webchat.OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "text must be at most 2000 characters", msg.Text)
}
