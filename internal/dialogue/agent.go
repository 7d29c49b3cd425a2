package dialogue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/observability/metrics"
	"github.com/wolfman30/appointment-agent/internal/oracle"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// SessionStore loads and saves conversation state. Load returns a fresh idle
// session when none exists.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, sess *Session) error
}

// TurnLog is the append-only chat history.
type TurnLog interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
}

// Reply is the agent's answer to one user turn.
type Reply struct {
	SessionID string               `json:"session_id"`
	Text      string               `json:"text"`
	Mode      Mode                 `json:"mode"`
	Stage     Stage                `json:"stage"`
	Result    *appointments.Result `json:"result,omitempty"`
}

// Outcome names how a conversation closed.
type Outcome string

const (
	OutcomeBooked Outcome = "booked"
	OutcomeEnded  Outcome = "ended"
)

// Archiver receives a conversation once it closes with a confirmed booking or
// an explicit goodbye. It must handle its own failures.
type Archiver interface {
	ArchiveSession(ctx context.Context, sessionID string, outcome Outcome, result *appointments.Result)
}

type stageOutput struct {
	text   string
	result *appointments.Result
}

// Deps wires the agent's collaborators. Turns, Archiver and Metrics are optional.
type Deps struct {
	Oracle   oracle.Oracle
	Resolver *appointments.Resolver
	Engine   *appointments.Engine
	Sessions SessionStore
	Turns    TurnLog
	Archiver Archiver
	Metrics  *metrics.DialogueMetrics
	Logger   *logging.Logger
}

// Agent runs the dialogue state machine: one routed stage per user turn.
type Agent struct {
	oracle   oracle.Oracle
	resolver *appointments.Resolver
	engine   *appointments.Engine
	sessions SessionStore
	turns    TurnLog
	archiver Archiver
	metrics  *metrics.DialogueMetrics
	logger   *logging.Logger
	now      func() time.Time

	// Turns of one session are serialized; distinct sessions proceed in parallel.
	locks [64]sync.Mutex
}

// NewAgent constructs a dialogue agent.
func NewAgent(deps Deps) *Agent {
	if deps.Oracle == nil {
		panic("dialogue: oracle cannot be nil")
	}
	if deps.Resolver == nil || deps.Engine == nil {
		panic("dialogue: resolver and engine are required")
	}
	if deps.Sessions == nil {
		panic("dialogue: session store cannot be nil")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Agent{
		oracle:   deps.Oracle,
		resolver: deps.Resolver,
		engine:   deps.Engine,
		sessions: deps.Sessions,
		turns:    deps.Turns,
		archiver: deps.Archiver,
		metrics:  deps.Metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// HandleTurn processes one user message. Stage failures (bad input, oracle
// outages, store faults) become reply text; only session persistence
// failures are returned as errors.
func (a *Agent) HandleTurn(ctx context.Context, sessionID, text string) (Reply, error) {
	start := a.now()
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	text = strings.TrimSpace(text)

	mu := a.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := a.sessions.Load(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("dialogue: load session: %w", err)
	}
	if !sess.Mode.Valid() {
		sess.Mode = ModeIdle
	}
	logger := a.logger.ForSession(sessionID)

	if err := a.appendTurn(ctx, sessionID, RoleUser, text); err != nil {
		return Reply{}, err
	}

	stage, out := a.dispatch(ctx, logger, sess, text)

	sess.UpdatedAt = a.now().UTC()
	if err := a.sessions.Save(ctx, sess); err != nil {
		return Reply{}, fmt.Errorf("dialogue: save session: %w", err)
	}
	if err := a.appendTurn(ctx, sessionID, RoleAgent, out.text); err != nil {
		return Reply{}, err
	}
	if outcome, closed := closingOutcome(stage, out.result); closed && a.archiver != nil {
		a.archiver.ArchiveSession(ctx, sessionID, outcome, out.result)
	}

	a.metrics.ObserveTurn(string(stage), string(sess.Mode), a.now().Sub(start).Seconds())
	logger.Info("turn handled", "stage", stage, "mode", sess.Mode)
	return Reply{
		SessionID: sessionID,
		Text:      out.text,
		Mode:      sess.Mode,
		Stage:     stage,
		Result:    out.result,
	}, nil
}

// dispatch routes the turn and runs exactly one stage.
func (a *Agent) dispatch(ctx context.Context, logger *logging.Logger, sess *Session, text string) (Stage, stageOutput) {
	if text == "" {
		return StageClarify, stageOutput{text: "I didn't catch that. How can I help you with your appointment?"}
	}

	hits := DetectHits(text)
	var intent oracle.Intent
	if NeedsClassification(sess.Mode, hits) {
		classified, err := a.oracle.Classify(ctx, text, string(sess.Mode))
		if err != nil {
			if _, forced := OverrideIntent(hits); !forced {
				return StageOracleFailure, a.oracleFailure(ctx, "classify", err)
			}
			a.metrics.ObserveOracleError("classify")
			logger.Warn("intent classification failed, using local override", "error", err)
		}
		intent = classified
	}

	decision := Route(sess.Mode, intent, hits)
	logger.Debug("turn routed", "mode", sess.Mode, "intent", decision.Intent, "stage", decision.Stage)

	switch decision.Stage {
	case StageApproval:
		return decision.Stage, a.runApproval(ctx, sess, text)
	case StageSlotSelection:
		return decision.Stage, a.runSlotSelection(ctx, sess, text)
	case StageRepromptSelection:
		return decision.Stage, a.repromptSelection(sess)
	case StagePatientInfo:
		return decision.Stage, a.runPatientInfo(ctx, sess, text)
	case StageEnd:
		return decision.Stage, a.runEnd(sess)
	default:
		return StageAvailability, a.runAvailability(ctx, sess, text, decision.Intent)
	}
}

func closingOutcome(stage Stage, result *appointments.Result) (Outcome, bool) {
	switch {
	case stage == StageEnd:
		return OutcomeEnded, true
	case stage == StageApproval && result != nil && result.Status == appointments.StatusBooked:
		return OutcomeBooked, true
	default:
		return "", false
	}
}

// oracleFailure degrades an unreachable oracle to an apology; the session
// mode is left as it was.
func (a *Agent) oracleFailure(ctx context.Context, call string, err error) stageOutput {
	a.metrics.ObserveOracleError(call)
	msg := "oracle call failed"
	if errors.Is(ctx.Err(), context.Canceled) {
		msg = "oracle call cancelled"
	}
	a.logger.Error(msg, "call", call, "error", err)
	return stageOutput{text: apologyText}
}

func (a *Agent) appendTurn(ctx context.Context, sessionID string, role Role, text string) error {
	if a.turns == nil {
		return nil
	}
	err := a.turns.Append(ctx, sessionID, Turn{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: a.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("dialogue: append %s turn: %w", role, err)
	}
	return nil
}

func (a *Agent) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &a.locks[h.Sum32()%uint32(len(a.locks))]
}
