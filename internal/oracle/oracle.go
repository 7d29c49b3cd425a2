package oracle

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// ErrOracleUnavailable wraps every failure to obtain a model response.
var ErrOracleUnavailable = errors.New("oracle: unavailable")

// Intent is the symbolic classification of a user message.
type Intent string

const (
	IntentCheckAvailability  Intent = "check_availability"
	IntentBookAppointment    Intent = "book_appointment"
	IntentProvidePatientInfo Intent = "provide_patient_info"
	IntentSelectSlot         Intent = "select_slot"
	IntentEnd                Intent = "end"
)

// PatientInfo is the best-effort extraction of patient details. Zero values mean missing.
type PatientInfo struct {
	Name  string `json:"patient_name"`
	Age   int    `json:"patient_age"`
	Phone string `json:"patient_phone"`
}

// Missing lists the human-readable names of absent fields in prompt order.
func (p PatientInfo) Missing() []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "patient name")
	}
	if p.Age <= 0 || p.Age > appointments.MaxPatientAge {
		missing = append(missing, "patient age")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "patient phone number")
	}
	return missing
}

// Oracle is the stateless intent classification and entity extraction service.
// Extraction methods return an empty value with a nil error when the model
// answered but nothing could be parsed; errors mean the model was unreachable.
type Oracle interface {
	Classify(ctx context.Context, text, mode string) (Intent, error)
	ExtractQuery(ctx context.Context, text string) (appointments.Query, error)
	ExtractPatient(ctx context.Context, text string) (PatientInfo, error)
	WantsToBook(ctx context.Context, text string) (bool, error)
}

// Config tunes the LLM calls made by LLMOracle.
type Config struct {
	Model       string
	Timeout     time.Duration
	MaxTokens   int32
	Temperature float32
}

// LLMOracle implements Oracle with prompt templates over an LLMClient.
type LLMOracle struct {
	client LLMClient
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

// NewLLMOracle constructs an LLM-backed oracle.
func NewLLMOracle(client LLMClient, cfg Config, logger *logging.Logger) *LLMOracle {
	if client == nil {
		panic("oracle: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 256
	}
	return &LLMOracle{client: client, cfg: cfg, logger: logger, now: time.Now}
}

func (o *LLMOracle) Classify(ctx context.Context, text, mode string) (Intent, error) {
	user := fmt.Sprintf("Conversation state: %s\nUser message: %q", mode, text)
	raw, err := o.complete(ctx, classifyPrompt, user)
	if err != nil {
		return "", err
	}
	intent := NormalizeIntent(raw)
	o.logger.Debug("intent classified", "raw", raw, "intent", intent, "mode", mode)
	return intent, nil
}

func (o *LLMOracle) ExtractQuery(ctx context.Context, text string) (appointments.Query, error) {
	raw, err := o.complete(ctx, queryPrompt, fmt.Sprintf("Today is %s.\nUser message: %q", o.now().Format("02-01-2006"), text))
	if err != nil {
		return appointments.Query{}, err
	}
	fields := ExtractJSON(raw)
	q := appointments.Query{
		Doctor:         stringField(fields, "doctor_name"),
		Specialization: stringField(fields, "specialization"),
		Date:           stringField(fields, "date"),
		Time:           stringField(fields, "time"),
	}
	if q.Date == "" && strings.Contains(strings.ToLower(text), "tomorrow") {
		q.Date = o.now().AddDate(0, 0, 1).Format("02-01-2006")
	}
	return q, nil
}

func (o *LLMOracle) ExtractPatient(ctx context.Context, text string) (PatientInfo, error) {
	raw, err := o.complete(ctx, patientPrompt, fmt.Sprintf("User message: %q", text))
	if err != nil {
		return PatientInfo{}, err
	}
	fields := ExtractJSON(raw)
	return PatientInfo{
		Name:  stringField(fields, "patient_name"),
		Age:   intField(fields, "patient_age"),
		Phone: stringField(fields, "patient_phone"),
	}, nil
}

func (o *LLMOracle) WantsToBook(ctx context.Context, text string) (bool, error) {
	raw, err := o.complete(ctx, bookOrCheckPrompt, fmt.Sprintf("User message: %q", text))
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToUpper(raw), "BOOK"), nil
}

func (o *LLMOracle) complete(ctx context.Context, system, user string) (string, error) {
	callCtx := ctx
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	resp, err := o.client.Complete(callCtx, LLMRequest{
		Model:       o.cfg.Model,
		System:      []string{system},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: user}},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

var (
	intentTokenRe = regexp.MustCompile(`check_availability|book_appointment|provide_patient_info|select_slot`)
	endWordRe     = regexp.MustCompile(`\b(end|thanks?|bye|goodbye)\b`)
)

// NormalizeIntent maps a free-form model answer onto the fixed intent set.
// Exact labels win, then the first label mentioned in prose, then keywords.
// "end" only counts as a whole word since it wipes the session's context.
// Unrecognized answers default to check_availability.
func NormalizeIntent(raw string) Intent {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, "\"'`.")
	switch Intent(s) {
	case IntentCheckAvailability, IntentBookAppointment, IntentProvidePatientInfo, IntentSelectSlot, IntentEnd:
		return Intent(s)
	}
	if token := intentTokenRe.FindString(s); token != "" {
		return Intent(token)
	}
	switch {
	case strings.Contains(s, "select"):
		return IntentSelectSlot
	case strings.Contains(s, "patient") || strings.Contains(s, "provide"):
		return IntentProvidePatientInfo
	case strings.Contains(s, "book") || strings.Contains(s, "appointment") || strings.Contains(s, "schedule"):
		return IntentBookAppointment
	case endWordRe.MatchString(s):
		return IntentEnd
	default:
		return IntentCheckAvailability
	}
}
