package dialogue

import (
	"time"

	"github.com/wolfman30/appointment-agent/internal/appointments"
)

// Mode is the conversation's position in the router state machine.
type Mode string

const (
	ModeIdle                  Mode = "idle"
	ModeAwaitingSlotSelection Mode = "awaiting_slot_selection"
	ModeAwaitingPatientInfo   Mode = "awaiting_patient_info"
	ModeAwaitingApproval      Mode = "awaiting_approval"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeIdle, ModeAwaitingSlotSelection, ModeAwaitingPatientInfo, ModeAwaitingApproval:
		return true
	}
	return false
}

// Stage names the handler a turn was dispatched to.
type Stage string

const (
	StageAvailability      Stage = "availability"
	StageSlotSelection     Stage = "slot_selection"
	StageRepromptSelection Stage = "reprompt_selection"
	StagePatientInfo       Stage = "patient_info"
	StageApproval          Stage = "approval"
	StageEnd               Stage = "end"
	StageOracleFailure     Stage = "oracle_failure"
	StageClarify           Stage = "clarify"
)

// Draft is a fully specified booking awaiting human approval.
type Draft struct {
	Doctor       string `json:"doctor"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PatientName  string `json:"patient_name"`
	PatientAge   int    `json:"patient_age"`
	PatientPhone string `json:"patient_phone"`
}

// Booking converts the draft into a commit request.
func (d Draft) Booking() appointments.Booking {
	return appointments.Booking{
		Doctor:       d.Doctor,
		Date:         d.Date,
		Time:         d.Time,
		PatientName:  d.PatientName,
		PatientAge:   d.PatientAge,
		PatientPhone: d.PatientPhone,
	}
}

// Session is the per-conversation state carried between turns.
type Session struct {
	ID             string                 `json:"session_id"`
	Mode           Mode                   `json:"mode"`
	CandidateSlots []appointments.SlotRef `json:"candidate_slots,omitempty"`
	PendingBooking *Draft                 `json:"pending_booking,omitempty"`
	CurrentDoctor  string                 `json:"current_doctor,omitempty"`
	LastAvailable  *appointments.Result   `json:"last_available,omitempty"`
	UpdatedAt      time.Time              `json:"updated_at"`
}

// NewSession returns an idle session.
func NewSession(id string) *Session {
	return &Session{ID: id, Mode: ModeIdle}
}

// Reset returns the session to idle, dropping any in-flight selection or draft.
// The current doctor survives as conversational context.
func (s *Session) Reset() {
	s.Mode = ModeIdle
	s.CandidateSlots = nil
	s.PendingBooking = nil
	s.LastAvailable = nil
}

// Role identifies the speaker of a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one entry of the append-only chat log.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}
