package dialogue

import (
	"strings"
	"unicode"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/oracle"
)

var patientKeywords = []string{"name", "age", "phone", "patient", "years old", "contact", "book for"}

// Hits are the exact-syntax signals found in a user message.
type Hits struct {
	SlotKey        string
	PatientKeyword bool
	HasDigit       bool
}

// PatientEvidence reports whether the text plausibly carries patient details.
func (h Hits) PatientEvidence() bool {
	return h.PatientKeyword || h.HasDigit
}

// DetectHits scans text for a date+time token, patient keywords and digits.
func DetectHits(text string) Hits {
	lower := strings.ToLower(text)
	var h Hits
	h.SlotKey, _ = appointments.FindDateSlot(text)
	for _, kw := range patientKeywords {
		if strings.Contains(lower, kw) {
			h.PatientKeyword = true
			break
		}
	}
	h.HasDigit = strings.IndexFunc(text, unicode.IsDigit) >= 0
	return h
}

// Decision is the router's output for one turn.
type Decision struct {
	Stage Stage
	// Intent is the effective intent after local overrides; empty when the
	// turn was routed by mode alone.
	Intent oracle.Intent
}

// NeedsClassification reports whether the mode and hits leave the turn
// unrouted so the intent classifier must be consulted.
func NeedsClassification(mode Mode, hits Hits) bool {
	switch mode {
	case ModeAwaitingApproval, ModeAwaitingSlotSelection:
		return false
	case ModeAwaitingPatientInfo:
		return !hits.PatientEvidence()
	default:
		return true
	}
}

// OverrideIntent returns the intent forced by exact-syntax hits, if any.
func OverrideIntent(hits Hits) (oracle.Intent, bool) {
	switch {
	case hits.SlotKey != "":
		return oracle.IntentSelectSlot, true
	case hits.PatientKeyword && hits.HasDigit:
		return oracle.IntentProvidePatientInfo, true
	default:
		return "", false
	}
}

// Route is the pure transition function of the dialogue state machine. intent
// is ignored when the mode alone decides the stage.
func Route(mode Mode, intent oracle.Intent, hits Hits) Decision {
	switch mode {
	case ModeAwaitingApproval:
		return Decision{Stage: StageApproval}
	case ModeAwaitingSlotSelection:
		if hits.SlotKey != "" {
			return Decision{Stage: StageSlotSelection, Intent: oracle.IntentSelectSlot}
		}
		return Decision{Stage: StageRepromptSelection}
	case ModeAwaitingPatientInfo:
		if hits.PatientEvidence() {
			return Decision{Stage: StagePatientInfo, Intent: oracle.IntentProvidePatientInfo}
		}
	}

	if forced, ok := OverrideIntent(hits); ok {
		intent = forced
	}
	switch intent {
	case oracle.IntentSelectSlot:
		return Decision{Stage: StageSlotSelection, Intent: intent}
	case oracle.IntentProvidePatientInfo:
		return Decision{Stage: StagePatientInfo, Intent: intent}
	case oracle.IntentEnd:
		return Decision{Stage: StageEnd, Intent: intent}
	case oracle.IntentBookAppointment:
		return Decision{Stage: StageAvailability, Intent: intent}
	default:
		return Decision{Stage: StageAvailability, Intent: oracle.IntentCheckAvailability}
	}
}
