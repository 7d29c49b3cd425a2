package dialogue

import (
	"context"

	"github.com/wolfman30/appointment-agent/internal/appointments"
)

var affirmations = map[string]bool{"yes": true, "y": true, "sure": true, "ok": true, "okay": true, "confirm": true}

// runPatientInfo extracts patient details and, once complete, drafts the
// booking and hands over to the approval gate. Nothing is written here.
func (a *Agent) runPatientInfo(ctx context.Context, sess *Session, text string) stageOutput {
	if sess.LastAvailable == nil {
		sess.Reset()
		return stageOutput{text: "I don't have a slot selected for you yet. Which doctor and date would you like to check?"}
	}
	if affirmations[normalizeReply(text)] {
		sess.Mode = ModeAwaitingPatientInfo
		return stageOutput{text: patientDetailsHint}
	}

	info, err := a.oracle.ExtractPatient(ctx, text)
	if err != nil {
		return a.oracleFailure(ctx, "extract_patient", err)
	}
	if missing := info.Missing(); len(missing) > 0 {
		sess.Mode = ModeAwaitingPatientInfo
		return stageOutput{text: formatMissing(missing)}
	}

	date, clock := appointments.SplitDateSlot(sess.LastAvailable.DateSlot)
	draft := Draft{
		Doctor:       sess.LastAvailable.Doctor,
		Date:         date,
		Time:         clock,
		PatientName:  info.Name,
		PatientAge:   info.Age,
		PatientPhone: info.Phone,
	}
	sess.PendingBooking = &draft
	sess.Mode = ModeAwaitingApproval
	return stageOutput{text: formatDraft(draft)}
}
