package dialogue

import (
	"context"
	"fmt"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/oracle"
)

// runAvailability resolves the query in text and moves the session to the
// mode that result calls for.
func (a *Agent) runAvailability(ctx context.Context, sess *Session, text string, intent oracle.Intent) stageOutput {
	q, err := a.oracle.ExtractQuery(ctx, text)
	if err != nil {
		return a.oracleFailure(ctx, "extract_query", err)
	}
	q, resumed := a.withContext(sess, q, intent)

	res := a.resolver.Resolve(ctx, q)
	switch {
	case res.Doctor != "":
		sess.CurrentDoctor = res.Doctor
	case q.Doctor != "":
		sess.CurrentDoctor = appointments.NormalizeDoctor(q.Doctor)
	}

	switch res.Status {
	case appointments.StatusAvailable:
		return a.presentAvailable(ctx, sess, text, res, resumed)

	case appointments.StatusMultipleAvailable:
		sess.Mode = ModeAwaitingSlotSelection
		sess.CandidateSlots = res.Candidates()
		sess.LastAvailable = nil
		msg := fmt.Sprintf("I found %d available slots", res.Count)
		if res.Count > len(res.Slots) {
			msg += fmt.Sprintf(" (showing the first %d)", len(res.Slots))
		}
		msg += ":\n" + formatSlotList(res.Slots) + "\n" + slotFormatHint
		return stageOutput{text: msg, result: &res}

	case appointments.StatusUnavailable, appointments.StatusNotFound:
		sess.LastAvailable = nil
		sess.CandidateSlots = res.Candidates()
		if len(sess.CandidateSlots) == 0 {
			sess.Mode = ModeIdle
			return stageOutput{text: res.Message + " There are no other open slots for that search.", result: &res}
		}
		sess.Mode = ModeAwaitingSlotSelection
		msg := res.Message + "\nHere are some available alternatives:\n" + formatSlotList(sess.CandidateSlots) + "\n" + slotFormatHint
		return stageOutput{text: msg, result: &res}

	case appointments.StatusNoAvailability:
		sess.Mode = ModeIdle
		sess.CandidateSlots = nil
		sess.LastAvailable = nil
		return stageOutput{text: res.Message + ". Would you like to try a different doctor or date?", result: &res}

	default:
		return stageOutput{text: "Sorry, I couldn't check availability right now. " + res.Message, result: &res}
	}
}

// presentAvailable caches an available slot and asks the oracle whether the
// user wants to book it now or was only checking. A resumed booking of the
// slot just checked skips the second call.
func (a *Agent) presentAvailable(ctx context.Context, sess *Session, text string, res appointments.Result, resumed bool) stageOutput {
	sess.CandidateSlots = nil
	sess.LastAvailable = &res

	book := resumed
	if !resumed {
		var err error
		book, err = a.oracle.WantsToBook(ctx, text)
		if err != nil {
			a.metrics.ObserveOracleError("wants_to_book")
			a.logger.Warn("book-or-check call failed, presenting availability only", "error", err)
		}
	}
	if book {
		sess.Mode = ModeAwaitingPatientInfo
		return stageOutput{text: res.Message + ". " + patientDetailsHint, result: &res}
	}
	sess.Mode = ModeIdle
	return stageOutput{text: res.Message + ". Would you like to book this appointment?", result: &res}
}

// withContext fills an empty query from the conversation so far: a bare
// "book it" targets the slot just checked, and a follow-up without a doctor
// keeps the doctor under discussion.
func (a *Agent) withContext(sess *Session, q appointments.Query, intent oracle.Intent) (appointments.Query, bool) {
	empty := q == appointments.Query{}
	if empty && intent == oracle.IntentBookAppointment && sess.LastAvailable != nil {
		date, clock := appointments.SplitDateSlot(sess.LastAvailable.DateSlot)
		return appointments.Query{Doctor: sess.LastAvailable.Doctor, Date: date, Time: clock}, true
	}
	if q.Doctor == "" && q.Specialization == "" && sess.CurrentDoctor != "" && (q.Date != "" || q.Time != "") {
		q.Doctor = sess.CurrentDoctor
	}
	return q, false
}
