package dialogue

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/appointment-agent/internal/appointments"
)

// runSlotSelection accepts a slot only if it parses, is one of the offered
// candidates and is still available in the store right now.
func (a *Agent) runSlotSelection(ctx context.Context, sess *Session, text string) stageOutput {
	if len(sess.CandidateSlots) == 0 {
		sess.Reset()
		return stageOutput{text: "I don't have any slot options for you yet. Tell me which doctor, specialization or date you're interested in and I'll check availability."}
	}

	dateSlot, ok := appointments.FindDateSlot(text)
	if !ok {
		return a.repromptSelection(sess)
	}

	ref, ok := pickCandidate(sess.CandidateSlots, dateSlot, text)
	if !ok {
		return stageOutput{text: fmt.Sprintf("%s was not found in the options I offered. Please choose one of:\n%s",
			dateSlot, formatSlotList(sess.CandidateSlots))}
	}

	res := a.resolver.Recheck(ctx, ref)
	switch res.Status {
	case appointments.StatusAvailable:
		sess.CandidateSlots = nil
		sess.LastAvailable = &res
		sess.CurrentDoctor = res.Doctor
		sess.Mode = ModeAwaitingPatientInfo
		return stageOutput{
			text:   fmt.Sprintf("You selected %s. %s", formatSlotRef(ref), patientDetailsHint),
			result: &res,
		}
	case appointments.StatusError:
		return stageOutput{text: "Sorry, I couldn't verify that slot right now. Please try again.", result: &res}
	}

	sess.CandidateSlots = removeCandidate(sess.CandidateSlots, ref)
	if len(sess.CandidateSlots) == 0 {
		sess.Mode = ModeIdle
		return stageOutput{
			text:   fmt.Sprintf("Sorry, %s is no longer available and there are no other options left. Would you like to search again?", formatSlotRef(ref)),
			result: &res,
		}
	}
	return stageOutput{
		text: fmt.Sprintf("Sorry, %s is no longer available. Please choose one of:\n%s",
			formatSlotRef(ref), formatSlotList(sess.CandidateSlots)),
		result: &res,
	}
}

// repromptSelection answers a message that carried no date+time token while
// a selection is pending.
func (a *Agent) repromptSelection(sess *Session) stageOutput {
	return stageOutput{text: "I couldn't recognise a date and time in your reply. " + slotFormatHint +
		"\nAvailable options:\n" + formatSlotList(sess.CandidateSlots)}
}

// pickCandidate finds the candidate for dateSlot. When several doctors share
// the same date slot the one named in text wins, otherwise the first listed.
func pickCandidate(candidates []appointments.SlotRef, dateSlot, text string) (appointments.SlotRef, bool) {
	lower := strings.ToLower(text)
	var first *appointments.SlotRef
	for i := range candidates {
		c := candidates[i]
		if c.DateSlot != dateSlot {
			continue
		}
		if strings.Contains(lower, c.Doctor) {
			return c, true
		}
		if first == nil {
			first = &candidates[i]
		}
	}
	if first == nil {
		return appointments.SlotRef{}, false
	}
	return *first, true
}

func removeCandidate(candidates []appointments.SlotRef, ref appointments.SlotRef) []appointments.SlotRef {
	out := make([]appointments.SlotRef, 0, len(candidates))
	for _, c := range candidates {
		if c.Doctor == ref.Doctor && c.DateSlot == ref.DateSlot {
			continue
		}
		out = append(out, c)
	}
	return out
}
