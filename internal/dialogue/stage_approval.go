package dialogue

import (
	"context"
	"fmt"

	"github.com/wolfman30/appointment-agent/internal/appointments"
)

var (
	approvals  = map[string]bool{"yes": true, "y": true, "confirm": true, "book": true}
	rejections = map[string]bool{"no": true, "n": true, "cancel": true}
)

// runApproval is the only path to a store write. It commits on an explicit
// affirmative and on nothing else.
func (a *Agent) runApproval(ctx context.Context, sess *Session, text string) stageOutput {
	draft := sess.PendingBooking
	if draft == nil {
		sess.Reset()
		return stageOutput{text: "There is no pending booking to confirm. How can I help you?"}
	}

	reply := normalizeReply(text)
	switch {
	case approvals[reply]:
		res := a.engine.Commit(ctx, draft.Booking())
		if res.Status == appointments.StatusError {
			// The draft stays so the user can retry the approval.
			return stageOutput{
				text:   "Sorry, I couldn't complete the booking: " + res.Message + "\nReply 'yes' to try again or 'no' to cancel.",
				result: &res,
			}
		}
		sess.Reset()
		if res.Status == appointments.StatusBooked {
			return stageOutput{
				text: fmt.Sprintf("%s. Your confirmation number is %s.",
					res.Message, res.ConfirmationNumber),
				result: &res,
			}
		}
		return stageOutput{
			text:   "Sorry, the booking could not be completed: " + res.Message + " Would you like to look for another slot?",
			result: &res,
		}

	case rejections[reply]:
		sess.Reset()
		return stageOutput{text: "Booking cancelled. Let me know if you'd like to check other slots."}

	default:
		return stageOutput{text: "Please reply 'yes' to confirm the booking or 'no' to cancel.\n" + formatDraft(*draft)}
	}
}
