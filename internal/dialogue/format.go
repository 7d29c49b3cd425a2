package dialogue

import (
	"fmt"
	"strings"

	"github.com/wolfman30/appointment-agent/internal/appointments"
)

const (
	apologyText        = "Sorry, I'm having trouble understanding right now. Could you please try again?"
	patientDetailsHint = "Please provide the patient's full name, age and phone number (for example: John Smith, 35, 555-1234)."
	slotFormatHint     = "Please reply with the date and time exactly as listed (DD-MM-YYYY HH:MM)."
)

func formatSlotRef(ref appointments.SlotRef) string {
	line := fmt.Sprintf("%s with Dr. %s", ref.DateSlot, appointments.DisplayName(ref.Doctor))
	if ref.Specialization != "" {
		line += fmt.Sprintf(" (%s)", appointments.DisplaySpecialization(ref.Specialization))
	}
	return line
}

func formatSlotList(refs []appointments.SlotRef) string {
	var b strings.Builder
	for i, ref := range refs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, formatSlotRef(ref))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatDraft(d Draft) string {
	return fmt.Sprintf("Please confirm the booking:\n"+
		"Doctor: Dr. %s\nDate: %s\nTime: %s\nPatient: %s\nAge: %d\nPhone: %s\n"+
		"Reply 'yes' to confirm or 'no' to cancel.",
		appointments.DisplayName(d.Doctor), d.Date, d.Time, d.PatientName, d.PatientAge, d.PatientPhone)
}

func formatMissing(missing []string) string {
	var b strings.Builder
	b.WriteString("I still need the following details to book:")
	for _, field := range missing {
		b.WriteString("\n- ")
		b.WriteString(field)
	}
	return b.String()
}

// normalizeReply lowercases and strips surrounding punctuation from a short reply.
func normalizeReply(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!?, ")
}
