package appointments

// Status is the outcome of a query or commit against the appointment table.
type Status string

const (
	StatusAvailable         Status = "available"
	StatusUnavailable       Status = "unavailable"
	StatusMultipleAvailable Status = "multiple_available"
	StatusNotFound          Status = "not_found"
	StatusNoAvailability    Status = "no_availability"
	StatusBooked            Status = "booked"
	StatusError             Status = "error"
)

// Result is produced by the Resolver and the Engine and consumed by the
// dialogue stages when formatting replies. Fields are populated per status.
type Result struct {
	Status         Status `json:"status"`
	Message        string `json:"message"`
	Doctor         string `json:"doctor,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	DateSlot       string `json:"date_slot,omitempty"`

	// unavailable
	BookedFor string `json:"booked_for,omitempty"`

	// unavailable / not_found
	Alternatives []SlotRef `json:"alternatives,omitempty"`

	// multiple_available; Count is the total before the presentation cap.
	Slots []SlotRef `json:"slots,omitempty"`
	Count int       `json:"count,omitempty"`

	// booked
	ConfirmationNumber string `json:"confirmation_number,omitempty"`
	PatientName        string `json:"patient_name,omitempty"`
	PatientAge         int    `json:"patient_age,omitempty"`
	PatientPhone       string `json:"patient_phone,omitempty"`
}

// Candidates returns the slots a user may pick from after this result.
func (r Result) Candidates() []SlotRef {
	switch r.Status {
	case StatusMultipleAvailable:
		return r.Slots
	case StatusUnavailable, StatusNotFound:
		return r.Alternatives
	default:
		return nil
	}
}

func errorResult(message string) Result {
	return Result{Status: StatusError, Message: message}
}
