package appointments

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrSlotNotFound is returned when no slot exists for a doctor and date slot.
	ErrSlotNotFound = errors.New("appointments: slot not found")
	// ErrSlotUnavailable is returned when a slot exists but is already booked.
	ErrSlotUnavailable = errors.New("appointments: slot unavailable")
)

// DateSlotLayout is the canonical composite date+time key, e.g. "08-08-2024 20:00".
const DateSlotLayout = "02-01-2006 15:04"

// SlotPattern matches a date+time token anywhere in free text.
var SlotPattern = regexp.MustCompile(`\d{2}-\d{2}-\d{4} \d{2}:\d{2}`)

// Slot is one bookable (doctor, date, time) unit.
type Slot struct {
	DoctorName         string    `json:"doctor_name"`
	Specialization     string    `json:"specialization"`
	DateSlot           string    `json:"date_slot"`
	IsAvailable        bool      `json:"is_available"`
	PatientName        string    `json:"patient_name,omitempty"`
	PatientAge         int       `json:"patient_age,omitempty"`
	PatientPhone       string    `json:"patient_phone,omitempty"`
	ConfirmationNumber string    `json:"confirmation_number,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// Ref returns the lightweight reference used in candidate lists.
func (s Slot) Ref() SlotRef {
	return SlotRef{Doctor: s.DoctorName, Specialization: s.Specialization, DateSlot: s.DateSlot}
}

// SlotRef identifies a slot by its unique key plus its specialization for display.
type SlotRef struct {
	Doctor         string `json:"doctor"`
	Specialization string `json:"specialization,omitempty"`
	DateSlot       string `json:"date_slot"`
}

// Patient holds the fields stamped onto a slot when it is booked.
type Patient struct {
	Name  string `json:"patient_name"`
	Age   int    `json:"patient_age"`
	Phone string `json:"patient_phone"`
}

// Filter narrows a slot listing. Empty fields match everything.
type Filter struct {
	Doctor         string
	Specialization string
}

func (f Filter) normalized() Filter {
	return Filter{
		Doctor:         NormalizeDoctor(f.Doctor),
		Specialization: NormalizeSpecialization(f.Specialization),
	}
}

func (f Filter) matches(s Slot) bool {
	if f.Doctor != "" && s.DoctorName != f.Doctor {
		return false
	}
	if f.Specialization != "" && s.Specialization != f.Specialization {
		return false
	}
	return true
}

// NormalizeDoctor lowercases and trims a doctor name and drops a leading "dr." title.
func NormalizeDoctor(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, prefix := range []string{"dr.", "dr "} {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimSpace(strings.TrimPrefix(name, prefix))
			break
		}
	}
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeSpecialization lowercases, trims and joins words with underscores.
func NormalizeSpecialization(spec string) string {
	return strings.Join(strings.Fields(strings.ToLower(spec)), "_")
}

// JoinDateSlot builds the composite key from separate date and time parts.
func JoinDateSlot(date, clock string) string {
	return strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
}

// SplitDateSlot splits a composite key into its date and time parts.
func SplitDateSlot(dateSlot string) (date, clock string) {
	date, clock, _ = strings.Cut(strings.TrimSpace(dateSlot), " ")
	return date, clock
}

// FindDateSlot returns the first date+time token in text.
func FindDateSlot(text string) (string, bool) {
	match := SlotPattern.FindString(text)
	return match, match != ""
}

// DisplayName renders a normalized doctor name in title case.
func DisplayName(doctor string) string {
	words := strings.Fields(doctor)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// DisplaySpecialization renders "general_dentist" as "General Dentist".
func DisplaySpecialization(spec string) string {
	return DisplayName(strings.ReplaceAll(spec, "_", " "))
}
