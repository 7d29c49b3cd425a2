package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const (
	// ConfirmationLayout is the compact timestamp appended to "APPT-".
	ConfirmationLayout = "20060102150405"

	// MaxPatientAge bounds the ages a booking will accept.
	MaxPatientAge = 150
)

// Booking is a fully specified commit request.
type Booking struct {
	Doctor       string `json:"doctor"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	PatientName  string `json:"patient_name"`
	PatientAge   int    `json:"patient_age"`
	PatientPhone string `json:"patient_phone"`
}

// DateSlot returns the composite key the booking targets.
func (b Booking) DateSlot() string {
	return JoinDateSlot(b.Date, b.Time)
}

// BookingObserver receives one observation per commit outcome.
type BookingObserver interface {
	ObserveBooking(status string)
}

// Engine commits bookings against the Store.
type Engine struct {
	store    Store
	logger   *logging.Logger
	observer BookingObserver
	now      func() time.Time
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithClock overrides the clock used for confirmation numbers.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithBookingObserver attaches a metrics sink.
func WithBookingObserver(o BookingObserver) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine creates a booking engine.
func NewEngine(store Store, logger *logging.Logger, opts ...EngineOption) *Engine {
	if store == nil {
		panic("appointments: engine store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ConfirmationNumber formats the token for a booking instant.
func ConfirmationNumber(at time.Time) string {
	return "APPT-" + at.Format(ConfirmationLayout)
}

// Commit re-validates and claims the slot in one atomic store operation.
// Statuses: booked, unavailable, error. Nothing is written unless booked.
func (e *Engine) Commit(ctx context.Context, b Booking) Result {
	res := e.commit(ctx, b)
	if e.observer != nil {
		e.observer.ObserveBooking(string(res.Status))
	}
	return res
}

func (e *Engine) commit(ctx context.Context, b Booking) Result {
	doctor := NormalizeDoctor(b.Doctor)
	dateSlot := b.DateSlot()
	if doctor == "" || strings.TrimSpace(b.Date) == "" || strings.TrimSpace(b.Time) == "" {
		return errorResult("Error: booking is missing doctor, date or time")
	}
	if strings.TrimSpace(b.PatientName) == "" || b.PatientAge <= 0 || strings.TrimSpace(b.PatientPhone) == "" {
		return errorResult("Error: booking is missing patient details")
	}
	if b.PatientAge > MaxPatientAge {
		return errorResult(fmt.Sprintf("Error: patient age must be between 1 and %d", MaxPatientAge))
	}

	confirmation := ConfirmationNumber(e.now())
	slot, err := e.store.Claim(ctx, doctor, dateSlot, Patient{
		Name:  strings.TrimSpace(b.PatientName),
		Age:   b.PatientAge,
		Phone: strings.TrimSpace(b.PatientPhone),
	}, confirmation)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return Result{Status: StatusUnavailable, Doctor: doctor, DateSlot: dateSlot, Message: "Slot no longer available."}
	case errors.Is(err, ErrSlotUnavailable):
		return Result{Status: StatusUnavailable, Doctor: doctor, DateSlot: dateSlot, Message: "Slot already booked."}
	case err != nil:
		e.logger.Error("booking commit failed", "error", err, "doctor", doctor, "date_slot", dateSlot)
		return errorResult(fmt.Sprintf("Error: %v", err))
	}

	e.logger.Info("appointment booked",
		"doctor", doctor,
		"date_slot", dateSlot,
		"confirmation_number", confirmation,
	)
	return Result{
		Status:             StatusBooked,
		Doctor:             slot.DoctorName,
		Specialization:     slot.Specialization,
		DateSlot:           slot.DateSlot,
		ConfirmationNumber: confirmation,
		PatientName:        slot.PatientName,
		PatientAge:         slot.PatientAge,
		PatientPhone:       slot.PatientPhone,
		Message: fmt.Sprintf("Appointment successfully booked for %s with Dr. %s on %s",
			slot.PatientName, DisplayName(slot.DoctorName), slot.DateSlot),
	}
}
