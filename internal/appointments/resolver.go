package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const (
	// MaxAlternatives bounds the courtesy suggestions on an unavailable or missing slot.
	MaxAlternatives = 3
	// MaxPresentedSlots bounds a multiple_available listing.
	MaxPresentedSlots = 8
)

// Query is an availability lookup; any subset of fields may be empty.
type Query struct {
	Doctor         string `json:"doctor_name,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Date           string `json:"date,omitempty"`
	Time           string `json:"time,omitempty"`
}

// Resolver answers availability queries against a Store.
type Resolver struct {
	store  Store
	logger *logging.Logger
}

// NewResolver creates an availability resolver.
func NewResolver(store Store, logger *logging.Logger) *Resolver {
	if store == nil {
		panic("appointments: resolver store cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Resolve never returns an error: store faults become a StatusError result.
func (r *Resolver) Resolve(ctx context.Context, q Query) Result {
	filter := Filter{Doctor: q.Doctor, Specialization: q.Specialization}.normalized()
	slots, err := r.store.List(ctx, filter)
	if err != nil {
		r.logger.Error("availability lookup failed", "error", err, "doctor", filter.Doctor)
		return errorResult(fmt.Sprintf("Error checking availability: %v", err))
	}

	date, clock := strings.TrimSpace(q.Date), strings.TrimSpace(q.Time)
	if date != "" && clock != "" {
		return resolveExact(slots, JoinDateSlot(date, clock))
	}

	available := availableRefs(matchPartial(slots, date, clock), 0)
	if len(available) == 0 {
		return Result{
			Status:  StatusNoAvailability,
			Message: "No available slots found for the specified criteria",
		}
	}
	presented := available
	if len(presented) > MaxPresentedSlots {
		presented = presented[:MaxPresentedSlots]
	}
	return Result{
		Status:  StatusMultipleAvailable,
		Slots:   presented,
		Count:   len(available),
		Message: fmt.Sprintf("Found %d available slots", len(available)),
	}
}

// Recheck reads one offered slot straight from the store so a pick is
// judged against the table as it is now. It offers no alternatives.
func (r *Resolver) Recheck(ctx context.Context, ref SlotRef) Result {
	slot, err := r.store.Get(ctx, ref.Doctor, ref.DateSlot)
	switch {
	case errors.Is(err, ErrSlotNotFound):
		return Result{
			Status:   StatusNotFound,
			Doctor:   NormalizeDoctor(ref.Doctor),
			DateSlot: ref.DateSlot,
			Message:  "No slot found for the specified criteria",
		}
	case err != nil:
		r.logger.Error("slot recheck failed", "error", err, "doctor", ref.Doctor, "date_slot", ref.DateSlot)
		return errorResult(fmt.Sprintf("Error checking availability: %v", err))
	}
	return slotResult(slot)
}

func resolveExact(slots []Slot, dateSlot string) Result {
	for _, slot := range slots {
		if slot.DateSlot != dateSlot {
			continue
		}
		res := slotResult(slot)
		if res.Status == StatusUnavailable {
			res.Alternatives = availableRefs(slots, MaxAlternatives)
		}
		return res
	}
	return Result{
		Status:       StatusNotFound,
		Message:      "No slot found for the specified criteria",
		Alternatives: availableRefs(slots, MaxAlternatives),
	}
}

// slotResult reports a single known slot as available or unavailable.
func slotResult(slot Slot) Result {
	if slot.IsAvailable {
		return Result{
			Status:         StatusAvailable,
			Doctor:         slot.DoctorName,
			Specialization: slot.Specialization,
			DateSlot:       slot.DateSlot,
			Message:        fmt.Sprintf("Dr. %s is available on %s", DisplayName(slot.DoctorName), slot.DateSlot),
		}
	}
	msg := fmt.Sprintf("Dr. %s is not available on %s.", DisplayName(slot.DoctorName), slot.DateSlot)
	if slot.PatientName != "" {
		msg += " Already booked for: " + slot.PatientName
	}
	return Result{
		Status:         StatusUnavailable,
		Doctor:         slot.DoctorName,
		Specialization: slot.Specialization,
		DateSlot:       slot.DateSlot,
		BookedFor:      slot.PatientName,
		Message:        msg,
	}
}

// matchPartial keeps slots on the given date or at the given time when only one
// of the two was supplied.
func matchPartial(slots []Slot, date, clock string) []Slot {
	if date == "" && clock == "" {
		return slots
	}
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		d, c := SplitDateSlot(slot.DateSlot)
		if date != "" && d != date {
			continue
		}
		if clock != "" && c != clock {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// availableRefs returns available slots in table order; limit <= 0 means all.
func availableRefs(slots []Slot, limit int) []SlotRef {
	var out []SlotRef
	for _, slot := range slots {
		if !slot.IsAvailable {
			continue
		}
		out = append(out, slot.Ref())
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
