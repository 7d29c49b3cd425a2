package handlers

import (
	"net/http"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// AppointmentsHandler exposes a read-only view of the appointment table.
type AppointmentsHandler struct {
	store  appointments.Store
	logger *logging.Logger
}

func NewAppointmentsHandler(store appointments.Store, logger *logging.Logger) *AppointmentsHandler {
	if store == nil {
		panic("handlers: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentsHandler{store: store, logger: logger}
}

type slotView struct {
	Doctor         string `json:"doctor"`
	Specialization string `json:"specialization"`
	DateSlot       string `json:"date_slot"`
	IsAvailable    bool   `json:"is_available"`
}

// List supports ?doctor=, ?specialization= and ?available=true. Patient
// details are never exposed.
func (h *AppointmentsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	slots, err := h.store.List(r.Context(), appointments.Filter{
		Doctor:         q.Get("doctor"),
		Specialization: q.Get("specialization"),
	})
	if err != nil {
		h.logger.Error("list appointments failed", "error", err)
		jsonError(w, "failed to list appointments", http.StatusInternalServerError)
		return
	}

	onlyAvailable := q.Get("available") == "true"
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		if onlyAvailable && !s.IsAvailable {
			continue
		}
		out = append(out, slotView{
			Doctor:         s.DoctorName,
			Specialization: s.Specialization,
			DateSlot:       s.DateSlot,
			IsAvailable:    s.IsAvailable,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(out), "slots": out})
}
