package appointments

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

var seedDateLayouts = []string{
	DateSlotLayout,
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"1/2/2006 15:04",
}

// LoadCSV parses the seed table. Required columns are date_slot, specialization,
// doctor_name and is_available; patient_to_attend is optional.
func LoadCSV(r io.Reader) ([]Slot, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("appointments: seed csv is empty")
		}
		return nil, fmt.Errorf("appointments: read seed header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"date_slot", "specialization", "doctor_name", "is_available"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("appointments: seed csv missing column %q", required)
		}
	}
	patientCol, hasPatient := cols["patient_to_attend"]

	var slots []Slot
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("appointments: read seed line %d: %w", line, err)
		}
		dateSlot, err := normalizeSeedDateSlot(record[cols["date_slot"]])
		if err != nil {
			return nil, fmt.Errorf("appointments: seed line %d: %w", line, err)
		}
		available, err := strconv.ParseBool(strings.TrimSpace(record[cols["is_available"]]))
		if err != nil {
			return nil, fmt.Errorf("appointments: seed line %d: invalid is_available: %w", line, err)
		}
		slot := Slot{
			DoctorName:     NormalizeDoctor(record[cols["doctor_name"]]),
			Specialization: NormalizeSpecialization(record[cols["specialization"]]),
			DateSlot:       dateSlot,
			IsAvailable:    available,
		}
		if hasPatient && patientCol < len(record) {
			slot.PatientName = strings.TrimSpace(record[patientCol])
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

func normalizeSeedDateSlot(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range seedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format(DateSlotLayout), nil
		}
	}
	return "", fmt.Errorf("unrecognized date_slot %q", raw)
}
