package appointments

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

func testLogger() *logging.Logger {
	return logging.New("error")
}

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), []Slot{
		{DoctorName: "Jane Doe", Specialization: "general dentist", DateSlot: "08-08-2024 20:00", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "08-08-2024 20:30", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 08:00", IsAvailable: false, PatientName: "Ana Ruiz"},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 08:30", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 09:00", IsAvailable: true},
		{DoctorName: "john doe", Specialization: "orthodontist", DateSlot: "05-08-2024 08:00", IsAvailable: true},
		{DoctorName: "john doe", Specialization: "orthodontist", DateSlot: "05-08-2024 08:30", IsAvailable: false},
	}))
	return store
}
