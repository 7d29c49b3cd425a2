package appointments

import (
	"context"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotCols = []string{
	"doctor_name", "specialization", "date_slot", "is_available",
	"patient_name", "patient_age", "patient_phone", "confirmation_number", "updated_at",
}

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithQuerier(mock), mock
}

func TestPostgresStoreGet(t *testing.T) {
	store, mock := newMockStore(t)
	rows := pgxmock.NewRows(slotCols).
		AddRow("jane doe", "general_dentist", "08-08-2024 20:00", true, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT doctor_name").WithArgs("jane doe", "08-08-2024 20:00").WillReturnRows(rows)

	slot, err := store.Get(context.Background(), "Dr. Jane Doe", "08-08-2024 20:00")
	require.NoError(t, err)
	assert.True(t, slot.IsAvailable)
	assert.Equal(t, "general_dentist", slot.Specialization)
	assert.Empty(t, slot.PatientName)

	mock.ExpectQuery("SELECT doctor_name").WithArgs("jane doe", "01-01-2030 10:00").WillReturnRows(pgxmock.NewRows(slotCols))
	_, err = store.Get(context.Background(), "jane doe", "01-01-2030 10:00")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreList(t *testing.T) {
	store, mock := newMockStore(t)
	rows := pgxmock.NewRows(slotCols).
		AddRow("jane doe", "general_dentist", "08-08-2024 20:00", false, "Ana", int64(30), "555-0000", "APPT-20240801000000", nil).
		AddRow("jane doe", "general_dentist", "08-08-2024 20:30", true, nil, nil, nil, nil, nil)
	mock.ExpectQuery("SELECT doctor_name").WithArgs("jane doe", "").WillReturnRows(rows)

	slots, err := store.List(context.Background(), Filter{Doctor: "Jane Doe"})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, "Ana", slots[0].PatientName)
	assert.Equal(t, 30, slots[0].PatientAge)
	assert.Equal(t, "APPT-20240801000000", slots[0].ConfirmationNumber)
	assert.True(t, slots[1].IsAvailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreClaimWritesSlotAndEvent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").
		WithArgs("jane doe", "08-08-2024 20:00", "John Smith", int32(35), "555-1234", "APPT-20240801093015").
		WillReturnRows(pgxmock.NewRows(slotCols).
			AddRow("jane doe", "general_dentist", "08-08-2024 20:00", false, "John Smith", int64(35), "555-1234", "APPT-20240801093015", nil))
	mock.ExpectExec("INSERT INTO booking_events").
		WithArgs(pgxmock.AnyArg(), "jane doe", "08-08-2024 20:00", "APPT-20240801093015", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	slot, err := store.Claim(context.Background(), "jane doe", "08-08-2024 20:00",
		Patient{Name: "John Smith", Age: 35, Phone: "555-1234"}, "APPT-20240801093015")
	require.NoError(t, err)
	assert.False(t, slot.IsAvailable)
	assert.Equal(t, "APPT-20240801093015", slot.ConfirmationNumber)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreClaimAlreadyBookedRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").WillReturnRows(pgxmock.NewRows(slotCols))
	mock.ExpectQuery("SELECT 1 FROM appointments").
		WithArgs("jane doe", "08-08-2024 20:00").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectRollback()

	_, err := store.Claim(context.Background(), "jane doe", "08-08-2024 20:00", Patient{Name: "B", Age: 2, Phone: "2"}, "APPT-2")
	assert.ErrorIs(t, err, ErrSlotUnavailable)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreClaimMissingSlot(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE appointments").WillReturnRows(pgxmock.NewRows(slotCols))
	mock.ExpectQuery("SELECT 1 FROM appointments").WillReturnRows(pgxmock.NewRows([]string{"?column?"}))
	mock.ExpectRollback()

	_, err := store.Claim(context.Background(), "jane doe", "01-01-2030 10:00", Patient{Name: "B", Age: 2, Phone: "2"}, "APPT-2")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreSeedAndCount(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO appointments").
		WithArgs("jane doe", "general_dentist", "08-08-2024 20:00", true, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT count").WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	err := store.Seed(context.Background(), []Slot{{DoctorName: "Jane Doe", Specialization: "General Dentist", DateSlot: "08-08-2024 20:00", IsAvailable: true}})
	require.NoError(t, err)
	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, mock.ExpectationsWereMet())
}
