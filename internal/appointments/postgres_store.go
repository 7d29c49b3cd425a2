package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

const slotColumns = `doctor_name, specialization, date_slot, is_available,
	patient_name, patient_age, patient_phone, confirmation_number, updated_at`

// PostgresStore persists the appointment table in PostgreSQL.
type PostgresStore struct {
	pool pgxQuerier
}

// NewPostgresStore creates a store backed by a pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{pool: pool}
}

func newPostgresStoreWithQuerier(q pgxQuerier) *PostgresStore {
	if q == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{pool: q}
}

func (s *PostgresStore) Get(ctx context.Context, doctor, dateSlot string) (Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM appointments WHERE doctor_name = $1 AND date_slot = $2`
	slot, err := scanSlot(s.pool.QueryRow(ctx, query, NormalizeDoctor(doctor), dateSlot))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Slot{}, ErrSlotNotFound
		}
		return Slot{}, fmt.Errorf("appointments: get slot: %w", err)
	}
	return slot, nil
}

func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]Slot, error) {
	filter = filter.normalized()
	query := `SELECT ` + slotColumns + ` FROM appointments
		WHERE ($1 = '' OR doctor_name = $1)
		  AND ($2 = '' OR specialization = $2)
		ORDER BY id`
	rows, err := s.pool.Query(ctx, query, filter.Doctor, filter.Specialization)
	if err != nil {
		return nil, fmt.Errorf("appointments: list slots: %w", err)
	}
	defer rows.Close()

	var slots []Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// Claim flips availability with a single conditional UPDATE and records a
// booking event in the same transaction.
func (s *PostgresStore) Claim(ctx context.Context, doctor, dateSlot string, patient Patient, confirmation string) (Slot, error) {
	doctor = NormalizeDoctor(doctor)
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Slot{}, fmt.Errorf("appointments: begin claim: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	query := `
		UPDATE appointments
		SET is_available = FALSE,
		    patient_name = $3,
		    patient_age = $4,
		    patient_phone = $5,
		    confirmation_number = $6,
		    updated_at = now()
		WHERE doctor_name = $1 AND date_slot = $2 AND is_available
		RETURNING ` + slotColumns
	slot, err := scanSlot(tx.QueryRow(ctx, query, doctor, dateSlot, patient.Name, int32(patient.Age), patient.Phone, confirmation))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return Slot{}, fmt.Errorf("appointments: claim slot: %w", err)
		}
		var exists int
		existsErr := tx.QueryRow(ctx, `SELECT 1 FROM appointments WHERE doctor_name = $1 AND date_slot = $2`, doctor, dateSlot).Scan(&exists)
		if errors.Is(existsErr, pgx.ErrNoRows) {
			return Slot{}, ErrSlotNotFound
		}
		if existsErr != nil {
			return Slot{}, fmt.Errorf("appointments: check slot: %w", existsErr)
		}
		return Slot{}, ErrSlotUnavailable
	}

	payload, err := json.Marshal(slot)
	if err != nil {
		return Slot{}, fmt.Errorf("appointments: marshal booking event: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO booking_events (id, doctor_name, date_slot, confirmation_number, payload)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New(), doctor, dateSlot, confirmation, payload); err != nil {
		return Slot{}, fmt.Errorf("appointments: insert booking event: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Slot{}, fmt.Errorf("appointments: commit claim: %w", err)
	}
	committed = true
	return slot, nil
}

// Seed inserts the static enumeration, skipping rows that already exist.
func (s *PostgresStore) Seed(ctx context.Context, slots []Slot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("appointments: begin seed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()
	query := `
		INSERT INTO appointments (doctor_name, specialization, date_slot, is_available, patient_name)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		ON CONFLICT (doctor_name, date_slot) DO NOTHING
	`
	for _, slot := range slots {
		if _, err := tx.Exec(ctx, query,
			NormalizeDoctor(slot.DoctorName),
			NormalizeSpecialization(slot.Specialization),
			slot.DateSlot,
			slot.IsAvailable,
			slot.PatientName,
		); err != nil {
			return fmt.Errorf("appointments: seed slot %s/%s: %w", slot.DoctorName, slot.DateSlot, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("appointments: commit seed: %w", err)
	}
	committed = true
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM appointments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("appointments: count slots: %w", err)
	}
	return n, nil
}

func scanSlot(row pgx.Row) (Slot, error) {
	var (
		slot                     Slot
		patientName, phone, conf pgtype.Text
		age                      pgtype.Int4
		updatedAt                pgtype.Timestamptz
	)
	if err := row.Scan(
		&slot.DoctorName,
		&slot.Specialization,
		&slot.DateSlot,
		&slot.IsAvailable,
		&patientName,
		&age,
		&phone,
		&conf,
		&updatedAt,
	); err != nil {
		return Slot{}, err
	}
	slot.PatientName = patientName.String
	slot.PatientAge = int(age.Int32)
	slot.PatientPhone = phone.String
	slot.ConfirmationNumber = conf.String
	if updatedAt.Valid {
		slot.UpdatedAt = updatedAt.Time
	}
	return slot, nil
}
