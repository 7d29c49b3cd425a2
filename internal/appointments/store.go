package appointments

import (
	"context"
	"sync"
	"time"
)

// Store is the shared appointment table. Claim is the only mutation of a seeded
// slot and must flip availability and stamp the patient atomically.
type Store interface {
	Get(ctx context.Context, doctor, dateSlot string) (Slot, error)
	List(ctx context.Context, filter Filter) ([]Slot, error)
	Claim(ctx context.Context, doctor, dateSlot string, patient Patient, confirmation string) (Slot, error)
	Seed(ctx context.Context, slots []Slot) error
	Count(ctx context.Context) (int, error)
}

type slotKey struct {
	doctor   string
	dateSlot string
}

// MemoryStore keeps the table in process memory, ordered by insertion.
type MemoryStore struct {
	mu    sync.RWMutex
	slots []Slot
	index map[slotKey]int
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory table.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[slotKey]int),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, doctor, dateSlot string) (Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[slotKey{NormalizeDoctor(doctor), dateSlot}]
	if !ok {
		return Slot{}, ErrSlotNotFound
	}
	return s.slots[i], nil
}

func (s *MemoryStore) List(ctx context.Context, filter Filter) ([]Slot, error) {
	filter = filter.normalized()
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Slot, 0, len(s.slots))
	for _, slot := range s.slots {
		if filter.matches(slot) {
			out = append(out, slot)
		}
	}
	return out, nil
}

// Claim performs the availability compare-and-swap under the table lock.
func (s *MemoryStore) Claim(ctx context.Context, doctor, dateSlot string, patient Patient, confirmation string) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[slotKey{NormalizeDoctor(doctor), dateSlot}]
	if !ok {
		return Slot{}, ErrSlotNotFound
	}
	slot := s.slots[i]
	if !slot.IsAvailable {
		return slot, ErrSlotUnavailable
	}
	slot.IsAvailable = false
	slot.PatientName = patient.Name
	slot.PatientAge = patient.Age
	slot.PatientPhone = patient.Phone
	slot.ConfirmationNumber = confirmation
	slot.UpdatedAt = s.now().UTC()
	s.slots[i] = slot
	return slot, nil
}

// Seed inserts slots that are not yet present. Existing rows are left untouched
// so reseeding never resurrects a booked slot.
func (s *MemoryStore) Seed(ctx context.Context, slots []Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slot := range slots {
		slot.DoctorName = NormalizeDoctor(slot.DoctorName)
		slot.Specialization = NormalizeSpecialization(slot.Specialization)
		key := slotKey{slot.DoctorName, slot.DateSlot}
		if _, exists := s.index[key]; exists {
			continue
		}
		s.index[key] = len(s.slots)
		s.slots = append(s.slots, slot)
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.slots), nil
}
