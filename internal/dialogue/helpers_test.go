package dialogue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/oracle"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// fakeOracle answers from per-message scripts so routing is deterministic.
type fakeOracle struct {
	mu       sync.Mutex
	intents  map[string]oracle.Intent
	queries  map[string]appointments.Query
	patients map[string]oracle.PatientInfo
	book     map[string]bool
	err      error

	classifyCalls int
	bookCalls     int
}

func newFakeOracle() *fakeOracle {
	return &fakeOracle{
		intents:  map[string]oracle.Intent{},
		queries:  map[string]appointments.Query{},
		patients: map[string]oracle.PatientInfo{},
		book:     map[string]bool{},
	}
}

func (f *fakeOracle) Classify(_ context.Context, text, _ string) (oracle.Intent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.classifyCalls++
	if f.err != nil {
		return "", f.err
	}
	if intent, ok := f.intents[text]; ok {
		return intent, nil
	}
	return oracle.IntentCheckAvailability, nil
}

func (f *fakeOracle) ExtractQuery(_ context.Context, text string) (appointments.Query, error) {
	if f.err != nil {
		return appointments.Query{}, f.err
	}
	return f.queries[text], nil
}

func (f *fakeOracle) ExtractPatient(_ context.Context, text string) (oracle.PatientInfo, error) {
	if f.err != nil {
		return oracle.PatientInfo{}, f.err
	}
	return f.patients[text], nil
}

func (f *fakeOracle) WantsToBook(_ context.Context, text string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bookCalls++
	if f.err != nil {
		return false, f.err
	}
	return f.book[text], nil
}

type memSessions struct {
	mu   sync.Mutex
	data map[string]Session
	err  error
}

func (m *memSessions) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if s, ok := m.data[id]; ok {
		return &s, nil
	}
	return NewSession(id), nil
}

func (m *memSessions) Save(_ context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = map[string]Session{}
	}
	m.data[sess.ID] = *sess
	return nil
}

type memTurns struct {
	mu    sync.Mutex
	turns map[string][]Turn
}

func (m *memTurns) Append(_ context.Context, id string, turn Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.turns == nil {
		m.turns = map[string][]Turn{}
	}
	m.turns[id] = append(m.turns[id], turn)
	return nil
}

// claimFailStore simulates a store fault at commit time.
type claimFailStore struct {
	*appointments.MemoryStore
	err error
}

func (s claimFailStore) Claim(context.Context, string, string, appointments.Patient, string) (appointments.Slot, error) {
	return appointments.Slot{}, s.err
}

var errStoreDown = errors.New("connection reset")

func seedSlots(t *testing.T) *appointments.MemoryStore {
	t.Helper()
	store := appointments.NewMemoryStore()
	require.NoError(t, store.Seed(context.Background(), []appointments.Slot{
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "08-08-2024 20:00", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "08-08-2024 20:30", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 08:00", IsAvailable: false, PatientName: "Ana Ruiz"},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 08:30", IsAvailable: true},
		{DoctorName: "jane doe", Specialization: "general_dentist", DateSlot: "09-08-2024 09:00", IsAvailable: true},
		{DoctorName: "john doe", Specialization: "orthodontist", DateSlot: "05-08-2024 08:00", IsAvailable: true},
		{DoctorName: "john doe", Specialization: "orthodontist", DateSlot: "05-08-2024 08:30", IsAvailable: false},
	}))
	return store
}

type archivedSession struct {
	sessionID string
	outcome   Outcome
	result    *appointments.Result
}

type recordingArchiver struct {
	archived []archivedSession
}

func (r *recordingArchiver) ArchiveSession(_ context.Context, sessionID string, outcome Outcome, result *appointments.Result) {
	r.archived = append(r.archived, archivedSession{sessionID: sessionID, outcome: outcome, result: result})
}

type testHarness struct {
	agent    *Agent
	oracle   *fakeOracle
	store    *appointments.MemoryStore
	sessions *memSessions
	turns    *memTurns
	archiver *recordingArchiver
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	store := seedSlots(t)
	return newHarnessWithStore(t, store, store)
}

func newHarnessWithStore(t *testing.T, mem *appointments.MemoryStore, store appointments.Store) *testHarness {
	t.Helper()
	logger := logging.New("error")
	h := &testHarness{
		oracle:   newFakeOracle(),
		store:    mem,
		sessions: &memSessions{},
		turns:    &memTurns{},
		archiver: &recordingArchiver{},
	}
	h.agent = NewAgent(Deps{
		Oracle:   h.oracle,
		Resolver: appointments.NewResolver(store, logger),
		Engine: appointments.NewEngine(store, logger, appointments.WithClock(func() time.Time {
			return time.Date(2024, 8, 1, 9, 30, 15, 0, time.UTC)
		})),
		Sessions: h.sessions,
		Turns:    h.turns,
		Archiver: h.archiver,
		Logger:   logger,
	})
	return h
}

func (h *testHarness) say(t *testing.T, sessionID, text string) Reply {
	t.Helper()
	reply, err := h.agent.HandleTurn(context.Background(), sessionID, text)
	require.NoError(t, err)
	return reply
}

func (h *testHarness) session(t *testing.T, id string) *Session {
	t.Helper()
	sess, err := h.sessions.Load(context.Background(), id)
	require.NoError(t, err)
	return sess
}

func (h *testHarness) slot(t *testing.T, doctor, dateSlot string) appointments.Slot {
	t.Helper()
	slot, err := h.store.Get(context.Background(), doctor, dateSlot)
	require.NoError(t, err)
	return slot
}
