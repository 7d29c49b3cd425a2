package archive

import (
	"context"
	"time"

	"github.com/wolfman30/appointment-agent/internal/appointments"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

const defaultArchiveTimeout = 10 * time.Second

// TranscriptReader lists a session's turns oldest first; limit <= 0 returns all.
type TranscriptReader interface {
	List(ctx context.Context, sessionID string, limit int64) ([]dialogue.Turn, error)
}

// Archiver snapshots a session's chat log into the Store when the
// conversation closes. Errors are logged and never reach the caller.
type Archiver struct {
	store       *Store
	transcripts TranscriptReader
	logger      *logging.Logger
	timeout     time.Duration
}

// NewArchiver returns nil when the store is not enabled; a nil *Archiver is
// a valid no-op.
func NewArchiver(store *Store, transcripts TranscriptReader, logger *logging.Logger) *Archiver {
	if !store.Enabled() || transcripts == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{store: store, transcripts: transcripts, logger: logger, timeout: defaultArchiveTimeout}
}

// ArchiveSession implements dialogue.Archiver.
func (a *Archiver) ArchiveSession(ctx context.Context, sessionID string, outcome dialogue.Outcome, result *appointments.Result) {
	if a == nil {
		return
	}
	// The chat turn may finish before the upload; the upload keeps its own deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
	defer cancel()

	logger := a.logger.ForSession(sessionID)
	turns, err := a.transcripts.List(ctx, sessionID, 0)
	if err != nil {
		logger.Error("transcript archive: list turns failed", "error", err)
		return
	}

	record := buildRecord(sessionID, outcome, result, turns)
	if err := a.store.ArchiveTranscript(ctx, record); err != nil {
		logger.Error("transcript archive: upload failed", "error", err, "outcome", outcome)
	}
}

func buildRecord(sessionID string, outcome dialogue.Outcome, result *appointments.Result, turns []dialogue.Turn) *TranscriptRecord {
	msgs := make([]Message, 0, len(turns))
	for _, turn := range turns {
		msgs = append(msgs, Message{Role: string(turn.Role), Content: turn.Text, Timestamp: turn.Timestamp})
	}
	ScrubMessages(msgs)

	var duration int
	if len(msgs) >= 2 {
		duration = int(msgs[len(msgs)-1].Timestamp.Sub(msgs[0].Timestamp).Seconds())
	}

	record := &TranscriptRecord{
		Version:         RecordVersion,
		SessionID:       sessionID,
		DurationSeconds: duration,
		MessageCount:    len(msgs),
		Outcome:         string(outcome),
		Messages:        msgs,
	}
	if result != nil && result.Status == appointments.StatusBooked {
		record.Booking = &BookingSummary{
			Doctor:             result.Doctor,
			Specialization:     result.Specialization,
			DateSlot:           result.DateSlot,
			ConfirmationNumber: result.ConfirmationNumber,
		}
	}
	return record
}
