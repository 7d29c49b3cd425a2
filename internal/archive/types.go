package archive

import "time"

// RecordVersion is bumped when TranscriptRecord changes shape.
const RecordVersion = "1"

// TranscriptRecord is one closed conversation as written to the archive bucket.
type TranscriptRecord struct {
	Version         string          `json:"version"`
	SessionID       string          `json:"session_id"`
	ArchivedAt      time.Time       `json:"archived_at"`
	DurationSeconds int             `json:"duration_seconds"`
	MessageCount    int             `json:"message_count"`
	Outcome         string          `json:"outcome"`
	Booking         *BookingSummary `json:"booking,omitempty"`
	Messages        []Message       `json:"messages"`
}

// BookingSummary identifies the appointment a conversation produced. Patient
// contact details are deliberately absent.
type BookingSummary struct {
	Doctor             string `json:"doctor"`
	Specialization     string `json:"specialization,omitempty"`
	DateSlot           string `json:"date_slot"`
	ConfirmationNumber string `json:"confirmation_number"`
}

// Message is a single conversation turn.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
	Outcome      string `json:"outcome"`
}
