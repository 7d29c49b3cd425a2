package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	objects  map[string][]byte
	putErr   error
	getErr   error
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: aws.ToString(input.Bucket),
		key:    aws.ToString(input.Key),
		body:   body,
	})
	m.objects[aws.ToString(input.Key)] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	data, ok := m.objects[aws.ToString(input.Key)]
	if !ok {
		return nil, &s3types.NoSuchKey{Message: aws.String("key not found")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func newTestStore(client S3API) *Store {
	store := NewStore(client, "test-bucket", logging.New("error"))
	store.now = func() time.Time { return time.Date(2024, 8, 8, 20, 5, 0, 0, time.UTC) }
	return store
}

func TestStore_ArchiveTranscript(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock)
	at := time.Date(2024, 8, 8, 20, 5, 9, 0, time.UTC)

	record := &TranscriptRecord{
		Version:      RecordVersion,
		SessionID:    "sess-123",
		ArchivedAt:   at,
		MessageCount: 2,
		Outcome:      "booked",
		Booking:      &BookingSummary{Doctor: "jane doe", DateSlot: "08-08-2024 20:00", ConfirmationNumber: "APPT-20240808200509"},
		Messages: []Message{
			{Role: "user", Content: "yes", Timestamp: at},
			{Role: "agent", Content: "Booked!", Timestamp: at},
		},
	}
	require.NoError(t, store.ArchiveTranscript(context.Background(), record))

	require.Len(t, mock.putCalls, 2, "transcript plus manifest")
	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)
	assert.Equal(t, "transcripts/v1/by-date/2024/08/08/sess-123-200509.json", mock.putCalls[0].key)

	var decoded TranscriptRecord
	require.NoError(t, json.Unmarshal(mock.putCalls[0].body, &decoded))
	assert.Equal(t, "sess-123", decoded.SessionID)
	require.NotNil(t, decoded.Booking)
	assert.Equal(t, "APPT-20240808200509", decoded.Booking.ConfirmationNumber)

	assert.Equal(t, "transcripts/v1/manifests/2024-08.jsonl", mock.putCalls[1].key)
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "sess-123", entry.SessionID)
	assert.Equal(t, mock.putCalls[0].key, entry.S3Key)
	assert.Equal(t, "booked", entry.Outcome)
}

func TestStore_ArchiveTranscriptDefaultsTimestamp(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock)

	record := &TranscriptRecord{SessionID: "s1"}
	require.NoError(t, store.ArchiveTranscript(context.Background(), record))
	assert.Equal(t, time.Date(2024, 8, 8, 20, 5, 0, 0, time.UTC), record.ArchivedAt)
	assert.Equal(t, "transcripts/v1/by-date/2024/08/08/s1-200500.json", mock.putCalls[0].key)
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())
	assert.NoError(t, store.ArchiveTranscript(context.Background(), &TranscriptRecord{}))

	var nilStore *Store
	assert.False(t, nilStore.Enabled())
}

func TestStore_PutFailure(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	store := newTestStore(mock)

	err := store.ArchiveTranscript(context.Background(), &TranscriptRecord{SessionID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive: s3 put")
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := newTestStore(mock)

	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s1", Outcome: "booked"}))
	require.NoError(t, store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s2", Outcome: "ended"}))

	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	assert.Len(t, lines, 2)
}

func TestStore_ManifestReadFailure(t *testing.T) {
	mock := newMockS3()
	mock.getErr = errors.New("throttled")
	store := newTestStore(mock)

	err := store.AppendManifest(context.Background(), ManifestEntry{SessionID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
	assert.Empty(t, mock.putCalls, "an unreadable manifest is not overwritten")

	// The transcript itself still lands.
	require.NoError(t, store.ArchiveTranscript(context.Background(), &TranscriptRecord{SessionID: "s1"}))
	assert.Len(t, mock.putCalls, 1)
}
