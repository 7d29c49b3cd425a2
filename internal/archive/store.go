// Package archive writes closed chat transcripts to S3 for later review.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Store archives transcript records to one S3 bucket.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// TranscriptKey is the object key for a record archived at the given time. A
// session that closes twice (booked, then goodbye) gets two objects.
func TranscriptKey(sessionID string, at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s-%s.json",
		at.Year(), at.Month(), at.Day(), sessionID, at.Format("150405"))
}

// ManifestKey is the monthly JSONL index covering the given time.
func ManifestKey(at time.Time) string {
	at = at.UTC()
	return fmt.Sprintf("transcripts/v1/manifests/%d-%02d.jsonl", at.Year(), at.Month())
}

// ArchiveTranscript writes record as JSON and appends it to the monthly manifest.
// A manifest failure is logged; the transcript itself is already stored.
func (s *Store) ArchiveTranscript(ctx context.Context, record *TranscriptRecord) error {
	if !s.Enabled() {
		return nil
	}
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = s.now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	key := TranscriptKey(record.SessionID, record.ArchivedAt)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived transcript",
		"session_id", record.SessionID,
		"s3_key", key,
		"message_count", record.MessageCount,
		"outcome", record.Outcome,
	)

	entry := ManifestEntry{
		SessionID:    record.SessionID,
		S3Key:        key,
		ArchivedAt:   record.ArchivedAt.Format(time.RFC3339),
		MessageCount: record.MessageCount,
		Outcome:      record.Outcome,
	}
	if err := s.AppendManifest(ctx, entry); err != nil {
		s.logger.Warn("failed to append manifest", "error", err, "session_id", record.SessionID)
	}
	return nil
}

// AppendManifest appends a JSONL line to the monthly manifest file.
// S3 has no append, so this is a read-modify-write.
func (s *Store) AppendManifest(ctx context.Context, entry ManifestEntry) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	key := ManifestKey(s.now())

	existing, err := s.readObject(ctx, key)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

// readObject returns nil content for a missing key.
func (s *Store) readObject(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			s.logger.Debug("manifest not found, creating new", "key", key)
			return nil, nil
		}
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	return data, nil
}
