package bootstrap

import (
	"github.com/wolfman30/appointment-agent/internal/archive"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/dialogue"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// BuildArchiver returns the S3 transcript archiver, or nil when no bucket or
// client is configured.
func BuildArchiver(cfg *appconfig.Config, client archive.S3API, transcripts archive.TranscriptReader, logger *logging.Logger) dialogue.Archiver {
	if cfg == nil || cfg.ArchiveBucket == "" || client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	archiver := archive.NewArchiver(archive.NewStore(client, cfg.ArchiveBucket, logger), transcripts, logger)
	if archiver == nil {
		return nil
	}
	logger.Info("transcript archive enabled", "bucket", cfg.ArchiveBucket)
	return archiver
}
