package scheduler

import (
	"github.com/aristath/pricer/internal/database"
	"github.com/rs/zerolog"
)

// WALCheckpointJob truncates the write-ahead log of the pricing database.
type WALCheckpointJob struct {
	db  *database.DB
	log zerolog.Logger
}

// NewWALCheckpointJob creates a new WALCheckpointJob
func NewWALCheckpointJob(db *database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the checkpoint
func (j *WALCheckpointJob) Run() error {
	if err := j.db.WALCheckpoint(); err != nil {
		return err
	}

	if stats, err := j.db.GetStats(); err == nil {
		j.log.Debug().
			Str("database", j.db.Name()).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("WAL checkpoint complete")
	}
	return nil
}
