package conversion

import (
	"time"

	"clipforge/internal/models"
)

// Store is the authoritative, thread-safe registry of job records. It is the
// only shared mutable state touched by worker executions; all methods are safe
// for concurrent use and hold locks only for the duration of the
// read-modify-write, never across subprocess execution.
type Store interface {
	CreateJob(jobID string, files []models.FileTask, workspacePath string) (*models.Job, error)
	GetSnapshot(jobID string) (*models.JobView, error)
	MarkRunning(jobID string, fileIndex int) error
	UpdateProgress(jobID string, fileIndex int, percent float64, estSeconds *float64) error
	RecordResult(jobID string, fileIndex int, outcome Outcome) error
	SweepExpired(now time.Time, ttl time.Duration) []string
}

// Outcome is the terminal result of one file task execution.
type Outcome struct {
	Succeeded  bool
	ErrMessage string
	Download   *models.DownloadRef
}
