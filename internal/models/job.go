package models

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusQueued              JobStatus = "queued"
	JobStatusRunning             JobStatus = "running"
	JobStatusDone                JobStatus = "done"
	JobStatusCompletedWithErrors JobStatus = "completed_with_errors"
	JobStatusFailed              JobStatus = "failed"
)

// Terminal reports whether no further transitions are possible for the job.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusDone, JobStatusCompletedWithErrors, JobStatusFailed:
		return true
	default:
		return false
	}
}

type FileStatus string

const (
	FileStatusPending   FileStatus = "pending"
	FileStatusRunning   FileStatus = "running"
	FileStatusSucceeded FileStatus = "succeeded"
	FileStatusFailed    FileStatus = "failed"
)

func (s FileStatus) Terminal() bool {
	return s == FileStatusSucceeded || s == FileStatusFailed
}

// TrimRange selects the portion of the input to convert, in seconds.
type TrimRange struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
}

// Duration returns the selected clip length, never below a small floor so
// percentage math stays defined.
func (t TrimRange) Duration() float64 {
	d := t.EndSec - t.StartSec
	if d < 0.01 {
		return 0.01
	}
	return d
}

// FileTask is one input-to-output conversion unit within a job. Index is the
// stable identity used for progress reporting and result aggregation.
type FileTask struct {
	Index        int        `json:"index"`
	OriginalName string     `json:"original_name"`
	InputPath    string     `json:"-"`
	OutputPath   string     `json:"-"`
	Trim         TrimRange  `json:"trim"`
	Status       FileStatus `json:"status"`
	Percent      float64    `json:"percent"`
	EstSeconds   *float64   `json:"est_seconds_remaining"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// Job is one batch conversion request. Files is fixed at creation.
type Job struct {
	JobID         string
	CreatedAt     time.Time
	Files         []FileTask
	Status        JobStatus
	WorkspacePath string
}

func NewJobID() string {
	return uuid.New().String()
}

// FileSpec describes one file of a submission before a job exists.
type FileSpec struct {
	OriginalName string
	Data         []byte
	Trim         TrimRange
}

// ConvertParams are the strategy-facing knobs of a submission.
type ConvertParams struct {
	Format string `json:"format" validate:"omitempty,lte=10"`
	Scale  string `json:"scale" validate:"required"`
	FPS    int    `json:"fps" validate:"required,gte=1,lte=20"`
}

// DownloadRef points a client at one completed output artifact.
type DownloadRef struct {
	FileIndex  int    `json:"file_index"`
	OutputName string `json:"output_name"`
	URL        string `json:"url"`
}

// FileView is the copy-out progress shape for a single task.
type FileView struct {
	Index        int        `json:"index"`
	OriginalName string     `json:"original_name"`
	Status       FileStatus `json:"status"`
	Percent      float64    `json:"percent"`
	EstSeconds   *float64   `json:"est_seconds_remaining"`
	ErrorMessage string     `json:"error_message,omitempty"`
}

// JobView is an immutable snapshot of a job consumed by progress pollers.
// Mutating a JobView never affects store state.
type JobView struct {
	JobID           string        `json:"job_id"`
	TotalFiles      int           `json:"total_files"`
	ProcessedFiles  int           `json:"processed_files"`
	SuccessfulFiles int           `json:"successful_files"`
	ErrorFiles      int           `json:"error_files"`
	OverallStatus   JobStatus     `json:"overall_status"`
	PerFile         []FileView    `json:"per_file"`
	Downloads       []DownloadRef `json:"downloads"`
	CreatedAt       time.Time     `json:"created_at"`
}
