package store

import (
	"sync"
	"time"

	"clipforge/internal/conversion"
	"clipforge/internal/models"
)

// jobEntry pairs a job with its own mutex so concurrent jobs never contend.
// The mutex is held only for the duration of a read-modify-write, never
// across subprocess execution.
type jobEntry struct {
	mu        sync.Mutex
	job       models.Job
	downloads []models.DownloadRef
}

// MemoryStore is the in-memory implementation of conversion.Store. The
// registry mutex guards only the map itself; all per-job state is guarded by
// the job's entry mutex.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*jobEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*jobEntry)}
}

func (s *MemoryStore) CreateJob(jobID string, files []models.FileTask, workspacePath string) (*models.Job, error) {
	if len(files) == 0 {
		return nil, conversion.NewValidationError("no files provided")
	}
	tasks := make([]models.FileTask, len(files))
	for i, ft := range files {
		if ft.Trim.StartSec < 0 || ft.Trim.EndSec <= ft.Trim.StartSec {
			return nil, conversion.NewValidationError(
				"invalid trim range for file %d: start=%.2f end=%.2f", i, ft.Trim.StartSec, ft.Trim.EndSec)
		}
		ft.Index = i
		ft.Status = models.FileStatusPending
		ft.Percent = 0
		ft.EstSeconds = nil
		tasks[i] = ft
	}

	job := models.Job{
		JobID:         jobID,
		CreatedAt:     time.Now(),
		Files:         tasks,
		Status:        models.JobStatusQueued,
		WorkspacePath: workspacePath,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[jobID]; exists {
		return nil, conversion.NewValidationError("job id already in use")
	}
	s.jobs[jobID] = &jobEntry{job: job}

	out := job
	out.Files = append([]models.FileTask(nil), tasks...)
	return &out, nil
}

func (s *MemoryStore) entry(jobID string) (*jobEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.jobs[jobID]
	if !ok {
		return nil, conversion.ErrNotFound
	}
	return e, nil
}

// GetSnapshot returns a deep copy of the job; callers can never mutate store
// state through it.
func (s *MemoryStore) GetSnapshot(jobID string) (*models.JobView, error) {
	e, err := s.entry(jobID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	view := &models.JobView{
		JobID:         e.job.JobID,
		TotalFiles:    len(e.job.Files),
		OverallStatus: e.job.Status,
		CreatedAt:     e.job.CreatedAt,
		PerFile:       make([]models.FileView, len(e.job.Files)),
		Downloads:     append([]models.DownloadRef(nil), e.downloads...),
	}
	for i, ft := range e.job.Files {
		fv := models.FileView{
			Index:        ft.Index,
			OriginalName: ft.OriginalName,
			Status:       ft.Status,
			Percent:      ft.Percent,
			ErrorMessage: ft.ErrorMessage,
		}
		if ft.EstSeconds != nil {
			est := *ft.EstSeconds
			fv.EstSeconds = &est
		}
		view.PerFile[i] = fv

		switch ft.Status {
		case models.FileStatusSucceeded:
			view.ProcessedFiles++
			view.SuccessfulFiles++
		case models.FileStatusFailed:
			view.ProcessedFiles++
			view.ErrorFiles++
		}
	}
	return view, nil
}

// MarkRunning transitions a pending task to running and the job to running on
// its first executing task.
func (s *MemoryStore) MarkRunning(jobID string, fileIndex int) error {
	e, err := s.entry(jobID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if fileIndex < 0 || fileIndex >= len(e.job.Files) {
		return conversion.ErrNotFound
	}
	ft := &e.job.Files[fileIndex]
	if ft.Status != models.FileStatusPending {
		return nil
	}
	ft.Status = models.FileStatusRunning
	if e.job.Status == models.JobStatusQueued {
		e.job.Status = models.JobStatusRunning
	}
	return nil
}

// UpdateProgress applies a progress observation. Terminal tasks ignore
// updates; regressive percent reports are clamped, keeping the field
// monotonically non-decreasing while running.
func (s *MemoryStore) UpdateProgress(jobID string, fileIndex int, percent float64, estSeconds *float64) error {
	e, err := s.entry(jobID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if fileIndex < 0 || fileIndex >= len(e.job.Files) {
		return conversion.ErrNotFound
	}
	ft := &e.job.Files[fileIndex]
	if ft.Status.Terminal() {
		return nil
	}
	if percent > 100 {
		percent = 100
	}
	if percent > ft.Percent {
		ft.Percent = percent
	}
	if estSeconds != nil {
		est := *estSeconds
		ft.EstSeconds = &est
	}
	return nil
}

// RecordResult applies the terminal transition for one task and recomputes
// the job's aggregate status in the same critical section, so concurrent
// terminal transitions in one job serialize. A second result for the same
// task is a no-op.
func (s *MemoryStore) RecordResult(jobID string, fileIndex int, outcome conversion.Outcome) error {
	e, err := s.entry(jobID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if fileIndex < 0 || fileIndex >= len(e.job.Files) {
		return conversion.ErrNotFound
	}
	ft := &e.job.Files[fileIndex]
	if ft.Status.Terminal() {
		return nil
	}

	if outcome.Succeeded {
		ft.Status = models.FileStatusSucceeded
		ft.Percent = 100
		zero := 0.0
		ft.EstSeconds = &zero
	} else {
		ft.Status = models.FileStatusFailed
		ft.ErrorMessage = outcome.ErrMessage
		ft.EstSeconds = nil
	}
	if outcome.Download != nil {
		e.downloads = append(e.downloads, *outcome.Download)
	}

	e.job.Status = aggregateStatus(e.job.Files)
	return nil
}

// aggregateStatus derives the job status from the task set; it is never
// stored independently of the tasks.
func aggregateStatus(files []models.FileTask) models.JobStatus {
	var succeeded, failed, running int
	for _, ft := range files {
		switch ft.Status {
		case models.FileStatusSucceeded:
			succeeded++
		case models.FileStatusFailed:
			failed++
		case models.FileStatusRunning:
			running++
		}
	}

	if succeeded+failed < len(files) {
		if running > 0 || succeeded+failed > 0 {
			return models.JobStatusRunning
		}
		return models.JobStatusQueued
	}
	switch {
	case failed == 0:
		return models.JobStatusDone
	case succeeded == 0:
		return models.JobStatusFailed
	default:
		return models.JobStatusCompletedWithErrors
	}
}

// SweepExpired removes jobs that are terminal and older than ttl, returning
// the removed ids so the caller can delete the matching workspaces. In-flight
// jobs are never touched.
func (s *MemoryStore) SweepExpired(now time.Time, ttl time.Duration) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for jobID, e := range s.jobs {
		e.mu.Lock()
		expired := e.job.Status.Terminal() && now.Sub(e.job.CreatedAt) > ttl
		e.mu.Unlock()
		if expired {
			delete(s.jobs, jobID)
			removed = append(removed, jobID)
		}
	}
	return removed
}
