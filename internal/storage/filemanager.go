package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"clipforge/internal/conversion"
	"clipforge/pkg/logger"
)

// FileManager owns the on-disk job workspaces under a single base directory.
// Each job gets a directory named by its id, exclusively owned by that job
// until the TTL sweep removes it.
type FileManager struct {
	baseDir string
	logger  logger.Logger
}

func NewFileManager(baseDir string, log logger.Logger) *FileManager {
	return &FileManager{baseDir: baseDir, logger: log}
}

func (f *FileManager) BaseDir() string { return f.baseDir }

func (f *FileManager) EnsureBaseDir() error {
	if err := os.MkdirAll(f.baseDir, 0o755); err != nil {
		return &conversion.StorageError{Op: "create base dir", Err: err}
	}
	return nil
}

func (f *FileManager) CreateJobDir(jobID string) (string, error) {
	dir := filepath.Join(f.baseDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &conversion.StorageError{Op: "create job dir", Err: err}
	}
	f.logger.Infof("job %s: created workspace %s", jobID, dir)
	return dir, nil
}

// MaterializeInput writes uploaded bytes into the job's workspace. The file
// index keeps same-named uploads apart.
func (f *FileManager) MaterializeInput(jobID string, fileIndex int, originalName string, data []byte) (string, error) {
	name := fmt.Sprintf("%d_%s", fileIndex, filepath.Base(originalName))
	path := filepath.Join(f.baseDir, jobID, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", &conversion.StorageError{Op: "create job dir", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", &conversion.StorageError{Op: "write input", Err: err}
	}
	return path, nil
}

// OutputPathFor returns the deterministic output path for a task. The file
// index is part of the name, so two inputs with the same stem cannot collide
// within a job.
func (f *FileManager) OutputPathFor(jobID string, fileIndex int, originalName, ext string) string {
	return filepath.Join(f.baseDir, jobID, OutputName(fileIndex, originalName, ext))
}

// OutputName derives the user-visible artifact name for a task.
func OutputName(fileIndex int, originalName, ext string) string {
	base := filepath.Base(originalName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%d_%s%s", fileIndex, stem, ext)
}

// RemoveInput deletes a materialized input after its task resolved. Missing
// files are not an error.
func (f *FileManager) RemoveInput(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warnf("could not delete input file %s: %v", path, err)
	}
}

// Cleanup removes a job's workspace recursively. Removing an already removed
// workspace is not an error.
func (f *FileManager) Cleanup(jobID string) {
	dir := filepath.Join(f.baseDir, jobID)
	if err := os.RemoveAll(dir); err != nil {
		f.logger.Warnf("job %s: could not delete workspace %s: %v", jobID, dir, err)
	}
}

// Sweep evicts expired terminal jobs from the store and deletes their
// workspaces. Safe to call concurrently with active jobs.
func (f *FileManager) Sweep(store conversion.Store, now time.Time, ttl time.Duration) []string {
	removed := store.SweepExpired(now, ttl)
	for _, jobID := range removed {
		f.Cleanup(jobID)
		f.logger.Infof("job %s: expired, workspace removed", jobID)
	}
	return removed
}

// FilePath resolves a file inside a job workspace.
func (f *FileManager) FilePath(jobID, filename string) string {
	return filepath.Join(f.baseDir, jobID, filename)
}

func (f *FileManager) FileExists(jobID, filename string) bool {
	info, err := os.Stat(f.FilePath(jobID, filename))
	return err == nil && info.Mode().IsRegular()
}
