package usecase

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"clipforge/internal/config"
	"clipforge/internal/conversion"
	"clipforge/internal/ffmpeg"
	"clipforge/internal/models"
	"clipforge/internal/storage"
	"clipforge/pkg/limiter"
	"clipforge/pkg/logger"
	"clipforge/pkg/utils"
)

// allowedScales mirrors the selectable output widths of the upload form.
var allowedScales = map[string]struct{}{
	"original": {},
	"320:-1":   {},
	"360:-1":   {},
	"480:-1":   {},
	"720:-1":   {},
	"1080:-1":  {},
	"1920:-1":  {},
	"2560:-1":  {},
	"3840:-1":  {},
}

// CommandRunner launches one external conversion process. Satisfied by
// ffmpeg.Runner; tests substitute deterministic fakes.
type CommandRunner interface {
	Run(ctx context.Context, args []string, clipDuration float64, parser ffmpeg.LineParser, sink ffmpeg.ProgressSink) (ffmpeg.Outcome, error)
}

type conversionUC struct {
	cfg     *config.Config
	store   conversion.Store
	files   *storage.FileManager
	runner  CommandRunner
	limiter *limiter.Limiter
	parser  ffmpeg.LineParser
	logger  logger.Logger

	baseCtx context.Context
	waiters sync.Map // jobID -> *sync.WaitGroup
}

func NewConversionUseCase(
	cfg *config.Config,
	st conversion.Store,
	fm *storage.FileManager,
	runner CommandRunner,
	lim *limiter.Limiter,
	log logger.Logger,
) conversion.UseCase {
	return &conversionUC{
		cfg:     cfg,
		store:   st,
		files:   fm,
		runner:  runner,
		limiter: lim,
		parser:  ffmpeg.NewProgressParser(),
		logger:  log,
		baseCtx: context.Background(),
	}
}

// Submit validates the batch, creates the job and fans out one tracked worker
// per file. It returns as soon as the job exists; workers run in the
// background gated by the limiter.
func (u *conversionUC) Submit(ctx context.Context, specs []models.FileSpec, params models.ConvertParams) (string, error) {
	if len(specs) == 0 {
		return "", conversion.NewValidationError("no files provided")
	}
	if err := utils.ValidateStruct(ctx, &params); err != nil {
		return "", conversion.NewValidationError("invalid parameters: %v", err)
	}
	if _, ok := allowedScales[params.Scale]; !ok {
		return "", conversion.NewValidationError("invalid scale value: %s", params.Scale)
	}
	for i, spec := range specs {
		if spec.Trim.StartSec < 0 || spec.Trim.EndSec <= spec.Trim.StartSec {
			return "", conversion.NewValidationError(
				"invalid start/end time for file %d: start=%.2f, end=%.2f", i+1, spec.Trim.StartSec, spec.Trim.EndSec)
		}
		if len(spec.Data) == 0 {
			return "", conversion.NewValidationError("empty file %d (%s)", i+1, spec.OriginalName)
		}
	}

	strat, err := ffmpeg.NewStrategy(params.Format, u.cfg.Converter.FFmpegPath, u.cfg.Converter.SinglePassMaxSeconds)
	if err != nil {
		return "", conversion.NewValidationError("%v", err)
	}

	// Expired jobs are evicted opportunistically on each submission; the
	// scheduled sweep covers idle periods.
	u.RunMaintenanceSweep(time.Now())

	if u.cfg.Converter.MaxCPUUsage > 0 {
		if ok, usage := utils.CheckCPUUsage(u.cfg.Converter.MaxCPUUsage); !ok {
			u.logger.Warnf("accepting job under high CPU load: %.2f%%", usage)
		}
	}

	jobID := models.NewJobID()
	workspace, err := u.files.CreateJobDir(jobID)
	if err != nil {
		return "", err
	}

	tasks := make([]models.FileTask, len(specs))
	for i, spec := range specs {
		tasks[i] = models.FileTask{
			OriginalName: spec.OriginalName,
			Trim:         spec.Trim,
		}
	}
	if _, err := u.store.CreateJob(jobID, tasks, workspace); err != nil {
		u.files.Cleanup(jobID)
		return "", err
	}

	u.logger.Infof("job %s: created with %d file(s), %s, scale=%s, fps=%d",
		jobID, len(specs), strat.Description(), params.Scale, params.FPS)

	wg := &sync.WaitGroup{}
	u.waiters.Store(jobID, wg)
	for i, spec := range specs {
		wg.Add(1)
		go func(idx int, spec models.FileSpec) {
			defer wg.Done()
			u.processFile(jobID, idx, spec, params, strat)
		}(i, spec)
	}
	go func() {
		wg.Wait()
		u.waiters.Delete(jobID)
		u.logger.Infof("job %s: all files resolved", jobID)
	}()

	return jobID, nil
}

// processFile is the per-file worker: acquire a limiter slot, materialize the
// input, run the strategy's passes and record the terminal outcome. Every
// failure path ends in RecordResult; one file's failure never touches its
// siblings.
func (u *conversionUC) processFile(jobID string, idx int, spec models.FileSpec, params models.ConvertParams, strat ffmpeg.Strategy) {
	defer func() {
		if r := recover(); r != nil {
			u.logger.Errorf("job %s: file %d: panic in worker: %v", jobID, idx, r)
			u.recordFailure(jobID, idx, fmt.Errorf("internal error: %v", r))
		}
	}()

	ctx := u.baseCtx
	if u.cfg.Converter.FileTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(u.cfg.Converter.FileTimeoutSeconds)*time.Second)
		defer cancel()
	}

	if err := u.limiter.Acquire(ctx); err != nil {
		u.recordFailure(jobID, idx, &conversion.CancelledError{Err: err})
		return
	}
	defer u.limiter.Release()

	if err := u.store.MarkRunning(jobID, idx); err != nil {
		// Job evicted between submission and execution. Nothing to record.
		u.logger.Warnf("job %s: file %d: %v", jobID, idx, err)
		return
	}

	inputPath, err := u.files.MaterializeInput(jobID, idx, spec.OriginalName, spec.Data)
	if err != nil {
		u.recordFailure(jobID, idx, err)
		return
	}
	defer u.files.RemoveInput(inputPath)

	outputPath := u.files.OutputPathFor(jobID, idx, spec.OriginalName, strat.OutputExtension())
	p := ffmpeg.Params{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Scale:      params.Scale,
		FPS:        params.FPS,
		StartSec:   spec.Trim.StartSec,
		EndSec:     spec.Trim.EndSec,
	}

	sink := func(pr ffmpeg.Progress) {
		u.store.UpdateProgress(jobID, idx, pr.Percent, pr.EstSeconds) //nolint:errcheck
	}

	var runErr error
	var cleanups []string
	for _, cmd := range strat.BuildCommands(p) {
		if cmd.CleanupPath != "" {
			cleanups = append(cleanups, cmd.CleanupPath)
		}
		parser, s := ffmpeg.LineParser(nil), ffmpeg.ProgressSink(nil)
		if cmd.TrackProgress {
			parser, s = u.parser, sink
		}
		if _, runErr = u.runner.Run(ctx, cmd.Args, p.ClipDuration(), parser, s); runErr != nil {
			break
		}
	}
	for _, path := range cleanups {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			u.logger.Warnf("job %s: could not remove intermediate file %s: %v", jobID, path, err)
		}
	}

	if runErr != nil {
		u.recordFailure(jobID, idx, runErr)
		return
	}

	outputName := storage.OutputName(idx, spec.OriginalName, strat.OutputExtension())
	u.logger.Infof("job %s: file %d (%s) converted to %s", jobID, idx, spec.OriginalName, outputName)
	u.store.RecordResult(jobID, idx, conversion.Outcome{ //nolint:errcheck
		Succeeded: true,
		Download: &models.DownloadRef{
			FileIndex:  idx,
			OutputName: outputName,
			URL:        fmt.Sprintf("/download/%s/%s", jobID, outputName),
		},
	})
}

func (u *conversionUC) recordFailure(jobID string, idx int, cause error) {
	u.logger.Errorf("job %s: file %d failed: %v", jobID, idx, cause)
	u.store.RecordResult(jobID, idx, conversion.Outcome{ //nolint:errcheck
		Succeeded:  false,
		ErrMessage: cause.Error(),
	})
}

func (u *conversionUC) GetProgress(jobID string) (*models.JobView, error) {
	return u.store.GetSnapshot(jobID)
}

// GetDownloadPath resolves a completed output artifact for the transport
// layer to stream back.
func (u *conversionUC) GetDownloadPath(jobID, filename string) (string, error) {
	if !safePathComponent(jobID) || !safePathComponent(filename) {
		return "", conversion.ErrNotFound
	}
	if _, err := u.store.GetSnapshot(jobID); err != nil {
		return "", err
	}
	if !u.files.FileExists(jobID, filename) {
		return "", conversion.ErrNotFound
	}
	return u.files.FilePath(jobID, filename), nil
}

// RunMaintenanceSweep evicts expired terminal jobs and their workspaces. Safe
// to call concurrently with active jobs.
func (u *conversionUC) RunMaintenanceSweep(now time.Time) {
	removed := u.files.Sweep(u.store, now, u.cfg.Converter.JobTTL())
	if len(removed) > 0 {
		u.logger.Infof("maintenance sweep removed %d expired job(s)", len(removed))
	}
}

// Wait blocks until every worker of the job has resolved. Unknown ids return
// immediately.
func (u *conversionUC) Wait(jobID string) {
	if wg, ok := u.waiters.Load(jobID); ok {
		wg.(*sync.WaitGroup).Wait()
	}
}

func safePathComponent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '.' && s[i+1] == '.' {
			return false
		}
	}
	for i := 0; i < len(s); i++ {
		if s[i] == '/' || s[i] == '\\' {
			return false
		}
	}
	return true
}
