package conversion

import (
	"context"
	"time"

	"clipforge/internal/models"
)

type UseCase interface {
	Submit(ctx context.Context, specs []models.FileSpec, params models.ConvertParams) (string, error)
	GetProgress(jobID string) (*models.JobView, error)
	GetDownloadPath(jobID, filename string) (string, error)
	RunMaintenanceSweep(now time.Time)
	Wait(jobID string)
}
