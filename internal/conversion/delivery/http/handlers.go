package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"clipforge/internal/conversion"
	"clipforge/internal/models"
	"clipforge/pkg/logger"
)

type convertHandler struct {
	convertUC conversion.UseCase
	logger    logger.Logger
}

func NewConvertHandler(convertUC conversion.UseCase, log logger.Logger) conversion.Handler {
	return &convertHandler{
		convertUC: convertUC,
		logger:    log,
	}
}

// Convert accepts a multipart batch of media files with per-file trim ranges
// and starts a background conversion job.
func (h *convertHandler) Convert() echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.MultipartForm()
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid multipart payload"})
		}

		files := form.File["files"]
		startTimes := form.Value["start_times"]
		endTimes := form.Value["end_times"]

		if len(files) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "No files provided"})
		}
		if len(startTimes) != len(files) || len(endTimes) != len(files) {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Mismatch between number of files, start_times and end_times",
			})
		}

		params := models.ConvertParams{
			Format: c.FormValue("format"),
			Scale:  c.FormValue("scale"),
			FPS:    10,
		}
		if params.Scale == "" {
			params.Scale = "original"
		}
		if v := c.FormValue("fps"); v != "" {
			fps, err := strconv.Atoi(v)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid fps value"})
			}
			params.FPS = fps
		}

		specs := make([]models.FileSpec, 0, len(files))
		for i, fh := range files {
			start, err := strconv.ParseFloat(startTimes[i], 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid start time for file " + strconv.Itoa(i+1)})
			}
			end, err := strconv.ParseFloat(endTimes[i], 64)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid end time for file " + strconv.Itoa(i+1)})
			}

			src, err := fh.Open()
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read file " + fh.Filename})
			}
			data, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "Could not read file " + fh.Filename})
			}

			specs = append(specs, models.FileSpec{
				OriginalName: fh.Filename,
				Data:         data,
				Trim:         models.TrimRange{StartSec: start, EndSec: end},
			})
		}

		jobID, err := h.convertUC.Submit(c.Request().Context(), specs, params)
		if err != nil {
			if conversion.IsValidation(err) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}
			h.logger.Errorf("submit failed: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create job"})
		}
		return c.JSON(http.StatusOK, map[string]string{"job_id": jobID})
	}
}

// GetProgress reports the live state of a job to a polling client.
func (h *convertHandler) GetProgress() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.QueryParam("job_id")
		view, err := h.convertUC.GetProgress(jobID)
		if err != nil {
			if errors.Is(err, conversion.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "Job expired or never existed"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, view)
	}
}

// Download streams a completed output artifact.
func (h *convertHandler) Download() echo.HandlerFunc {
	return func(c echo.Context) error {
		jobID := c.Param("job_id")
		filename := c.Param("filename")

		path, err := h.convertUC.GetDownloadPath(jobID, filename)
		if err != nil {
			if errors.Is(err, conversion.ErrNotFound) {
				return c.JSON(http.StatusNotFound, map[string]string{"error": "File not found or job invalid"})
			}
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return c.Attachment(path, filename)
	}
}
