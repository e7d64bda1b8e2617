package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	convertHttp "clipforge/internal/conversion/delivery/http"
	"clipforge/internal/conversion/store"
	convertUsecase "clipforge/internal/conversion/usecase"
	"clipforge/internal/ffmpeg"
	"clipforge/internal/storage"
	"clipforge/pkg/limiter"
)

// MapHandlers wires the conversion engine and its HTTP adapters. It returns
// the maintenance sweep so the caller can schedule it.
func (s *Server) MapHandlers(e *echo.Echo) (func(time.Time), error) {
	jobStore := store.NewMemoryStore()
	fileManager := storage.NewFileManager(s.cfg.Converter.WorkspaceBaseDir, s.logger)
	if err := fileManager.EnsureBaseDir(); err != nil {
		return nil, err
	}

	runner := ffmpeg.NewRunner(s.logger, s.cfg.Converter.KillGrace())
	lim := limiter.New(s.cfg.Converter.MaxConcurrentProcesses)

	convertUC := convertUsecase.NewConversionUseCase(s.cfg, jobStore, fileManager, runner, lim, s.logger)
	convertHandlers := convertHttp.NewConvertHandler(convertUC, s.logger)

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")

	convertHttp.MapConvertRoutes(v1, convertHandlers)
	health.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return convertUC.RunMaintenanceSweep, nil
}
