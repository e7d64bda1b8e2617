package http

import (
	"github.com/labstack/echo/v4"

	"clipforge/internal/conversion"
)

func MapConvertRoutes(group *echo.Group, h conversion.Handler) {
	group.POST("/convert", h.Convert())
	group.GET("/progress", h.GetProgress())
	group.GET("/download/:job_id/:filename", h.Download())
}
