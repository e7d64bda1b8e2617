package conversion

import "github.com/labstack/echo/v4"

type Handler interface {
	Convert() echo.HandlerFunc
	GetProgress() echo.HandlerFunc
	Download() echo.HandlerFunc
}
