package http

import "github.com/labstack/echo/v4"

// Handler mounts a group of API routes on the server's echo instance.
// NewServer skips nil handlers so optional features can be left unwired.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}
