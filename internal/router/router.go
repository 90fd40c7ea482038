// Package router wires the HTTP handlers onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterRoutes registers the welcome document and the health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/", handler.Root)
	e.GET("/healthz", handler.Health)
}

// collection registers h for both /prefix and /prefix/ so clients do
// not have to care about the trailing slash.
func collection(g *echo.Group, method string, h echo.HandlerFunc) {
	g.Add(method, "", h)
	g.Add(method, "/", h)
}
