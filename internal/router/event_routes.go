package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterEvents registers the event catalogue under /events.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler) {
	g := e.Group("/events")
	collection(g, http.MethodGet, h.List)
	collection(g, http.MethodPost, h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
}
