package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterUsers registers user management under /users, including the
// per-user reservation listing.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler) {
	g := e.Group("/users")
	collection(g, http.MethodGet, h.List)
	collection(g, http.MethodPost, h.Create)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/reservations", h.Reservations)
}
