package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

// RegisterReservations registers the reservation lifecycle under
// /reservations.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler) {
	g := e.Group("/reservations")
	collection(g, http.MethodGet, h.List)
	collection(g, http.MethodPost, h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Cancel)
}
