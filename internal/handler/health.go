package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is used by load balancers and monitoring to check that the
// process is serving requests.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Root returns the welcome document.
func Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"message":     "🎉 Welcome to the Event Ticketing Service! 🎉",
		"description": "Your one-stop solution for browsing, booking, and managing event tickets with ease.",
		"instructions": echo.Map{
			"explore_events":      "GET /events/ - Discover upcoming events.",
			"book_tickets":        "POST /reservations/ - Reserve your spot at your favorite events.",
			"manage_reservations": "GET /users/{user_id}/reservations - View and manage your bookings.",
		},
		"note": "Check out the API documentation for more details on how to use the service effectively.",
	})
}
