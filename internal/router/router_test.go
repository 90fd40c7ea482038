package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/event-ticketing/internal/handler"
)

func TestRoutesRegistered(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)
	RegisterEvents(e, handler.NewEventHandler(nil, nil))
	RegisterUsers(e, handler.NewUserHandler(nil, nil, nil))
	RegisterReservations(e, handler.NewReservationHandler(nil, nil))

	got := map[string]bool{}
	for _, r := range e.Routes() {
		got[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /", "GET /healthz",
		"GET /events/", "POST /events/", "GET /events/:id", "DELETE /events/:id",
		"GET /users/", "POST /users/", "GET /users/:id", "DELETE /users/:id", "GET /users/:id/reservations",
		"GET /reservations/", "POST /reservations/", "GET /reservations/:id",
		"PUT /reservations/:id", "DELETE /reservations/:id",
		"GET /events", "POST /reservations",
	} {
		assert.True(t, got[want], "missing route %s", want)
	}
}

func TestHealthAndRoot(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e)

	for _, path := range []string{"/", "/healthz"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestInvalidIDNeverReachesService(t *testing.T) {
	// nil services: a request that got past id parsing would panic
	e := echo.New()
	RegisterReservations(e, handler.NewReservationHandler(nil, nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reservations/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
