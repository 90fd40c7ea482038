package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/service"
)

type UserHandler struct {
	users        service.Users
	reservations service.Reservations
	log          logrus.FieldLogger
}

func NewUserHandler(users service.Users, reservations service.Reservations, log logrus.FieldLogger) *UserHandler {
	return &UserHandler{users: users, reservations: reservations, log: orNop(log)}
}

// Create handles POST /users/ with body {"name": "..."}.
func (h *UserHandler) Create(c echo.Context) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := bindBody(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.users.CreateUser(c.Request().Context(), req.Name)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": res.Message, "user": res.Value})
}

func (h *UserHandler) List(c echo.Context) error {
	res, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "users": res.Value})
}

func (h *UserHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.users.GetUser(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "user": res.Value})
}

// Delete handles DELETE /users/:id.  All of the user's tickets are
// handed back before the user is removed.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	if _, err := h.users.DeleteUser(c.Request().Context(), id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reservations handles GET /users/:id/reservations.
func (h *UserHandler) Reservations(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.reservations.ListReservationsByUser(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "reservations": res.Value})
}
