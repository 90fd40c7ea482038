package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/service"
)

// ReservationHandler exposes the reservation lifecycle.  Quantity and
// ownership rules live in the service; the handler only decodes input
// and maps outcomes to status codes.
type ReservationHandler struct {
	svc service.Reservations
	log logrus.FieldLogger
}

func NewReservationHandler(svc service.Reservations, log logrus.FieldLogger) *ReservationHandler {
	return &ReservationHandler{svc: svc, log: orNop(log)}
}

type createReservationRequest struct {
	UserID          uint64 `json:"user_id"`
	EventID         uint64 `json:"event_id"`
	TicketsReserved int    `json:"tickets_reserved"`
}

type updateReservationRequest struct {
	UserID          uint64 `json:"user_id"`
	TicketsReserved int    `json:"tickets_reserved"`
}

// Create handles POST /reservations/.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.svc.CreateReservation(c.Request().Context(), req.UserID, req.EventID, req.TicketsReserved)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": res.Message, "reservation": res.Value})
}

func (h *ReservationHandler) List(c echo.Context) error {
	res, err := h.svc.ListReservations(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "reservations": res.Value})
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.svc.GetReservation(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "reservation": res.Value})
}

// Update handles PUT /reservations/:id with body
// {"user_id": ..., "tickets_reserved": ...}.
func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	var req updateReservationRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.svc.UpdateReservation(c.Request().Context(), id, req.UserID, req.TicketsReserved)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "reservation": res.Value})
}

// Cancel handles DELETE /reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	if _, err := h.svc.CancelReservation(c.Request().Context(), id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
