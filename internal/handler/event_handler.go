package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/service"
)

// Accepted date_time layouts; values without a zone are taken as UTC.
var dateTimeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, model.InvalidInput("invalid date_time %q, expected YYYY-MM-DD HH:MM:SS", s)
}

type EventHandler struct {
	svc service.Events
	log logrus.FieldLogger
}

func NewEventHandler(svc service.Events, log logrus.FieldLogger) *EventHandler {
	return &EventHandler{svc: svc, log: orNop(log)}
}

type createEventRequest struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DateTime     string `json:"date_time"`
	TicketsTotal int    `json:"tickets_total"`
}

// Create handles POST /events/.
func (h *EventHandler) Create(c echo.Context) error {
	var req createEventRequest
	if err := bindBody(c, &req); err != nil {
		return fail(c, h.log, err)
	}
	when, err := parseDateTime(req.DateTime)
	if err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.svc.CreateEvent(c.Request().Context(), service.EventInput{
		Name:         req.Name,
		Description:  req.Description,
		DateTime:     when,
		TicketsTotal: req.TicketsTotal,
	})
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": res.Message, "event": res.Value})
}

// List handles GET /events/.
func (h *EventHandler) List(c echo.Context) error {
	res, err := h.svc.ListEvents(c.Request().Context())
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "events": res.Value})
}

// Get handles GET /events/:id.
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	res, err := h.svc.GetEvent(c.Request().Context(), id)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": res.Message, "event": res.Value})
}

// Delete handles DELETE /events/:id.  The event's reservations go with
// it.
func (h *EventHandler) Delete(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return fail(c, h.log, err)
	}
	if _, err := h.svc.DeleteEvent(c.Request().Context(), id); err != nil {
		return fail(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
