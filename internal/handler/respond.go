package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// statusFor maps a failure kind onto an HTTP status code.
func statusFor(k model.Kind) int {
	switch k {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidQuantity, model.KindInvalidInput, model.KindInsufficientInventory:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as {"error": kind, "detail": message}.  Storage
// failures are logged with their cause; the cause never reaches the
// client.
func fail(c echo.Context, log logrus.FieldLogger, err error) error {
	var e *model.Error
	if !errors.As(err, &e) {
		e = model.Storage("internal error", err)
	}
	status := statusFor(e.Kind)
	entry := log.WithFields(logrus.Fields{
		"kind":       e.Kind.String(),
		"method":     c.Request().Method,
		"path":       c.Path(),
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(e.Err).Error(e.Message)
	} else {
		entry.Debug(e.Message)
	}
	return c.JSON(status, echo.Map{"error": e.Kind.String(), "detail": e.Message})
}

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, model.InvalidInput("invalid %s %q", name, c.Param(name))
	}
	return id, nil
}

func bindBody(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return model.InvalidInput("invalid request body")
	}
	return nil
}

func orNop(log logrus.FieldLogger) logrus.FieldLogger {
	if log != nil {
		return log
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}
