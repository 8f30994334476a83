package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/logging"
	"github.com/shinyyama/evolon-market/internal/service"
	"go.uber.org/zap"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error errorPayload `json:"error"`
}

func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: errorPayload{
			Code:    code,
			Message: message,
		},
	}
}

var errorStatus = []struct {
	err    error
	status int
}{
	{service.ErrItemUnavailable, http.StatusConflict},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrPaymentNotConfirmed, http.StatusConflict},
	{service.ErrGatewayUnavailable, http.StatusServiceUnavailable},
	{service.ErrAlreadyReviewed, http.StatusConflict},
	{service.ErrValidation, http.StatusBadRequest},
	{service.ErrNotFound, http.StatusNotFound},
	{service.ErrInvalidWebhook, http.StatusBadRequest},
}

// respondError writes the envelope for a service error. Anything outside the
// taxonomy is logged and reported as internal_error.
func respondError(c echo.Context, err error) error {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			if m.status == http.StatusServiceUnavailable {
				c.Response().Header().Set("Retry-After", "5")
			}
			return c.JSON(m.status, NewErrorResponse(m.err.Error(), err.Error()))
		}
	}
	logging.FromContext(c.Request().Context()).Error("request_failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.JSON(http.StatusInternalServerError, NewErrorResponse("internal_error", "internal error"))
}

func currentUID(c echo.Context) (string, bool) {
	uid, _ := c.Get("uid").(string)
	return uid, uid != ""
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, NewErrorResponse("unauthorized", "missing uid"))
}

func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	v := t.Format(time.RFC3339)
	return &v
}
