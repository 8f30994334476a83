package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/payment"
	"github.com/shinyyama/evolon-market/internal/service"
)

const maxWebhookBody = 64 << 10

type WebhookHandler struct {
	svc             service.WebhookService
	signatureHeader string
}

func NewWebhookHandler(svc service.WebhookService, signatureHeader string) *WebhookHandler {
	return &WebhookHandler{svc: svc, signatureHeader: signatureHeader}
}

// Payment answers 2xx only when the event needs no redelivery. Not-yet-settled
// and gateway outages answer 409/503 so the gateway retries.
func (h *WebhookHandler) Payment(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "unreadable body"))
	}
	res, err := h.svc.Handle(c.Request().Context(), payload, c.Request().Header.Get(h.signatureHeader))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{
		"eventId": res.EventID,
		"outcome": res.Outcome,
	})
}

// SandboxHandler exposes the sandbox gateway's settle switch for local runs.
type SandboxHandler struct {
	gateway *payment.Sandbox
}

func NewSandboxHandler(gateway *payment.Sandbox) *SandboxHandler {
	return &SandboxHandler{gateway: gateway}
}

func (h *SandboxHandler) Settle(c echo.Context) error {
	ref := c.Param("ref")
	if !h.gateway.Settle(ref) {
		return c.JSON(http.StatusNotFound, NewErrorResponse("not_found", "unknown payment reference"))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"paymentReference": ref, "settled": true})
}
