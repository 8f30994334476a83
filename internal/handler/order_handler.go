package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/service"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	svc    service.OrderService
	notify service.NotificationService
}

func NewOrderHandler(svc service.OrderService, notify service.NotificationService) *OrderHandler {
	return &OrderHandler{svc: svc, notify: notify}
}

type OrderResponse struct {
	ID               uint64          `json:"id"`
	ItemID           uint64          `json:"itemId"`
	ItemTitle        string          `json:"itemTitle"`
	BuyerUID         string          `json:"buyerUid"`
	SellerUID        string          `json:"sellerUid"`
	Price            decimal.Decimal `json:"price"`
	Currency         string          `json:"currency"`
	PaymentReference string          `json:"paymentReference"`
	State            string          `json:"state"`
	StateLabel       string          `json:"stateLabel"`
	PurchasedAt      *string         `json:"purchasedAt,omitempty"`
	ShippedAt        *string         `json:"shippedAt,omitempty"`
	DeliveredAt      *string         `json:"deliveredAt,omitempty"`
	CompletedAt      *string         `json:"completedAt,omitempty"`
	CreatedAt        string          `json:"createdAt"`
	UpdatedAt        string          `json:"updatedAt"`
}

func toOrderResponse(o *model.Order) OrderResponse {
	return OrderResponse{
		ID:               o.ID,
		ItemID:           o.ItemID,
		ItemTitle:        o.ItemTitle,
		BuyerUID:         o.BuyerUID,
		SellerUID:        o.SellerUID,
		Price:            o.Price,
		Currency:         o.Currency,
		PaymentReference: o.PaymentReference,
		State:            string(o.State),
		StateLabel:       o.State.Label(),
		PurchasedAt:      formatTime(o.PurchasedAt),
		ShippedAt:        formatTime(o.ShippedAt),
		DeliveredAt:      formatTime(o.DeliveredAt),
		CompletedAt:      formatTime(o.CompletedAt),
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}
}

func toOrderList(list []model.Order) []OrderResponse {
	resp := make([]OrderResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toOrderResponse(&list[i]))
	}
	return resp
}

type CheckoutResponse struct {
	Order            OrderResponse `json:"order"`
	PaymentReference string        `json:"paymentReference"`
	ClientSecret     string        `json:"clientSecret"`
}

func (h *OrderHandler) Purchase(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid item id"))
	}
	co, err := h.svc.InitiatePurchase(c.Request().Context(), itemID, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, CheckoutResponse{
		Order:            toOrderResponse(co.Order),
		PaymentReference: co.Order.PaymentReference,
		ClientSecret:     co.ClientHandle,
	})
}

type CompletePurchaseRequest struct {
	PaymentReference string `json:"paymentReference"`
}

// Complete is the client's return path after paying. Webhooks reach the same
// operation through WebhookHandler.
func (h *OrderHandler) Complete(c echo.Context) error {
	if _, ok := currentUID(c); !ok {
		return unauthorized(c)
	}
	var req CompletePurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	o, err := h.svc.CompletePurchase(c.Request().Context(), req.PaymentReference)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) Get(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.Get(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	if h.notify != nil {
		_ = h.notify.MarkByOrder(c.Request().Context(), uid, o.ID)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) MarkShipped(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.MarkShipped(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) MarkDelivered(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	o, err := h.svc.MarkDelivered(c.Request().Context(), id, uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(o))
}

type ReviewRequest struct {
	Outcome string `json:"outcome"`
	Comment string `json:"comment"`
}

func (h *OrderHandler) Review(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	var req ReviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	o, rv, err := h.svc.CompleteWithReview(c.Request().Context(), id, uid, model.ReviewOutcome(req.Outcome), req.Comment)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"order":  toOrderResponse(o),
		"review": toReviewResponse(rv),
	})
}

func (h *OrderHandler) ListPurchases(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListByBuyer(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"orders": toOrderList(list)})
}

func (h *OrderHandler) ListSales(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"orders": toOrderList(list)})
}

// SalesSummary takes from/to as YYYY-MM-DD (to inclusive), defaulting to the
// last 30 days.
func (h *OrderHandler) SalesSummary(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.Local)
	from, to := today.AddDate(0, 0, -29), today
	if v := c.QueryParam("from"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid from"))
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid to"))
		}
		to = t
	}
	sum, err := h.svc.SalesSummary(c.Request().Context(), uid, from, to.AddDate(0, 0, 1))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}
