package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/service"
	"github.com/shopspring/decimal"
)

type ItemHandler struct {
	svc service.ItemService
}

func NewItemHandler(svc service.ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type ItemResponse struct {
	ID          uint64          `json:"id"`
	SellerUID   string          `json:"sellerUid"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	StatusLabel string          `json:"statusLabel"`
	CreatedAt   string          `json:"createdAt"`
	UpdatedAt   string          `json:"updatedAt"`
}

type ItemListResponse struct {
	Items []ItemResponse `json:"items"`
	Total int64          `json:"total"`
}

type CreateItemRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
}

func (h *ItemHandler) Create(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid json"))
	}
	item, err := h.svc.Create(c.Request().Context(), uid, req.Title, req.Description, req.Price, req.Currency)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, toItemResponse(item))
}

func (h *ItemHandler) Get(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid id"))
	}
	item, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toItemResponse(item))
}

func (h *ItemHandler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	items, total, err := h.svc.List(c.Request().Context(), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	resp := ItemListResponse{
		Items: make([]ItemResponse, 0, len(items)),
		Total: total,
	}
	for i := range items {
		resp.Items = append(resp.Items, toItemResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ItemHandler) ListMine(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	items, err := h.svc.ListBySeller(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	resp := make([]ItemResponse, 0, len(items))
	for i := range items {
		resp = append(resp, toItemResponse(&items[i]))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": resp})
}

func toItemResponse(item *model.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		SellerUID:   item.SellerUID,
		Title:       item.Title,
		Description: item.Description,
		Price:       item.Price,
		Currency:    item.Currency,
		Status:      string(item.Status),
		StatusLabel: item.Status.Label(),
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
}
