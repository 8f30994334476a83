package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/model"
	"github.com/shinyyama/evolon-market/internal/service"
)

type ReviewHandler struct {
	svc service.ReviewService
}

func NewReviewHandler(svc service.ReviewService) *ReviewHandler {
	return &ReviewHandler{svc: svc}
}

type ReviewResponse struct {
	ID          uint64 `json:"id"`
	OrderID     uint64 `json:"orderId"`
	ItemID      uint64 `json:"itemId"`
	ReviewerUID string `json:"reviewerUid"`
	SellerUID   string `json:"sellerUid"`
	Outcome     string `json:"outcome"`
	Comment     string `json:"comment"`
	CreatedAt   string `json:"createdAt"`
}

func toReviewResponse(rv *model.Review) ReviewResponse {
	return ReviewResponse{
		ID:          rv.ID,
		OrderID:     rv.OrderID,
		ItemID:      rv.ItemID,
		ReviewerUID: rv.ReviewerUID,
		SellerUID:   rv.SellerUID,
		Outcome:     string(rv.Outcome),
		Comment:     rv.Comment,
		CreatedAt:   rv.CreatedAt.Format(time.RFC3339),
	}
}

func toReviewList(list []model.Review) []ReviewResponse {
	resp := make([]ReviewResponse, 0, len(list))
	for i := range list {
		resp = append(resp, toReviewResponse(&list[i]))
	}
	return resp
}

func (h *ReviewHandler) ListForSeller(c echo.Context) error {
	list, err := h.svc.ListBySeller(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": toReviewList(list)})
}

func (h *ReviewHandler) SellerSummary(c echo.Context) error {
	sum, err := h.svc.SellerSummary(c.Request().Context(), c.Param("uid"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, sum)
}

func (h *ReviewHandler) ListMine(c echo.Context) error {
	uid, ok := currentUID(c)
	if !ok {
		return unauthorized(c)
	}
	list, err := h.svc.ListByReviewer(c.Request().Context(), uid)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"reviews": toReviewList(list)})
}

func (h *ReviewHandler) GetByOrder(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid order id"))
	}
	rv, err := h.svc.GetByOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toReviewResponse(rv))
}
