package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shinyyama/evolon-market/internal/handler"
	appmw "github.com/shinyyama/evolon-market/internal/middleware"
	"github.com/shinyyama/evolon-market/internal/payment"
	"github.com/shinyyama/evolon-market/internal/service"
	"go.uber.org/zap"
)

// Deps are the collaborators the HTTP surface is built from.
type Deps struct {
	Items         service.ItemService
	Orders        service.OrderService
	Reviews       service.ReviewService
	Notifications service.NotificationService
	Webhooks      service.WebhookService
	// Sandbox enables the manual settle endpoint; nil outside sandbox mode.
	Sandbox          *payment.Sandbox
	Auth             appmw.Authenticator
	Logger           *zap.Logger
	Gatherer         prometheus.Gatherer
	CORSOriginSuffix string
	SignatureHeader  string
}

type Server struct {
	e *echo.Echo
}

func New(d Deps, sha, buildTime string) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(appmw.RequestLogger(d.Logger))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		AllowOriginFunc:  allowOrigin(d.CORSOriginSuffix),
	}))

	itemHandler := handler.NewItemHandler(d.Items)
	orderHandler := handler.NewOrderHandler(d.Orders, d.Notifications)
	reviewHandler := handler.NewReviewHandler(d.Reviews)
	notificationHandler := handler.NewNotificationHandler(d.Notifications)
	webhookHandler := handler.NewWebhookHandler(d.Webhooks, d.SignatureHeader)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"ok":         "true",
			"git_sha":    sha,
			"build_time": buildTime,
		})
	})
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := d.Auth.RequireAuth
	api := e.Group("/api")

	api.GET("/items", itemHandler.List)
	api.GET("/items/:id", itemHandler.Get)
	api.POST("/items", itemHandler.Create, auth)
	api.POST("/items/:id/purchase", orderHandler.Purchase, auth)

	api.POST("/orders/complete", orderHandler.Complete, auth)
	api.GET("/orders/:id", orderHandler.Get, auth)
	api.POST("/orders/:id/ship", orderHandler.MarkShipped, auth)
	api.POST("/orders/:id/deliver", orderHandler.MarkDelivered, auth)
	api.POST("/orders/:id/review", orderHandler.Review, auth)
	api.GET("/orders/:id/review", reviewHandler.GetByOrder)

	api.POST("/webhooks/payment", webhookHandler.Payment)

	api.GET("/me/items", itemHandler.ListMine, auth)
	api.GET("/me/purchases", orderHandler.ListPurchases, auth)
	api.GET("/me/sales", orderHandler.ListSales, auth)
	api.GET("/me/sales/summary", orderHandler.SalesSummary, auth)
	api.GET("/me/reviews", reviewHandler.ListMine, auth)
	api.GET("/me/notifications", notificationHandler.List, auth)
	api.POST("/me/notifications/read", notificationHandler.MarkAllRead, auth)
	api.PUT("/me/notify-token", notificationHandler.SetNotifyToken, auth)

	api.GET("/users/:uid/reviews", reviewHandler.ListForSeller)
	api.GET("/users/:uid/reviews/summary", reviewHandler.SellerSummary)

	if d.Sandbox != nil {
		sandboxHandler := handler.NewSandboxHandler(d.Sandbox)
		api.POST("/sandbox/payments/:ref/settle", sandboxHandler.Settle)
	}

	return &Server{e: e}
}

func allowOrigin(suffix string) func(origin string) (bool, error) {
	return func(origin string) (bool, error) {
		low := strings.ToLower(origin)
		if strings.HasPrefix(low, "http://localhost:") || strings.HasPrefix(low, "http://127.0.0.1:") ||
			strings.HasPrefix(low, "https://localhost:") || strings.HasPrefix(low, "https://127.0.0.1:") {
			return true, nil
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false, nil
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return false, nil
		}
		if suffix != "" && strings.HasSuffix(u.Hostname(), suffix) {
			return true, nil
		}
		return false, nil
	}
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.e
}
