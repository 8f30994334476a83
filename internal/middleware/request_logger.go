package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/logging"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

// RequestLogger puts a request-scoped zap logger carrying request_id into the
// request context and logs one line per request.
func RequestLogger(base *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(requestIDHeader)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, rid)

			logger := base.With(zap.String("request_id", rid))
			c.SetRequest(req.WithContext(logging.ContextWithLogger(req.Context(), logger)))

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("route", c.Path()),
				zap.Int("status", c.Response().Status),
				zap.Duration("latency", time.Since(start)),
			}
			if uid, _ := c.Get("uid").(string); uid != "" {
				fields = append(fields, zap.String("uid", uid))
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			logger.Info("http_request", fields...)
			return nil
		}
	}
}
