package middleware

import (
	"context"
	"net/http"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/evolon-market/internal/logging"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Authenticator resolves the caller and stores its uid under "uid".
type Authenticator interface {
	RequireAuth(next echo.HandlerFunc) echo.HandlerFunc
}

type tokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type AuthMiddleware struct {
	verifier tokenVerifier
}

func NewAuthMiddleware(ctx context.Context, projectID, credentialsFile string) (*AuthMiddleware, error) {
	if projectID == "" {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "FIREBASE_PROJECT_ID is not set")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, err
	}
	return &AuthMiddleware{verifier: client}, nil
}

func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authz := c.Request().Header.Get("Authorization")
		if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
			return c.JSON(http.StatusUnauthorized, unauthorizedBody("unauthorized"))
		}
		tokenStr := strings.TrimPrefix(authz, "Bearer ")
		token, err := m.verifier.VerifyIDToken(c.Request().Context(), tokenStr)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, unauthorizedBody("invalid_token"))
		}
		setUID(c, token.UID)
		return next(c)
	}
}

// HeaderAuth trusts the X-User-ID header. Only for local runs with AUTH_MODE=header.
type HeaderAuth struct{}

const userHeader = "X-User-ID"

func (HeaderAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		uid := strings.TrimSpace(c.Request().Header.Get(userHeader))
		if uid == "" {
			return c.JSON(http.StatusUnauthorized, unauthorizedBody("unauthorized"))
		}
		setUID(c, uid)
		return next(c)
	}
}

func setUID(c echo.Context, uid string) {
	c.Set("uid", uid)
	req := c.Request()
	logger := logging.FromContext(req.Context()).With(zap.String("uid", uid))
	c.SetRequest(req.WithContext(logging.ContextWithLogger(req.Context(), logger)))
}

func unauthorizedBody(code string) map[string]map[string]string {
	return map[string]map[string]string{"error": {"code": code, "message": "authentication required"}}
}
