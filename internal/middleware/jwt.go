package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/identity"
)

// Context keys set by Authenticate.
const (
	ctxEmail  = "email"
	ctxUserID = "user_id"
)

// Authenticate returns an Echo middleware that validates a Bearer token
// issued by the identity provider and stores the verified email and
// subject in the request context.  Handlers read them with Email(c).
func Authenticate(v *identity.Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := v.Verify(strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ctxEmail, claims.Email)
			c.Set(ctxUserID, claims.Subject)
			return next(c)
		}
	}
}
