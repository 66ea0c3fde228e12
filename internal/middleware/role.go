package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// WhitelistChecker answers whether an email may reserve.
type WhitelistChecker interface {
	IsWhitelisted(ctx context.Context, email string) bool
}

// RequireWhitelisted aborts with 403 unless the authenticated email is on
// the whitelist.  It assumes Authenticate ran first.
func RequireWhitelisted(checker WhitelistChecker) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			email := Email(c)
			if email == "" || !checker.IsWhitelisted(c.Request().Context(), email) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "access denied"})
			}
			return next(c)
		}
	}
}

// RequireAdmin aborts with 403 unless the authenticated email equals
// adminEmail.  An empty adminEmail locks the admin routes entirely.
func RequireAdmin(adminEmail string) echo.MiddlewareFunc {
	adminEmail = strings.ToLower(strings.TrimSpace(adminEmail))
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if adminEmail == "" || Email(c) != adminEmail {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
