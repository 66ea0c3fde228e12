package middleware

// Helpers shared across middleware files and handlers for reading the
// authenticated identity placed in the Echo context by Authenticate.

import "github.com/labstack/echo/v4"

// Email returns the verified email of the caller or "" for anonymous
// requests.
func Email(c echo.Context) string {
	if s, ok := c.Get(ctxEmail).(string); ok {
		return s
	}
	return ""
}

// userID returns the caller's subject, falling back to the email, and
// "anon" when no one is authenticated.
func userID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	if e := Email(c); e != "" {
		return e
	}
	return "anon"
}
