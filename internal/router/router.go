package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/handler"
)

// RegisterRoutes registers routes that do not require authentication and
// are not versioned.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPublic registers the unauthenticated week views and the
// whitelist check.  cache wraps only the deterministic week info route;
// slot listings change with every reservation.
func RegisterPublic(e *echo.Echo, w *handler.WeekHandler, wl *handler.WhitelistHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/weeks/current", w.Current)
	g.GET("/weeks/current/stream", w.Stream)
	g.GET("/weeks/:date", w.Info, cache)
	g.GET("/weeks/:date/slots", w.Slots)
	g.POST("/whitelist/check", wl.Check)
}

// RegisterMember registers the payment and reservation endpoints.  Both
// require a verified identity whose email is whitelisted.
func RegisterMember(e *echo.Echo, r *handler.ReservationHandler, p *handler.PaymentHandler, auth, whitelisted echo.MiddlewareFunc) {
	g := e.Group("/v1", auth, whitelisted)
	g.POST("/payments/intent", p.CreateIntent)
	g.POST("/reservations", r.Create)
}

// RegisterAdmin registers the admin endpoints under /v1/admin.
func RegisterAdmin(e *echo.Echo, wl *handler.WhitelistHandler, a *handler.AdminHandler, auth, admin echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", auth, admin)
	g.GET("/whitelist", wl.List)
	g.POST("/whitelist", wl.Add)
	g.PUT("/whitelist/:id", wl.SetActive)
	g.DELETE("/whitelist/:id", wl.Delete)
	g.GET("/weeks/:date/reservations", a.ListReservations)
	g.POST("/weeks/:date/reconcile", a.Reconcile)
	g.GET("/slots/:id", a.SlotCapacity)
}
