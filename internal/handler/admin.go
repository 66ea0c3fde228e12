package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/repository"
	"github.com/iliyamo/slot-reservation/internal/reservation"
)

// AdminHandler serves week-level admin views and repairs.
type AdminHandler struct {
	Reservations *repository.ReservationRepo
	Ledger       *reservation.Ledger
	Catalog      *reservation.Catalog
	Loc          *time.Location
	Log          *zap.Logger
}

func NewAdminHandler(res *repository.ReservationRepo, ledger *reservation.Ledger, catalog *reservation.Catalog, loc *time.Location, log *zap.Logger) *AdminHandler {
	if loc == nil {
		loc = time.Local
	}
	return &AdminHandler{Reservations: res, Ledger: ledger, Catalog: catalog, Loc: loc, Log: log.Named("admin")}
}

// ListReservations handles GET /v1/admin/weeks/:date/reservations.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	weekStart, err := model.ParseWeekKey(c.Param("date"), h.Loc)
	if err != nil {
		return badDate(c)
	}
	list, err := h.Reservations.ListByWeek(c.Request().Context(), weekStart)
	if err != nil {
		h.Log.Error("list reservations failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"week":         model.WeekInfoFor(weekStart),
		"count":        len(list),
		"reservations": list,
	})
}

// Reconcile handles POST /v1/admin/weeks/:date/reconcile.  Capacities are
// recomputed from confirmed reservations and the week is republished.
func (h *AdminHandler) Reconcile(c echo.Context) error {
	weekStart, err := model.ParseWeekKey(c.Param("date"), h.Loc)
	if err != nil {
		return badDate(c)
	}
	ctx := c.Request().Context()
	changed, err := h.Ledger.Reconcile(ctx, weekStart)
	if err != nil {
		h.Log.Error("reconcile failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	if changed > 0 {
		h.Catalog.Provision(ctx, weekStart)
	}
	return c.JSON(http.StatusOK, echo.Map{"changed": changed})
}

// SlotCapacity handles GET /v1/admin/slots/:id and reports the slot's
// remaining capacity.
func (h *AdminHandler) SlotCapacity(c echo.Context) error {
	id := c.Param("id")
	n, err := h.Ledger.CapacityOf(c.Request().Context(), id)
	if errors.Is(err, repository.ErrSlotNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "slot not found"})
	}
	if err != nil {
		h.Log.Error("read capacity failed", zap.String("slot_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "capacity": n})
}
