package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/reservation"
)

// WeekHandler serves the active week view and per-week slot listings.
type WeekHandler struct {
	Surface   *reservation.Surface
	Catalog   *reservation.Catalog
	Ledger    *reservation.Ledger
	Loc       *time.Location
	Log       *zap.Logger
	Heartbeat time.Duration // SSE keep-alive interval
	// WeeksAhead is how many weeks past the current one may be provisioned
	// on read.  Weeks outside the window are listed read-only.
	WeeksAhead int
	Now        func() time.Time
}

// NewWeekHandler constructs a WeekHandler.  A nil loc means time.Local.
func NewWeekHandler(surface *reservation.Surface, catalog *reservation.Catalog, ledger *reservation.Ledger,
	loc *time.Location, weeksAhead int, log *zap.Logger) *WeekHandler {
	if loc == nil {
		loc = time.Local
	}
	if weeksAhead < 0 {
		weeksAhead = 0
	}
	return &WeekHandler{
		Surface:    surface,
		Catalog:    catalog,
		Ledger:     ledger,
		Loc:        loc,
		Log:        log.Named("weeks"),
		Heartbeat:  25 * time.Second,
		WeeksAhead: weeksAhead,
		Now:        time.Now,
	}
}

// provisionable reports whether weekStart lies between the current week and
// WeeksAhead weeks after it.
func (h *WeekHandler) provisionable(weekStart time.Time) bool {
	current := model.WeekInfoFor(h.Now().In(h.Loc)).Start
	last := current.AddDate(0, 0, 7*h.WeeksAhead)
	return !weekStart.Before(current) && !weekStart.After(last)
}

// Current handles GET /v1/weeks/current and returns the surface state.
func (h *WeekHandler) Current(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Surface.Current())
}

// Stream handles GET /v1/weeks/current/stream.  It sends the current state
// as a Server-Sent Event right away and another after every change until
// the client disconnects.  Slow clients only ever receive the latest state.
func (h *WeekHandler) Stream(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	latest := make(chan reservation.State, 1)
	unsubscribe := h.Surface.Subscribe(func(s reservation.State) {
		select {
		case <-latest:
		default:
		}
		latest <- s
	})
	defer unsubscribe()

	ping := time.NewTicker(h.Heartbeat)
	defer ping.Stop()
	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case s := <-latest:
			data, err := json.Marshal(s)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(res, "event: state\ndata: %s\n\n", data); err != nil {
				return nil
			}
			res.Flush()
		case <-ping.C:
			if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

// Info handles GET /v1/weeks/:date and returns the week window containing
// the YYYY-MM-DD date.
func (h *WeekHandler) Info(c echo.Context) error {
	weekStart, err := model.ParseWeekKey(c.Param("date"), h.Loc)
	if err != nil {
		return badDate(c)
	}
	return c.JSON(http.StatusOK, model.WeekInfoFor(weekStart))
}

// Slots handles GET /v1/weeks/:date/slots.  Weeks inside the provisioning
// window are created on first access; other weeks are only read.  A
// storage failure yields an empty list.
func (h *WeekHandler) Slots(c echo.Context) error {
	weekStart, err := model.ParseWeekKey(c.Param("date"), h.Loc)
	if err != nil {
		return badDate(c)
	}
	ctx := c.Request().Context()
	var slots []model.SlotAvailability
	if h.provisionable(weekStart) {
		var rows []model.TimeSlot
		rows, err = h.Catalog.EnsureSlots(ctx, weekStart)
		slots = reservation.Availability(rows)
	} else {
		slots, err = h.Ledger.Snapshot(ctx, weekStart)
	}
	if err != nil {
		h.Log.Warn("load slots failed", zap.Time("week", weekStart), zap.Error(err))
		slots = []model.SlotAvailability{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"week":  model.WeekInfoFor(weekStart),
		"slots": slots,
	})
}

func badDate(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid date, expected YYYY-MM-DD between 0001 and 9999"})
}
