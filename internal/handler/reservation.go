package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/slot-reservation/internal/middleware"
	"github.com/iliyamo/slot-reservation/internal/model"
	"github.com/iliyamo/slot-reservation/internal/reservation"
)

// ReservationHandler exposes the reserve workflow.  Authentication and the
// whitelist check are done by middleware; payment is confirmed by the
// client before calling.
type ReservationHandler struct {
	Workflow *reservation.Workflow
	Loc      *time.Location
}

func NewReservationHandler(w *reservation.Workflow, loc *time.Location) *ReservationHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ReservationHandler{Workflow: w, Loc: loc}
}

type reserveBody struct {
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	TimeSlotID string `json:"timeSlotId"`
	WeekStart  string `json:"weekStart"`
}

// Create handles POST /v1/reservations.  Workflow outcomes, including
// failures, are returned with 200 and a {success, error} body; only a
// malformed request gets 400.
func (h *ReservationHandler) Create(c echo.Context) error {
	var body reserveBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.FirstName = strings.TrimSpace(body.FirstName)
	body.LastName = strings.TrimSpace(body.LastName)
	body.Phone = strings.TrimSpace(body.Phone)
	body.TimeSlotID = strings.TrimSpace(body.TimeSlotID)
	if strings.TrimSpace(body.Email) == "" {
		body.Email = middleware.Email(c)
	}
	if body.FirstName == "" || body.LastName == "" || body.Phone == "" || body.TimeSlotID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "firstName, lastName, phone and timeSlotId are required"})
	}

	req := reservation.Request{
		FirstName:  body.FirstName,
		LastName:   body.LastName,
		Email:      body.Email,
		Phone:      body.Phone,
		TimeSlotID: body.TimeSlotID,
	}
	if body.WeekStart != "" {
		ws, err := parseWeekStart(body.WeekStart, h.Loc)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid weekStart"})
		}
		req.WeekStart = ws
	}
	return c.JSON(http.StatusOK, h.Workflow.Reserve(c.Request().Context(), req))
}

// parseWeekStart accepts a date-only value or an RFC 3339 timestamp.
func parseWeekStart(s string, loc *time.Location) (time.Time, error) {
	if t, err := model.ParseWeekKey(s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	w := model.WeekInfoFor(t.In(loc))
	if !w.InRange() {
		return time.Time{}, model.ErrWeekOutOfRange
	}
	return w.Start, nil
}
