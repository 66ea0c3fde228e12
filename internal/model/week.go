package model

import (
	"errors"
	"time"
)

// WeekKeyLayout is the date-only form used to persist a week start.
const WeekKeyLayout = "2006-01-02"

// WeekInfo describes the Monday to Sunday window a date belongs to and
// the Friday on which deliveries for that window happen.  It is derived
// from a date and never stored on its own.
//
// Fields:
//  Start       – Monday of the week at 00:00:00.
//  End         – Sunday of the week at 23:59:59.999.
//  Fulfillment – Friday of the week at 00:00:00.
type WeekInfo struct {
	Start       time.Time `json:"start_date"`
	End         time.Time `json:"end_date"`
	Fulfillment time.Time `json:"fulfillment_date"`
}

// WeekInfoFor maps any date to the week window containing it.  Sunday is
// treated as the last day of the week, so a Sunday belongs to the week
// that started six days earlier.  Computation happens in t's location.
func WeekInfoFor(t time.Time) WeekInfo {
	sinceMonday := int(t.Weekday()) - 1
	if t.Weekday() == time.Sunday {
		sinceMonday = 6
	}
	y, m, d := t.Date()
	loc := t.Location()
	start := time.Date(y, m, d-sinceMonday, 0, 0, 0, 0, loc)
	sy, sm, sd := start.Date()
	return WeekInfo{
		Start:       start,
		End:         time.Date(sy, sm, sd+6, 23, 59, 59, int(999*time.Millisecond), loc),
		Fulfillment: time.Date(sy, sm, sd+4, 0, 0, 0, 0, loc),
	}
}

// Equal reports whether both windows start on the same instant.
func (w WeekInfo) Equal(o WeekInfo) bool { return w.Start.Equal(o.Start) }

// WeekKey returns the date-only key of the week containing t.
func WeekKey(t time.Time) string {
	return WeekInfoFor(t).Start.Format(WeekKeyLayout)
}

// ErrWeekOutOfRange is returned for weeks that start before year 1 or end
// after year 9999.
var ErrWeekOutOfRange = errors.New("week out of range")

// InRange reports whether the whole window lies within years 1 to 9999.
func (w WeekInfo) InRange() bool {
	return w.Start.Year() >= 1 && w.End.Year() <= 9999
}

// ParseWeekKey parses a YYYY-MM-DD value in loc and returns the start of
// the week containing that date.
func ParseWeekKey(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(WeekKeyLayout, s, loc)
	if err != nil {
		return time.Time{}, err
	}
	w := WeekInfoFor(t)
	if !w.InRange() {
		return time.Time{}, ErrWeekOutOfRange
	}
	return w.Start, nil
}
