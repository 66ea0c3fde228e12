package model

import "time"

// SlotTimes is the fixed, ordered set of bookable times of day.  Labels
// are zero-padded so that lexical order equals chronological order.
var SlotTimes = []string{
	"17:00", "17:30",
	"18:00", "18:30",
	"19:00", "19:30",
	"20:00", "20:30",
	"21:00", "21:30",
}

// DefaultSlotCapacity is the number of reservations a fresh slot accepts.
const DefaultSlotCapacity = 1

// TimeSlot is a bookable half-hour position within a specific week.
// Exactly one row exists per (week start, time of day) pair; the
// `time_slots` table enforces it with a unique key.
//
// Fields:
//  ID        – opaque identifier (UUID).
//  WeekStart – Monday of the week the slot belongs to.
//  Time      – one of SlotTimes.
//  Capacity  – remaining reservations the slot accepts, never negative.
//  CreatedAt – timestamp when the slot was provisioned.
type TimeSlot struct {
	ID        string    // time_slots.id
	WeekStart time.Time // time_slots.week_start
	Time      string    // time_slots.slot_time
	Capacity  int       // time_slots.max_reservations
	CreatedAt time.Time // time_slots.created_at
}

// Available reports whether the slot can still accept a reservation.
func (s TimeSlot) Available() bool { return s.Capacity > 0 }

// SlotAvailability is the read-side projection of a slot.
type SlotAvailability struct {
	ID        string `json:"id"`
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
