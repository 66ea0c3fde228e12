package model

import "time"

// StatusConfirmed is the only reservation status produced by the booking
// flow: payment is collected before the reservation is written.
const StatusConfirmed = "confirmed"

// Reservation records a customer's booking of one slot.  Rows are
// written once and never updated.
//
// Fields:
//  ID         – primary key identifier (UUID).
//  FirstName  – customer first name.
//  LastName   – customer last name.
//  Email      – customer email, normalized to lower case.
//  Phone      – customer phone number.
//  TimeSlotID – slot being reserved.
//  SlotTime   – copy of the slot's time label.
//  WeekStart  – Monday of the reserved week.
//  Status     – reservation status (confirmed).
//  CreatedAt  – creation timestamp.
type Reservation struct {
	ID         string    `json:"id"`           // reservations.id
	FirstName  string    `json:"first_name"`   // reservations.first_name
	LastName   string    `json:"last_name"`    // reservations.last_name
	Email      string    `json:"email"`        // reservations.email
	Phone      string    `json:"phone"`        // reservations.phone
	TimeSlotID string    `json:"time_slot_id"` // reservations.time_slot_id
	SlotTime   string    `json:"slot_time"`    // reservations.slot_time
	WeekStart  time.Time `json:"week_start"`   // reservations.week_start
	Status     string    `json:"status"`       // reservations.status
	CreatedAt  time.Time `json:"created_at"`   // reservations.created_at
}

// AggregateCounts carries the reservation total of the active week and
// the business thresholds shown next to it.  Thresholds are informative
// only; nothing enforces them.
type AggregateCounts struct {
	Reservations    int `json:"reservations"`
	MinReservations int `json:"min_reservations"`
	MaxReservations int `json:"max_reservations"`
}
