// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/slot-reservation/internal/model"
)

// ReservationQueue is the durable queue confirmed reservations are sent to.
const ReservationQueue = "reservation.confirmed"

// ReservationConfirmedEvent is published when a reservation is committed.
// It contains enough information for downstream consumers to log or
// notify without querying the primary database.
type ReservationConfirmedEvent struct {
	ReservationID string `json:"reservation_id"`
	TimeSlotID    string `json:"time_slot_id"`
	SlotTime      string `json:"slot_time"`
	WeekStart     string `json:"week_start"`
	Fulfillment   string `json:"fulfillment_date"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	ConfirmedAt   string `json:"confirmed_at"`
}

// NewReservationConfirmedEvent builds the event for a committed reservation.
func NewReservationConfirmedEvent(r model.Reservation) ReservationConfirmedEvent {
	week := model.WeekInfoFor(r.WeekStart)
	confirmed := r.CreatedAt
	if confirmed.IsZero() {
		confirmed = time.Now().UTC()
	}
	return ReservationConfirmedEvent{
		ReservationID: r.ID,
		TimeSlotID:    r.TimeSlotID,
		SlotTime:      r.SlotTime,
		WeekStart:     week.Start.Format(model.WeekKeyLayout),
		Fulfillment:   week.Fulfillment.Format(model.WeekKeyLayout),
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Email:         r.Email,
		ConfirmedAt:   confirmed.UTC().Format(time.RFC3339),
	}
}
