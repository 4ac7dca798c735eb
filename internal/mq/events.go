package mq

import "time"

// Routing keys for booking lifecycle events.
const (
	KeyBookingCreated   = "booking.created"
	KeyBookingCancelled = "booking.cancelled"
)

// BookingCreatedEvent carries enough for downstream consumers (reporting,
// audit) to act without querying the primary database.
type BookingCreatedEvent struct {
	EventID    string    `json:"event_id"`
	BookingID  int64     `json:"booking_id"`
	SlotID     int64     `json:"slot_id"`
	ServiceID  int64     `json:"service_id"`
	UserID     int64     `json:"user_id"`
	WorkshopID int64     `json:"workshop_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookingCancelledEvent is published when a booking is cancelled.
type BookingCancelledEvent struct {
	EventID     string    `json:"event_id"`
	BookingID   int64     `json:"booking_id"`
	UserID      int64     `json:"user_id"`
	CancelledAt time.Time `json:"cancelled_at"`
}
