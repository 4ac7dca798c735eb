package model

import "time"

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// Booking is the reservation record created when a slot is booked.
// CreatedAt is assigned by the database, never by the caller.
type Booking struct {
	ID            int64         `json:"id"`
	SlotID        int64         `json:"slot_id"`
	ServiceID     int64         `json:"service_id"`
	UserID        int64         `json:"user_id"`
	CustomerName  string        `json:"customer_name"`
	CustomerEmail string        `json:"customer_email"`
	CustomerPhone string        `json:"customer_phone"`
	Notes         string        `json:"notes"`
	Status        BookingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`

	// Populated by the reservation flow for notification templating,
	// not read back from the bookings table.
	Slot    *AvailableSlot `json:"slot,omitempty"`
	Service *Service       `json:"service,omitempty"`
}
