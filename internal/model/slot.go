package model

import "time"

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusBooked    SlotStatus = "booked"
)

// AvailableSlot is one bookable time window offered by a workshop.
// Times are stored and compared in UTC; EndTime is always after StartTime.
type AvailableSlot struct {
	ID         int64      `json:"id"`
	WorkshopID int64      `json:"workshop_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    time.Time  `json:"end_time"`
	Status     SlotStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Duration returns the length of the slot window.
func (s *AvailableSlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// AvailableSlotDTO is the read-only shape returned by availability queries.
type AvailableSlotDTO struct {
	SlotID     int64     `json:"slot_id"`
	WorkshopID int64     `json:"workshop_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
}
