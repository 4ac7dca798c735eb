package model

import "time"

// AlternativeSlot is a ranked suggestion returned when a requested time
// cannot be booked. The service name and price come from the first active
// service of the workshop, which is an approximation: a workshop with
// several differently priced services shows the same label on every
// suggestion.
type AlternativeSlot struct {
	SlotID          int64     `json:"slot_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	ServiceName     string    `json:"service_name"`
	PriceCents      int       `json:"price_cents"`
	DistanceMinutes int       `json:"distance_minutes"`
	Reason          string    `json:"reason"`
}
