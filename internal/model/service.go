package model

import "time"

// Service is a bookable offering of a workshop. Read-only for the
// reservation core; managed by the workshop administration surface.
type Service struct {
	ID              int64     `json:"id"`
	WorkshopID      int64     `json:"workshop_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	PriceCents      int       `json:"price_cents"`
	DurationMinutes int       `json:"duration_minutes"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
}

// RequiredDuration returns the service duration as a time.Duration.
func (s *Service) RequiredDuration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}
